package crawler

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mjaros/linksync/internal/urlnorm"
)

// SeenSet is the persisted set of newsletter source URLs crawled in any
// prior run, keyed by canonical URL. It is the sole resumption signal: the
// frontier adds a URL only after its record is durably appended, so a crash
// between extract and append reprocesses the issue exactly once.
type SeenSet struct {
	mu   sync.Mutex
	path string
	urls map[string]struct{}
}

// LoadSeenSet reads the seen-set file (one URL per line). A missing file is
// an empty set.
func LoadSeenSet(path string) (*SeenSet, error) {
	s := &SeenSet{path: path, urls: make(map[string]struct{})}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seen set %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.urls[canonicalKey(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seen set: %w", err)
	}
	return s, nil
}

// Contains reports whether rawURL was crawled in any prior run or earlier
// in this one.
func (s *SeenSet) Contains(rawURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[canonicalKey(rawURL)]
	return ok
}

// Add marks rawURL as seen and appends it durably before returning. Callers
// must only invoke Add after the corresponding record has been appended.
func (s *SeenSet) Add(rawURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := canonicalKey(rawURL)
	if _, ok := s.urls[key]; ok {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create seen set dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open seen set %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(key + "\n"); err != nil {
		return fmt.Errorf("append seen url: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync seen set: %w", err)
	}
	s.urls[key] = struct{}{}
	return nil
}

// Len reports the number of seen URLs.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// canonicalKey normalizes a URL for membership; unparseable input falls
// back to the trimmed raw string so membership stays total.
func canonicalKey(rawURL string) string {
	if canonical, err := urlnorm.Normalize(rawURL); err == nil {
		return canonical
	}
	return strings.TrimSpace(rawURL)
}
