// Package cache implements the namespaced, TTL-aware cache that backs every
// "have we done this already" decision across runs: fetched article content,
// LLM enrichment results, bookmark collection listings, and the last-crawl
// gate. Each namespace is an isolated key space persisted in its own JSON
// file and rewritten atomically on every mutation.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Clock returns the current time (useful for testing expiry).
type Clock interface {
	Now() time.Time
}

// Namespace names used by the application. The service itself is generic;
// these constants keep callers from inventing ad hoc spellings.
const (
	NamespaceArticles    = "articles"
	NamespaceEnrichments = "enrichments"
	NamespaceCollections = "collections"
	NamespaceMeta        = "meta"
)

// NoExpiry marks a namespace or entry as valid until explicitly removed.
const NoExpiry time.Duration = 0

// entry is the persisted shape of a single cached value.
type entry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
	// TTLSeconds overrides the namespace default when > 0; -1 pins the
	// entry to no expiry regardless of the namespace policy.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

const entryNoExpiry int64 = -1

// Service is a keyed store partitioned by namespace, each namespace
// independently durable and independently configured with a default TTL.
// At most one writer process per namespace file is assumed; concurrent
// readers across processes are safe.
type Service struct {
	dir      string
	clock    Clock
	defaults map[string]time.Duration

	mu     sync.Mutex
	loaded map[string]map[string]entry
}

// NewService creates a cache service rooted at dir. defaults maps namespace
// names to their default TTL; NoExpiry means entries never expire unless a
// per-entry TTL says otherwise.
func NewService(dir string, clock Clock, defaults map[string]time.Duration) (*Service, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	d := make(map[string]time.Duration, len(defaults))
	for ns, ttl := range defaults {
		d[ns] = ttl
	}
	return &Service{
		dir:      dir,
		clock:    clock,
		defaults: d,
		loaded:   make(map[string]map[string]entry),
	}, nil
}

// Get looks up key in namespace and unmarshals the stored value into out.
// It returns false on a missing or expired entry; expiry is lazy and the
// backing record is left untouched. Absence is never an error.
func (s *Service) Get(namespace, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.namespaceLocked(namespace)
	if err != nil {
		return false, err
	}
	e, ok := data[key]
	if !ok {
		misses.WithLabelValues(namespace).Inc()
		return false, nil
	}
	if s.expired(namespace, e) {
		misses.WithLabelValues(namespace).Inc()
		return false, nil
	}
	hits.WithLabelValues(namespace).Inc()
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		return false, fmt.Errorf("decode cache entry %s/%s: %w", namespace, key, err)
	}
	return true, nil
}

// Set stores value under key with the namespace's default TTL policy.
func (s *Service) Set(namespace, key string, value any) error {
	return s.put(namespace, key, value, 0)
}

// SetTTL stores value with an explicit TTL override. NoExpiry pins the
// entry so it never expires even if the namespace has a default TTL.
func (s *Service) SetTTL(namespace, key string, value any, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if ttl == NoExpiry {
		seconds = entryNoExpiry
	}
	return s.put(namespace, key, value, seconds)
}

func (s *Service) put(namespace, key string, value any, ttlSeconds int64) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s/%s: %w", namespace, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.namespaceLocked(namespace)
	if err != nil {
		return err
	}
	data[key] = entry{Value: raw, StoredAt: s.clock.Now(), TTLSeconds: ttlSeconds}
	return s.persistLocked(namespace, data)
}

// Remove deletes key from namespace. Removing an absent key is a no-op.
func (s *Service) Remove(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.namespaceLocked(namespace)
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.persistLocked(namespace, data)
}

// Clear drops every entry in namespace and deletes its backing file.
func (s *Service) Clear(namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.loaded, namespace)
	path := s.path(namespace)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear namespace %s: %w", namespace, err)
	}
	return nil
}

// Len reports the number of entries currently stored in namespace,
// including entries that have expired but not yet been rewritten.
func (s *Service) Len(namespace string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.namespaceLocked(namespace)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func (s *Service) expired(namespace string, e entry) bool {
	ttl := s.defaults[namespace]
	switch {
	case e.TTLSeconds == entryNoExpiry:
		return false
	case e.TTLSeconds > 0:
		ttl = time.Duration(e.TTLSeconds) * time.Second
	}
	if ttl == NoExpiry {
		return false
	}
	return s.clock.Now().Sub(e.StoredAt) > ttl
}

func (s *Service) namespaceLocked(namespace string) (map[string]entry, error) {
	if data, ok := s.loaded[namespace]; ok {
		return data, nil
	}
	data := make(map[string]entry)
	raw, err := os.ReadFile(s.path(namespace))
	switch {
	case os.IsNotExist(err):
		// First use of this namespace.
	case err != nil:
		return nil, fmt.Errorf("read namespace %s: %w", namespace, err)
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode namespace %s: %w", namespace, err)
		}
	}
	s.loaded[namespace] = data
	return data, nil
}

// persistLocked rewrites the namespace file via a temp file and rename so a
// crash mid-write never corrupts the namespace or bleeds into another.
func (s *Service) persistLocked(namespace string, data map[string]entry) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode namespace %s: %w", namespace, err)
	}

	target := s.path(namespace)
	tmp, err := os.CreateTemp(s.dir, namespace+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", namespace, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write namespace %s: %w", namespace, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync namespace %s: %w", namespace, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", namespace, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace namespace %s: %w", namespace, err)
	}
	return nil
}

func (s *Service) path(namespace string) string {
	return filepath.Join(s.dir, namespace+".json")
}
