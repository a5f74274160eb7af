// Package crawler implements the newsletter crawl frontier: fetching pages,
// extracting issue records, and walking the "previous issue" chain with
// resume support backed by the persisted seen-set.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mjaros/linksync/internal/newsletter"
)

// Page is one fetched document plus transport metadata.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Renderer fetches a URL with JavaScript execution enabled.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
	Close(ctx context.Context) error
}

// Detector decides whether a fetched page needs a headless re-fetch.
type Detector interface {
	NeedsJS(ctx context.Context, page Page) bool
}

// Extractor parses one newsletter issue out of a fetched page, returning
// the record and the ordered previous-issue candidate URLs.
type Extractor interface {
	Extract(page Page) (newsletter.Record, []string, error)
}

// FetchError reports a network or HTTP failure. It is terminal for the
// crawl step that produced it; records appended and seen-set entries made
// before the step survive, so the next run resumes where this one stopped.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
