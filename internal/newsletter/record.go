// Package newsletter defines the parsed newsletter issue records and the
// append-only corpus stores that persist them across runs.
package newsletter

import (
	"fmt"
	"regexp"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LinkEntry is one link extracted from an issue, in page order.
type LinkEntry struct {
	Title       string `json:"title"`
	URL         string `json:"link"`
	Description string `json:"description"`
}

// Record is one parsed newsletter issue. Records are immutable once
// appended to a Store; corpus order is crawl discovery order, not
// necessarily chronological.
type Record struct {
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Sponsor     string      `json:"sponsor"`
	SourceURL   string      `json:"url"`
	Links       []LinkEntry `json:"links"`
}

// ParseError reports an extracted document missing required fields. It is
// terminal for the crawl step that produced it; progress made before the
// step is preserved.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// Validate enforces the required-field contract at the parse boundary so
// malformed input is rejected as a ParseError instead of propagating
// missing fields downstream.
func (r Record) Validate() error {
	switch {
	case r.SourceURL == "":
		return &ParseError{URL: r.SourceURL, Reason: "missing source url"}
	case r.Title == "":
		return &ParseError{URL: r.SourceURL, Reason: "missing title"}
	case r.Date == "" || !isoDatePattern.MatchString(r.Date):
		return &ParseError{URL: r.SourceURL, Reason: fmt.Sprintf("bad date %q", r.Date)}
	case len(r.Links) == 0:
		return &ParseError{URL: r.SourceURL, Reason: "no links"}
	}
	for i, l := range r.Links {
		if l.URL == "" {
			return &ParseError{URL: r.SourceURL, Reason: fmt.Sprintf("link %d has no url", i)}
		}
	}
	return nil
}
