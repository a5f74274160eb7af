// Package bookmarks talks to a Linkwarden-compatible bookmark manager:
// listing collections and links, enriching links from the newsletter corpus,
// and removing duplicates.
package bookmarks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tag is one label attached to a bookmark.
type Tag struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name"`
}

// Collection is one bookmark folder on the server.
type Collection struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Bookmark is one stored link. Collection carries the server's collection
// object opaquely so updates can echo it back unchanged.
type Bookmark struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	URL          string          `json:"url"`
	Description  string          `json:"description"`
	CollectionID int             `json:"collectionId"`
	Collection   json.RawMessage `json:"collection,omitempty"`
	Tags         []Tag           `json:"tags"`
	CreatedAt    time.Time       `json:"createdAt"`

	// CollectionName is filled in client-side when listing across
	// collections; the server does not send it on the link itself.
	CollectionName string `json:"-"`
}

// TagNames returns the bookmark's tag names in order.
func (b Bookmark) TagNames() []string {
	names := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		names[i] = t.Name
	}
	return names
}

// APIError reports a non-2xx response from the bookmark server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bookmark api: status %d: %s", e.StatusCode, e.Body)
}
