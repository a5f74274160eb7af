package bookmarks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClientConfig holds the connection settings for the bookmark server.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client is a Linkwarden API client. All calls authenticate with the
// configured bearer token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewClient builds a Client. BaseURL and Token are required.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("bookmark client: base url is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bookmark client: token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Collections lists all collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var envelope struct {
		Response []Collection `json:"response"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/collections", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Response, nil
}

// CollectionLinks lists every link in one collection, following the search
// API's cursor pagination.
func (c *Client) CollectionLinks(ctx context.Context, collectionID int) ([]Bookmark, error) {
	var all []Bookmark
	cursor := 0
	for {
		endpoint := fmt.Sprintf("/api/v1/search?collectionId=%d", collectionID)
		if cursor != 0 {
			endpoint += fmt.Sprintf("&cursor=%d", cursor)
		}

		var envelope struct {
			Data struct {
				Links      []Bookmark `json:"links"`
				NextCursor int        `json:"nextCursor"`
			} `json:"data"`
		}
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
			return nil, err
		}
		if len(envelope.Data.Links) == 0 {
			break
		}
		all = append(all, envelope.Data.Links...)
		if envelope.Data.NextCursor == 0 {
			break
		}
		cursor = envelope.Data.NextCursor
	}
	return all, nil
}

// AllLinks lists every link across all collections, annotating each with its
// collection name.
func (c *Client) AllLinks(ctx context.Context) ([]Bookmark, error) {
	collections, err := c.Collections(ctx)
	if err != nil {
		return nil, err
	}
	var all []Bookmark
	for _, col := range collections {
		links, err := c.CollectionLinks(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("list collection %d: %w", col.ID, err)
		}
		for i := range links {
			links[i].CollectionName = col.Name
		}
		c.logger.Debug("Fetched collection links",
			zap.Int("collection_id", col.ID),
			zap.String("collection", col.Name),
			zap.Int("links", len(links)),
		)
		all = append(all, links...)
	}
	return all, nil
}

// Update rewrites a link's name, url, and description, merging addTags into
// the existing tag list without dropping any tag already present.
func (c *Client) Update(ctx context.Context, bm Bookmark, name, rawURL, description string, addTags []string) error {
	existing := make(map[string]struct{}, len(bm.Tags))
	for _, t := range bm.Tags {
		existing[t.Name] = struct{}{}
	}
	merged := append([]Tag(nil), bm.Tags...)
	for _, tagName := range addTags {
		if _, ok := existing[tagName]; !ok {
			merged = append(merged, Tag{Name: tagName})
		}
	}

	payload := map[string]any{
		"id":           bm.ID,
		"name":         name,
		"url":          rawURL,
		"description":  description,
		"collectionId": bm.CollectionID,
		"collection":   bm.Collection,
		"tags":         merged,
	}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/links/%d", bm.ID), payload, nil)
	if err != nil {
		apiErrors.Inc()
		return err
	}
	bookmarksUpdated.Inc()
	return nil
}

// Delete removes a link by ID.
func (c *Client) Delete(ctx context.Context, id int) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/links/%d", id), nil, nil)
	if err != nil {
		apiErrors.Inc()
		return err
	}
	bookmarksDeleted.Inc()
	return nil
}

// Create adds a new link to a collection.
func (c *Client) Create(ctx context.Context, name, rawURL, description string, tags []string, collectionID int) error {
	tagObjs := make([]Tag, len(tags))
	for i, t := range tags {
		tagObjs[i] = Tag{Name: t}
	}
	payload := map[string]any{
		"name":         name,
		"url":          rawURL,
		"description":  description,
		"collectionId": collectionID,
		"tags":         tagObjs,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/links", payload, nil); err != nil {
		apiErrors.Inc()
		return err
	}
	bookmarksCreated.Inc()
	return nil
}

// do issues one authenticated JSON request. Non-2xx responses become
// *APIError with the (truncated) body for diagnostics.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
