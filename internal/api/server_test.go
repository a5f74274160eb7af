package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/newsletter"
)

func newTestServer(t *testing.T) (*Server, *newsletter.MemoryStore, *crawler.SeenSet) {
	t.Helper()
	store := newsletter.NewMemoryStore()
	seen, err := crawler.LoadSeenSet(filepath.Join(t.TempDir(), "seen.txt"))
	require.NoError(t, err)
	return NewServer(store, seen, nil), store, seen
}

func TestHealthEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusEndpoint(t *testing.T) {
	s, store, seen := newTestServer(t)

	require.NoError(t, store.Append(context.Background(), newsletter.Record{
		Title:     "Issue 1",
		Date:      "2026-01-09",
		SourceURL: "https://news.example.com/issues/1",
		Links:     []newsletter.LinkEntry{{Title: "a", URL: "https://a.example.com"}},
	}))
	require.NoError(t, store.Append(context.Background(), newsletter.Record{
		Title:     "Issue 2",
		Date:      "2026-01-16",
		SourceURL: "https://news.example.com/issues/2",
		Links: []newsletter.LinkEntry{
			{Title: "b", URL: "https://b.example.com"},
			{Title: "c", URL: "https://c.example.com"},
		},
	}))
	require.NoError(t, seen.Add("https://news.example.com/issues/1"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Issues)
	require.Equal(t, 3, resp.Links)
	require.Equal(t, 1, resp.SeenURLs)
	require.Equal(t, "2026-01-09", resp.OldestRun)
	require.Equal(t, "2026-01-16", resp.NewestRun)
}
