package bookmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal in-memory Linkwarden lookalike.
type fakeServer struct {
	t           *testing.T
	collections []Collection
	links       map[int][]Bookmark // by collection ID
	pageSize    int

	updates []map[string]any
	deletes []int
	creates []map[string]any
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		json.NewEncoder(w).Encode(map[string]any{"response": f.collections})
	})
	mux.HandleFunc("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		var collectionID, cursor int
		fmt.Sscan(r.URL.Query().Get("collectionId"), &collectionID)
		fmt.Sscan(r.URL.Query().Get("cursor"), &cursor)

		links := f.links[collectionID]
		size := f.pageSize
		if size == 0 {
			size = len(links)
		}
		end := cursor + size
		next := 0
		if end >= len(links) {
			end = len(links)
		} else {
			next = end
		}
		page := links[cursor:end]
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"links": page, "nextCursor": next},
		})
	})
	mux.HandleFunc("/api/v1/links/", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		switch r.Method {
		case http.MethodPut:
			var payload map[string]any
			require.NoError(f.t, json.NewDecoder(r.Body).Decode(&payload))
			f.updates = append(f.updates, payload)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			var id int
			fmt.Sscanf(r.URL.Path, "/api/v1/links/%d", &id)
			f.deletes = append(f.deletes, id)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/links", func(w http.ResponseWriter, r *http.Request) {
		f.requireAuth(r)
		var payload map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&payload))
		f.creates = append(f.creates, payload)
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func (f *fakeServer) requireAuth(r *http.Request) {
	require.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
}

func newTestClient(t *testing.T, f *fakeServer) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestClientRequiresConfig(t *testing.T) {
	_, err := NewClient(ClientConfig{Token: "t"}, nil)
	require.Error(t, err)
	_, err = NewClient(ClientConfig{BaseURL: "https://links.example.com"}, nil)
	require.Error(t, err)
}

func TestClientCollections(t *testing.T) {
	f := &fakeServer{t: t, collections: []Collection{{ID: 1, Name: "Reading"}, {ID: 2, Name: "Videos"}}}
	c := newTestClient(t, f)

	got, err := c.Collections(context.Background())
	require.NoError(t, err)
	require.Equal(t, f.collections, got)
}

func TestClientCollectionLinksFollowsCursor(t *testing.T) {
	links := make([]Bookmark, 5)
	for i := range links {
		links[i] = Bookmark{ID: i + 1, URL: fmt.Sprintf("https://example.com/%d", i+1)}
	}
	f := &fakeServer{t: t, links: map[int][]Bookmark{7: links}, pageSize: 2}
	c := newTestClient(t, f)

	got, err := c.CollectionLinks(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 5)
	require.Equal(t, 1, got[0].ID)
	require.Equal(t, 5, got[4].ID)
}

func TestClientAllLinksAnnotatesCollection(t *testing.T) {
	f := &fakeServer{
		t:           t,
		collections: []Collection{{ID: 1, Name: "Reading"}, {ID: 2, Name: "Videos"}},
		links: map[int][]Bookmark{
			1: {{ID: 10, URL: "https://example.com/a"}},
			2: {{ID: 20, URL: "https://example.com/b"}},
		},
	}
	c := newTestClient(t, f)

	got, err := c.AllLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Reading", got[0].CollectionName)
	require.Equal(t, "Videos", got[1].CollectionName)
}

func TestClientUpdateMergesTags(t *testing.T) {
	f := &fakeServer{t: t}
	c := newTestClient(t, f)

	bm := Bookmark{
		ID:           42,
		Name:         "Old name",
		URL:          "https://example.com/a",
		CollectionID: 1,
		Tags:         []Tag{{ID: 3, Name: "golang"}, {ID: 4, Name: "unknow"}},
	}
	err := c.Update(context.Background(), bm, "New name", "https://example.com/a", "desc", []string{"unknow", "2026-01-23"})
	require.NoError(t, err)

	require.Len(t, f.updates, 1)
	payload := f.updates[0]
	require.Equal(t, "New name", payload["name"])

	tags, ok := payload["tags"].([]any)
	require.True(t, ok)
	// Existing tags kept, "unknow" not duplicated, date tag added.
	require.Len(t, tags, 3)
	names := make([]string, len(tags))
	for i, raw := range tags {
		names[i] = raw.(map[string]any)["name"].(string)
	}
	require.Equal(t, []string{"golang", "unknow", "2026-01-23"}, names)
}

func TestClientDelete(t *testing.T) {
	f := &fakeServer{t: t}
	c := newTestClient(t, f)

	require.NoError(t, c.Delete(context.Background(), 42))
	require.Equal(t, []int{42}, f.deletes)
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid token"}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL, Token: "bad"}, nil)
	require.NoError(t, err)

	_, err = c.Collections(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "invalid token")
}
