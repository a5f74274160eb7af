package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/matcher"
	"github.com/mjaros/linksync/internal/newsletter"
)

func corpusIndex(links ...newsletter.LinkEntry) *matcher.Index {
	return matcher.BuildIndex([]newsletter.Record{{
		Title:     "Issue",
		Date:      "2026-01-09",
		SourceURL: "https://news.example.com/1",
		Links:     links,
	}})
}

func TestAdderUsesCorpusMetadata(t *testing.T) {
	srv := &linkServer{}
	client := srv.start(t)
	index := corpusIndex(newsletter.LinkEntry{
		Title:       "Tool",
		URL:         "https://example.com/tool?utm_source=nl",
		Description: "a handy tool",
	})
	provider := &stubProvider{}
	fetcher := &stubFetcher{body: articleHTML}

	a := NewAdder(client, index, provider, fetcher, newEnrichCache(t), bookmarks.NewTagPolicy(""), nil)
	res, err := a.Add(context.Background(), AddOptions{URL: "http://example.com/tool/", CollectionID: 3})
	require.NoError(t, err)
	require.Equal(t, "newsletter (exact)", res.Source)
	require.Equal(t, "Tool", res.Title)
	require.Equal(t, "a handy tool", res.Description)
	require.Equal(t, []string{"unknow", "2026-01-09"}, res.Tags)
	require.True(t, res.Created)

	// Corpus data means no page fetch and no model call.
	require.Zero(t, provider.calls)
	require.Zero(t, fetcher.calls)

	require.Len(t, srv.creates, 1)
	payload := srv.creates[0]
	require.Equal(t, "Tool", payload["name"])
	require.EqualValues(t, 3, payload["collectionId"])
}

func TestAdderFallsBackToModel(t *testing.T) {
	srv := &linkServer{}
	client := srv.start(t)
	provider := &stubProvider{result: Result{
		Title:       "Go maps explained",
		Description: "How Go maps work.",
		Tags:        []string{"Go", "UNKNOW"},
		Category:    "Reading",
	}}
	fetcher := &stubFetcher{body: articleHTML}

	a := NewAdder(client, nil, provider, fetcher, newEnrichCache(t), bookmarks.NewTagPolicy(""), nil)
	res, err := a.Add(context.Background(), AddOptions{
		URL:          "https://blog.example.com/maps",
		CollectionID: 7,
		Unread:       true,
	})
	require.NoError(t, err)
	require.Equal(t, "llm", res.Source)
	require.Equal(t, 1, fetcher.calls)
	require.Equal(t, 1, provider.calls)

	// Model tags are lowercased, marker tags are dropped, and the unread
	// flag lands last.
	require.Equal(t, []string{"go", "unread"}, res.Tags)

	// The model's category resolves to the "Reading" collection by name,
	// overriding the requested one.
	require.Equal(t, 1, res.CollectionID)
	require.Len(t, srv.creates, 1)
	require.EqualValues(t, 1, srv.creates[0]["collectionId"])
}

func TestAdderRejectsExistingCanonical(t *testing.T) {
	srv := &linkServer{links: []bookmarks.Bookmark{
		{ID: 4, URL: "https://example.com/tool?utm_campaign=x", CollectionID: 1},
	}}
	client := srv.start(t)

	a := NewAdder(client, nil, &stubProvider{}, &stubFetcher{body: articleHTML}, nil, bookmarks.NewTagPolicy(""), nil)
	_, err := a.Add(context.Background(), AddOptions{URL: "http://example.com/tool", CollectionID: 1})
	require.ErrorIs(t, err, ErrAlreadyBookmarked)
	require.Empty(t, srv.creates)
}

func TestAdderDryRunSkipsCreate(t *testing.T) {
	srv := &linkServer{}
	client := srv.start(t)
	index := corpusIndex(newsletter.LinkEntry{Title: "Tool", URL: "https://example.com/tool"})

	a := NewAdder(client, index, &stubProvider{}, &stubFetcher{body: articleHTML}, nil, bookmarks.NewTagPolicy(""), nil)
	res, err := a.Add(context.Background(), AddOptions{URL: "https://example.com/tool", CollectionID: 2, DryRun: true})
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Equal(t, "Tool", res.Title)
	require.Empty(t, srv.creates)
}

func TestAdderInvalidURL(t *testing.T) {
	srv := &linkServer{}
	client := srv.start(t)

	a := NewAdder(client, nil, &stubProvider{}, &stubFetcher{}, nil, bookmarks.NewTagPolicy(""), nil)
	_, err := a.Add(context.Background(), AddOptions{URL: "not a url", CollectionID: 1})
	require.Error(t, err)
	require.Empty(t, srv.creates)
}
