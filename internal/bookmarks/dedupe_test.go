package bookmarks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeduperKeepsOldestLink(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeServer{
		t:           t,
		collections: []Collection{{ID: 1, Name: "Reading"}},
		links: map[int][]Bookmark{
			1: {
				{ID: 30, URL: "https://x.com/a?utm_source=y", CreatedAt: base.Add(48 * time.Hour)},
				{ID: 10, URL: "https://x.com/a", CreatedAt: base},
				{ID: 20, URL: "http://x.com/a/", CreatedAt: base.Add(24 * time.Hour)},
				{ID: 40, URL: "https://y.com/unique", CreatedAt: base},
			},
		},
	}
	c := newTestClient(t, f)
	d := NewDeduper(c, nil, nil)

	report, err := d.Run(context.Background(), DedupeOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, report.Total)
	require.Len(t, report.ExactGroups, 1)
	require.Empty(t, report.FuzzyGroups)
	require.Equal(t, 2, report.Deleted)
	require.Zero(t, report.Failed)
	// The oldest link (ID 10) survives.
	require.ElementsMatch(t, []int{20, 30}, f.deletes)
}

func TestDeduperDryRunDeletesNothing(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeServer{
		t:           t,
		collections: []Collection{{ID: 1, Name: "Reading"}},
		links: map[int][]Bookmark{
			1: {
				{ID: 10, URL: "https://x.com/a", CreatedAt: base},
				{ID: 20, URL: "https://x.com/a", CreatedAt: base.Add(time.Hour)},
			},
		},
	}
	c := newTestClient(t, f)
	d := NewDeduper(c, nil, nil)

	report, err := d.Run(context.Background(), DedupeOptions{DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, report.Removals())
	require.Zero(t, report.Deleted)
	require.Empty(t, f.deletes)
}

func TestDeduperNoDuplicates(t *testing.T) {
	f := &fakeServer{
		t:           t,
		collections: []Collection{{ID: 1, Name: "Reading"}},
		links: map[int][]Bookmark{
			1: {{ID: 10, URL: "https://x.com/a"}, {ID: 20, URL: "https://x.com/b"}},
		},
	}
	c := newTestClient(t, f)
	d := NewDeduper(c, nil, nil)

	report, err := d.Run(context.Background(), DedupeOptions{})
	require.NoError(t, err)
	require.Zero(t, report.Removals())
	require.Empty(t, f.deletes)
}
