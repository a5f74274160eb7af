package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFindDuplicatesExactAndFuzzySeparated(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{ID: 1, URL: "https://x.com/a", Created: base},
		{ID: 2, URL: "http://x.com/a/", Created: base.Add(time.Hour)},
		{ID: 3, URL: "https://x.com/a?utm_source=y", Created: base.Add(2 * time.Hour)},
		// Fuzzy-equal but not exact-equal: separate group, not merged.
		{ID: 4, URL: "https://x.com/a?ref=2", Created: base.Add(3 * time.Hour)},
		{ID: 5, URL: "https://x.com/a?ref=3", Created: base.Add(4 * time.Hour)},
		{ID: 6, URL: "https://x.com/unique", Created: base},
	}

	exact, fuzzy := FindDuplicates(items)

	require.Len(t, exact, 1)
	require.Len(t, exact[0].Items, 3)
	require.Equal(t, "https://x.com/a", exact[0].Key)

	require.Len(t, fuzzy, 1)
	require.Len(t, fuzzy[0].Items, 2)
	require.Equal(t, "x.com/a", fuzzy[0].Key)
	for _, it := range fuzzy[0].Items {
		require.Contains(t, []int{4, 5}, it.ID)
	}
}

func TestSurvivorSelection(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	g := Group{Items: []Item{
		{ID: 9, Created: base.Add(time.Hour)},
		{ID: 4, Created: base},
		{ID: 7, Created: base.Add(2 * time.Hour)},
	}}
	require.Equal(t, 4, g.Survivor().ID, "earliest created survives")

	removals := g.RemovalCandidates()
	require.Len(t, removals, 2)
	require.Equal(t, 9, removals[0].ID)
	require.Equal(t, 7, removals[1].ID)

	tied := Group{Items: []Item{
		{ID: 9, Created: base},
		{ID: 4, Created: base},
	}}
	require.Equal(t, 4, tied.Survivor().ID, "ties break to lowest id")
}

func TestFindDuplicatesSkipsUnparseable(t *testing.T) {
	t.Parallel()

	exact, fuzzy := FindDuplicates([]Item{
		{ID: 1, URL: "::::"},
		{ID: 2, URL: "::::"},
	})
	require.Empty(t, exact)
	require.Empty(t, fuzzy)
}

func TestFindDuplicatesNoGroupsOfOne(t *testing.T) {
	t.Parallel()

	exact, fuzzy := FindDuplicates([]Item{
		{ID: 1, URL: "https://x.com/a"},
		{ID: 2, URL: "https://x.com/b"},
	})
	require.Empty(t, exact)
	require.Empty(t, fuzzy)
}
