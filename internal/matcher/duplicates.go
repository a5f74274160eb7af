package matcher

import (
	"sort"
	"time"

	"github.com/mjaros/linksync/internal/urlnorm"
)

// Item is the minimal view of a bookmark the duplicate detector needs.
type Item struct {
	ID      int
	URL     string
	Name    string
	Created time.Time
}

// Group is a set of bookmarks sharing one identity key. Items preserve
// input order. The detector classifies only; deletion is the caller's
// responsibility, gated by its own dry-run handling.
type Group struct {
	Key   string
	Items []Item
}

// Survivor selects the bookmark to keep in a duplicate group: the earliest
// created, ties broken by lowest ID.
func (g Group) Survivor() Item {
	best := g.Items[0]
	for _, it := range g.Items[1:] {
		switch {
		case it.Created.Before(best.Created):
			best = it
		case it.Created.Equal(best.Created) && it.ID < best.ID:
			best = it
		}
	}
	return best
}

// RemovalCandidates returns every group member except the survivor, in
// input order.
func (g Group) RemovalCandidates() []Item {
	survivor := g.Survivor()
	out := make([]Item, 0, len(g.Items)-1)
	for _, it := range g.Items {
		if it.ID != survivor.ID {
			out = append(out, it)
		}
	}
	return out
}

// FindDuplicates groups items by canonical URL (exact groups) and, among
// items not already in an exact group, by fuzzy key (fuzzy groups, lower
// confidence, intended for human review rather than automatic deletion).
// Items whose URLs cannot be keyed are skipped.
func FindDuplicates(items []Item) (exact, fuzzy []Group) {
	exactIndex := make(map[string][]Item)
	var exactKeys []string
	for _, it := range items {
		canonical, err := urlnorm.Normalize(it.URL)
		if err != nil {
			continue
		}
		if _, seen := exactIndex[canonical]; !seen {
			exactKeys = append(exactKeys, canonical)
		}
		exactIndex[canonical] = append(exactIndex[canonical], it)
	}

	inExactGroup := make(map[int]bool)
	for _, key := range exactKeys {
		group := exactIndex[key]
		if len(group) < 2 {
			continue
		}
		exact = append(exact, Group{Key: key, Items: group})
		for _, it := range group {
			inExactGroup[it.ID] = true
		}
	}

	fuzzyIndex := make(map[string][]Item)
	var fuzzyKeys []string
	for _, it := range items {
		if inExactGroup[it.ID] {
			continue
		}
		key := urlnorm.FuzzyKey(it.URL)
		if key == "" {
			continue
		}
		if _, seen := fuzzyIndex[key]; !seen {
			fuzzyKeys = append(fuzzyKeys, key)
		}
		fuzzyIndex[key] = append(fuzzyIndex[key], it)
	}
	for _, key := range fuzzyKeys {
		group := fuzzyIndex[key]
		if len(group) < 2 {
			continue
		}
		fuzzy = append(fuzzy, Group{Key: key, Items: group})
	}

	sort.SliceStable(exact, func(i, j int) bool { return exact[i].Key < exact[j].Key })
	sort.SliceStable(fuzzy, func(i, j int) bool { return fuzzy[i].Key < fuzzy[j].Key })
	return exact, fuzzy
}
