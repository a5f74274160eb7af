package bookmarks

import (
	"context"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/matcher"
)

// DedupeOptions control one duplicate-removal run.
type DedupeOptions struct {
	// DryRun reports the removal plan without deleting anything.
	DryRun bool
}

// DedupeReport tallies one duplicate-removal run.
type DedupeReport struct {
	Total       int
	ExactGroups []matcher.Group
	FuzzyGroups []matcher.Group
	Deleted     int
	Failed      int
}

// Removals counts the links the plan would delete. Only exact groups are
// deleted; fuzzy groups are reported for human review.
func (r DedupeReport) Removals() int {
	n := 0
	for _, g := range r.ExactGroups {
		n += len(g.Items) - 1
	}
	return n
}

// Deduper finds duplicate bookmarks across all collections and deletes all
// but the survivor of each group.
type Deduper struct {
	client *Client
	cache  *cache.Service
	logger *zap.Logger
}

// NewDeduper wires a Deduper. cacheSvc may be nil.
func NewDeduper(client *Client, cacheSvc *cache.Service, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{client: client, cache: cacheSvc, logger: logger}
}

// Run fetches every link and groups duplicates by canonical and fuzzy URL.
// Exact duplicates lose every copy but the oldest; fuzzy groups share a
// host+path but differ in query, so they are only reported, never deleted.
// Delete failures are counted and the run continues; a failed delete leaves
// that duplicate for the next run.
func (d *Deduper) Run(ctx context.Context, opts DedupeOptions) (DedupeReport, error) {
	collections, err := CachedCollections(ctx, d.client, d.cache, d.logger)
	if err != nil {
		return DedupeReport{}, err
	}

	var items []matcher.Item
	byID := make(map[int]Bookmark)
	for _, col := range collections {
		links, err := d.client.CollectionLinks(ctx, col.ID)
		if err != nil {
			return DedupeReport{}, err
		}
		for _, bm := range links {
			bm.CollectionName = col.Name
			byID[bm.ID] = bm
			items = append(items, matcher.Item{
				ID:      bm.ID,
				URL:     bm.URL,
				Name:    bm.Name,
				Created: bm.CreatedAt,
			})
		}
	}

	exact, fuzzy := matcher.FindDuplicates(items)
	report := DedupeReport{
		Total:       len(items),
		ExactGroups: exact,
		FuzzyGroups: fuzzy,
	}

	for _, group := range fuzzy {
		urls := make([]string, 0, len(group.Items))
		for _, it := range group.Items {
			urls = append(urls, it.URL)
		}
		d.logger.Warn("Possible duplicates need review",
			zap.String("fuzzy_key", group.Key),
			zap.Strings("urls", urls))
	}

	for _, group := range exact {
		survivor := group.Survivor()
		for _, victim := range group.RemovalCandidates() {
			bm := byID[victim.ID]
			d.logger.Info("Removing duplicate bookmark",
				zap.Int("link_id", victim.ID),
				zap.String("url", victim.URL),
				zap.String("collection", bm.CollectionName),
				zap.Int("survivor_id", survivor.ID),
				zap.Bool("dry_run", opts.DryRun),
			)
			if opts.DryRun {
				continue
			}
			if err := d.client.Delete(ctx, victim.ID); err != nil {
				report.Failed++
				d.logger.Error("Duplicate delete failed",
					zap.Int("link_id", victim.ID), zap.Error(err))
				continue
			}
			report.Deleted++
		}
	}
	return report, nil
}
