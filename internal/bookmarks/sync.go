package bookmarks

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/matcher"
	"github.com/mjaros/linksync/internal/urlnorm"
)

// collectionsCacheKey is the single key under which the collection list is
// cached; the list is small and always fetched whole.
const collectionsCacheKey = "data"

// SyncOptions control one sync run.
type SyncOptions struct {
	// CollectionID restricts the run to one collection; 0 means all.
	CollectionID int
	// DryRun computes and reports changes without calling the server.
	DryRun bool
	// Limit caps the number of updates applied; 0 means unlimited.
	Limit int
}

// SyncReport tallies one sync run.
type SyncReport struct {
	Total     int
	Exact     int
	Fuzzy     int
	Ambiguous int
	Updated   int
	Skipped   int
	Failed    int
	Unmatched []string
}

// Syncer pushes newsletter metadata onto matching bookmark links: tags,
// descriptions, titles, and canonical URLs.
type Syncer struct {
	client *Client
	index  *matcher.Index
	cache  *cache.Service
	tags   TagPolicy
	logger *zap.Logger
}

// NewSyncer wires a Syncer. cacheSvc may be nil to disable collection
// caching.
func NewSyncer(client *Client, index *matcher.Index, cacheSvc *cache.Service, tags TagPolicy, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{client: client, index: index, cache: cacheSvc, tags: tags, logger: logger}
}

// Run matches every bookmark against the newsletter index and applies the
// resulting changes. Ambiguous fuzzy matches are reported and never applied.
// A failed update is logged and counted; the run continues.
func (s *Syncer) Run(ctx context.Context, opts SyncOptions) (SyncReport, error) {
	links, err := s.listLinks(ctx, opts.CollectionID)
	if err != nil {
		return SyncReport{}, err
	}

	report := SyncReport{Total: len(links)}
	for _, bm := range links {
		m := s.index.Match(bm.URL)
		switch m.Kind {
		case matcher.MatchNone:
			report.Unmatched = append(report.Unmatched, bm.URL)
			continue
		case matcher.MatchAmbiguous:
			report.Ambiguous++
			s.logger.Warn("Ambiguous fuzzy match, skipping",
				zap.Int("link_id", bm.ID),
				zap.String("url", bm.URL),
				zap.Int("candidates", len(m.Candidates)),
			)
			continue
		case matcher.MatchExact:
			report.Exact++
		case matcher.MatchFuzzy:
			report.Fuzzy++
		}

		change, changed := planChange(bm, m.Ref, s.tags)
		if !changed {
			report.Skipped++
			continue
		}

		s.logger.Info("Updating bookmark",
			zap.Int("link_id", bm.ID),
			zap.String("url", bm.URL),
			zap.Bool("dry_run", opts.DryRun),
			zap.Strings("add_tags", change.addTags),
			zap.Bool("rename", change.name != bm.Name),
		)
		if !opts.DryRun {
			if err := s.client.Update(ctx, bm, change.name, change.url, change.description, change.addTags); err != nil {
				report.Failed++
				s.logger.Error("Bookmark update failed",
					zap.Int("link_id", bm.ID), zap.Error(err))
				continue
			}
		}
		report.Updated++

		if opts.Limit > 0 && report.Updated >= opts.Limit {
			s.logger.Info("Update limit reached", zap.Int("limit", opts.Limit))
			break
		}
	}
	return report, nil
}

// change is the planned rewrite of one bookmark.
type change struct {
	name        string
	url         string
	description string
	addTags     []string
}

// planChange computes what a matched bookmark needs: marker and date tags,
// the newsletter description prepended, the newsletter title with the old
// name preserved in brackets, and the canonical URL. changed is false when
// the bookmark is already fully synced.
func planChange(bm Bookmark, ref matcher.LinkRef, tags TagPolicy) (change, bool) {
	ch := change{name: bm.Name, url: bm.URL, description: bm.Description}

	wanted := []string{tags.Marker()}
	if ref.Date != "" {
		wanted = append(wanted, ref.Date)
	}
	existing := make(map[string]struct{}, len(bm.Tags))
	for _, t := range bm.Tags {
		existing[t.Name] = struct{}{}
	}
	for _, name := range wanted {
		if _, ok := existing[name]; !ok {
			ch.addTags = append(ch.addTags, name)
		}
	}

	if ref.Description != "" && !strings.Contains(bm.Description, ref.Description) {
		if bm.Description != "" {
			ch.description = ref.Description + "\n\n---\n" + bm.Description
		} else {
			ch.description = ref.Description
		}
	}

	if ref.Title != "" && bm.Name != "" && bm.Name != ref.Title && !strings.HasPrefix(bm.Name, ref.Title) {
		ch.name = fmt.Sprintf("%s [%s]", ref.Title, bm.Name)
	}

	if canonical, err := urlnorm.Normalize(bm.URL); err == nil && canonical != bm.URL {
		ch.url = canonical
	}

	changed := len(ch.addTags) > 0 ||
		ch.description != bm.Description ||
		ch.name != bm.Name ||
		ch.url != bm.URL
	return ch, changed
}

// listLinks fetches the links to sync, going through the collections cache
// when listing everything.
func (s *Syncer) listLinks(ctx context.Context, collectionID int) ([]Bookmark, error) {
	if collectionID != 0 {
		return s.client.CollectionLinks(ctx, collectionID)
	}

	collections, err := CachedCollections(ctx, s.client, s.cache, s.logger)
	if err != nil {
		return nil, err
	}
	var all []Bookmark
	for _, col := range collections {
		links, err := s.client.CollectionLinks(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("list collection %d: %w", col.ID, err)
		}
		for i := range links {
			links[i].CollectionName = col.Name
		}
		all = append(all, links...)
	}
	return all, nil
}

// CachedCollections serves the collection list from the collections cache
// namespace, refreshing it from the server on a miss. A nil cache always
// fetches.
func CachedCollections(ctx context.Context, client *Client, cacheSvc *cache.Service, logger *zap.Logger) ([]Collection, error) {
	if cacheSvc != nil {
		var cached []Collection
		hit, err := cacheSvc.Get(cache.NamespaceCollections, collectionsCacheKey, &cached)
		if err != nil {
			logger.Warn("Collections cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	collections, err := client.Collections(ctx)
	if err != nil {
		return nil, err
	}
	if cacheSvc != nil {
		if err := cacheSvc.Set(cache.NamespaceCollections, collectionsCacheKey, collections); err != nil {
			logger.Warn("Collections cache write failed", zap.Error(err))
		}
	}
	return collections, nil
}
