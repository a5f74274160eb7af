package enrich

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/urlnorm"
)

// bogusTitles are placeholder names a saved link picks up from challenge or
// error pages; they count as missing.
var bogusTitles = map[string]struct{}{
	"just a moment...":    {},
	"attention required!": {},
	"access denied":       {},
	"untitled":            {},
	"unknown":             {},
}

// Options control one enrichment run.
type Options struct {
	// CollectionID restricts the run to one collection; 0 means all.
	CollectionID int
	// DryRun computes results (and caches them) without updating links.
	DryRun bool
	// Limit caps the number of links updated; 0 means unlimited.
	Limit int
	// Force re-enriches every field even when already filled.
	Force bool
}

// Report tallies one enrichment run.
type Report struct {
	Total    int
	Enriched int
	Skipped  int
	NoAccess int
	Failed   int
}

// Enricher walks bookmark links, asks the model for metadata where fields
// are missing, and writes the results back.
type Enricher struct {
	client   *bookmarks.Client
	provider Provider
	fetcher  crawler.Fetcher
	cache    *cache.Service
	tags     bookmarks.TagPolicy
	logger   *zap.Logger
}

// NewEnricher wires an Enricher. cacheSvc may be nil to disable result
// caching.
func NewEnricher(client *bookmarks.Client, provider Provider, fetcher crawler.Fetcher, cacheSvc *cache.Service, tags bookmarks.TagPolicy, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		client:   client,
		provider: provider,
		fetcher:  fetcher,
		cache:    cacheSvc,
		tags:     tags,
		logger:   logger,
	}
}

// Run enriches every link that needs it. Model results are cached without
// expiry and removed only after the link update succeeds, so an interrupted
// run never pays for the same model call twice. Inaccessible pages are
// counted and skipped without caching; they get retried next run.
func (e *Enricher) Run(ctx context.Context, opts Options) (Report, error) {
	links, err := e.listLinks(ctx, opts.CollectionID)
	if err != nil {
		return Report{}, err
	}

	report := Report{Total: len(links)}
	for _, bm := range links {
		needs := needsEnrichment(bm, opts.Force, e.tags)
		if !needs.any() {
			report.Skipped++
			continue
		}

		result, err := e.enrichURL(ctx, bm.URL)
		switch {
		case errors.Is(err, ErrCannotAccess):
			report.NoAccess++
			e.logger.Info("Content not accessible, skipping",
				zap.Int("link_id", bm.ID), zap.String("url", bm.URL))
			continue
		case err != nil:
			report.Failed++
			e.logger.Error("Enrichment failed",
				zap.Int("link_id", bm.ID), zap.String("url", bm.URL), zap.Error(err))
			continue
		}

		name, description, addTags := applyResult(bm, result, needs, e.tags)
		e.logger.Info("Enriching bookmark",
			zap.Int("link_id", bm.ID),
			zap.String("url", bm.URL),
			zap.Bool("dry_run", opts.DryRun),
			zap.Strings("add_tags", addTags),
		)
		if !opts.DryRun {
			if err := e.client.Update(ctx, bm, name, bm.URL, description, addTags); err != nil {
				report.Failed++
				e.logger.Error("Bookmark update failed",
					zap.Int("link_id", bm.ID), zap.Error(err))
				continue
			}
			e.evictCached(bm.URL)
		}
		report.Enriched++

		if opts.Limit > 0 && report.Enriched >= opts.Limit {
			e.logger.Info("Enrichment limit reached", zap.Int("limit", opts.Limit))
			break
		}
	}
	return report, nil
}

// enrichURL returns the model result for one URL, from cache when possible.
func (e *Enricher) enrichURL(ctx context.Context, rawURL string) (Result, error) {
	key := cacheKey(rawURL)
	if e.cache != nil {
		var cached Result
		hit, err := e.cache.Get(cache.NamespaceEnrichments, key, &cached)
		if err != nil {
			e.logger.Warn("Enrichment cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	content, err := articleText(ctx, e.fetcher, e.cache, key, e.logger)
	if err != nil {
		return Result{}, err
	}

	result, err := e.provider.Enrich(ctx, rawURL, content)
	if err != nil {
		return Result{}, err
	}
	if e.cache != nil {
		if err := e.cache.SetTTL(cache.NamespaceEnrichments, key, result, cache.NoExpiry); err != nil {
			e.logger.Warn("Enrichment cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// articleText returns the page's extracted text, served from the articles
// namespace when a previous run already fetched it. Only readable pages are
// cached, so a later provider failure retries the model call, not the fetch;
// inaccessible pages stay uncached and are re-tried next run.
func articleText(ctx context.Context, fetcher crawler.Fetcher, cacheSvc *cache.Service, canonical string, logger *zap.Logger) (string, error) {
	if cacheSvc != nil {
		var cached string
		hit, err := cacheSvc.Get(cache.NamespaceArticles, canonical, &cached)
		if err != nil {
			logger.Warn("Article cache read failed", zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	page, err := fetcher.Fetch(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCannotAccess, err)
	}
	content := pageText(page)
	if content == "" {
		return "", ErrCannotAccess
	}
	if cacheSvc != nil {
		if err := cacheSvc.Set(cache.NamespaceArticles, canonical, content); err != nil {
			logger.Warn("Article cache write failed", zap.Error(err))
		}
	}
	return content, nil
}

func (e *Enricher) evictCached(rawURL string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Remove(cache.NamespaceEnrichments, cacheKey(rawURL)); err != nil {
		e.logger.Warn("Enrichment cache eviction failed", zap.Error(err))
	}
}

func (e *Enricher) listLinks(ctx context.Context, collectionID int) ([]bookmarks.Bookmark, error) {
	if collectionID != 0 {
		return e.client.CollectionLinks(ctx, collectionID)
	}
	return e.client.AllLinks(ctx)
}

func cacheKey(rawURL string) string {
	if canonical, err := urlnorm.Normalize(rawURL); err == nil {
		return canonical
	}
	return strings.TrimSpace(rawURL)
}

// fieldNeeds says which bookmark fields are missing.
type fieldNeeds struct {
	title       bool
	description bool
	tags        bool
}

func (n fieldNeeds) any() bool { return n.title || n.description || n.tags }

func needsEnrichment(bm bookmarks.Bookmark, force bool, tags bookmarks.TagPolicy) fieldNeeds {
	if force {
		return fieldNeeds{title: true, description: true, tags: true}
	}
	return fieldNeeds{
		title:       isTitleEmpty(bm.Name, bm.URL) || !hasBracketTitle(bm.Name),
		description: strings.TrimSpace(bm.Description) == "",
		tags:        !tags.HasRealTags(bm.Tags),
	}
}

// isTitleEmpty treats blank names, known challenge-page titles, and names
// that are just the link's domain as missing.
func isTitleEmpty(name, rawURL string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	if _, ok := bogusTitles[lower]; ok {
		return true
	}
	if u, err := url.Parse(rawURL); err == nil {
		domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if domain != "" && (lower == domain || lower == "www."+domain) {
			return true
		}
	}
	return false
}

// hasBracketTitle reports whether the name already carries the enriched
// form "Model title [original]".
func hasBracketTitle(name string) bool {
	trimmed := strings.TrimRight(name, " ")
	return strings.HasSuffix(trimmed, "]") && strings.Contains(trimmed, " [")
}

// applyResult merges the model result into the bookmark per what it needs,
// returning the new name, description, and tags to add.
func applyResult(bm bookmarks.Bookmark, result Result, needs fieldNeeds, tags bookmarks.TagPolicy) (name, description string, addTags []string) {
	name = bm.Name
	if needs.title && result.Title != "" {
		if old := strings.TrimSpace(bm.Name); old != "" && !isTitleEmpty(old, bm.URL) {
			name = fmt.Sprintf("%s [%s]", result.Title, old)
		} else {
			name = result.Title
		}
	}

	description = bm.Description
	if needs.description && result.Description != "" {
		description = result.Description
	}

	if needs.tags {
		for _, t := range result.Tags {
			if t = strings.TrimSpace(strings.ToLower(t)); t != "" && !tags.IsSystemTag(t) {
				addTags = append(addTags, t)
			}
		}
		if result.Category != "" {
			addTags = append(addTags, strings.ToLower(result.Category))
		}
	}
	return name, description, addTags
}
