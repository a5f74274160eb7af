package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/matcher"
	"github.com/mjaros/linksync/internal/urlnorm"
)

// ErrAlreadyBookmarked means the server already holds a link with the same
// canonical URL, so creating another would only feed the deduper.
var ErrAlreadyBookmarked = errors.New("url already bookmarked")

// AddOptions control adding one link.
type AddOptions struct {
	// URL is the link to add; it is normalized before anything else.
	URL string
	// CollectionID is the target collection. An LLM category that matches
	// a collection name overrides it.
	CollectionID int
	// DryRun computes the would-be link without creating it.
	DryRun bool
	// Unread appends the "unread" tag.
	Unread bool
}

// AddResult describes the link that was (or would be) created.
type AddResult struct {
	URL          string
	Source       string // "newsletter (exact)", "newsletter (fuzzy)", or "llm"
	Title        string
	Description  string
	Tags         []string
	CollectionID int
	Created      bool
}

// Adder creates one bookmark, enriched from the newsletter corpus when the
// URL appears there and from the model otherwise.
type Adder struct {
	client   *bookmarks.Client
	index    *matcher.Index
	provider Provider
	fetcher  crawler.Fetcher
	cache    *cache.Service
	tags     bookmarks.TagPolicy
	logger   *zap.Logger
}

// NewAdder wires an Adder. index may be nil when no corpus exists yet; the
// link is then always enriched by the model.
func NewAdder(client *bookmarks.Client, index *matcher.Index, provider Provider, fetcher crawler.Fetcher, cacheSvc *cache.Service, tags bookmarks.TagPolicy, logger *zap.Logger) *Adder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adder{
		client:   client,
		index:    index,
		provider: provider,
		fetcher:  fetcher,
		cache:    cacheSvc,
		tags:     tags,
		logger:   logger,
	}
}

// Add normalizes the URL, refuses exact duplicates of existing links,
// resolves metadata from the corpus or the model, and creates the link.
func (a *Adder) Add(ctx context.Context, opts AddOptions) (AddResult, error) {
	canonical, err := urlnorm.Normalize(opts.URL)
	if err != nil {
		return AddResult{}, fmt.Errorf("add: invalid url %q: %w", opts.URL, err)
	}

	if err := a.checkExisting(ctx, canonical); err != nil {
		return AddResult{}, err
	}

	result := AddResult{URL: canonical, CollectionID: opts.CollectionID}

	var category string
	if m := a.matchCorpus(canonical); m.Kind == matcher.MatchExact || m.Kind == matcher.MatchFuzzy {
		result.Source = "newsletter (exact)"
		if m.Kind == matcher.MatchFuzzy {
			result.Source = "newsletter (fuzzy)"
			a.logger.Info("Fuzzy corpus match",
				zap.String("url", canonical),
				zap.String("matched", m.Ref.OriginalURL))
		}
		result.Title = m.Ref.Title
		result.Description = m.Ref.Description
		result.Tags = []string{a.tags.Marker()}
		if m.Ref.Date != "" {
			result.Tags = append(result.Tags, m.Ref.Date)
		}
	} else {
		content, err := articleText(ctx, a.fetcher, a.cache, canonical, a.logger)
		if err != nil {
			return AddResult{}, err
		}
		model, err := a.provider.Enrich(ctx, canonical, content)
		if err != nil {
			return AddResult{}, fmt.Errorf("add: enrich %s: %w", canonical, err)
		}
		result.Source = "llm"
		result.Title = model.Title
		result.Description = model.Description
		for _, t := range model.Tags {
			if t = strings.TrimSpace(strings.ToLower(t)); t != "" && !a.tags.IsSystemTag(t) {
				result.Tags = append(result.Tags, t)
			}
		}
		category = model.Category
	}

	if opts.Unread && !contains(result.Tags, "unread") {
		result.Tags = append(result.Tags, "unread")
	}

	if category != "" {
		result.CollectionID = a.collectionForCategory(ctx, category, opts.CollectionID)
	}

	a.logger.Info("Adding bookmark",
		zap.String("url", result.URL),
		zap.String("source", result.Source),
		zap.String("title", result.Title),
		zap.Strings("tags", result.Tags),
		zap.Int("collection_id", result.CollectionID),
		zap.Bool("dry_run", opts.DryRun))

	if opts.DryRun {
		return result, nil
	}
	if err := a.client.Create(ctx, result.Title, result.URL, result.Description, result.Tags, result.CollectionID); err != nil {
		return AddResult{}, fmt.Errorf("add: create link: %w", err)
	}
	result.Created = true
	return result, nil
}

// checkExisting walks the server's links. A link with the same canonical
// URL blocks the add; a fuzzy-only collision is surfaced but allowed, since
// different query strings can be genuinely different pages.
func (a *Adder) checkExisting(ctx context.Context, canonical string) error {
	links, err := a.client.AllLinks(ctx)
	if err != nil {
		return fmt.Errorf("add: list links: %w", err)
	}
	fuzzy := urlnorm.FuzzyKey(canonical)
	for _, bm := range links {
		existing, err := urlnorm.Normalize(bm.URL)
		if err != nil {
			continue
		}
		if existing == canonical {
			return fmt.Errorf("%w: link %d (%s)", ErrAlreadyBookmarked, bm.ID, bm.URL)
		}
		if fuzzy != "" && urlnorm.FuzzyKey(bm.URL) == fuzzy {
			a.logger.Warn("Existing link shares the fuzzy key",
				zap.Int("link_id", bm.ID),
				zap.String("existing_url", bm.URL),
				zap.String("new_url", canonical))
		}
	}
	return nil
}

func (a *Adder) matchCorpus(canonical string) matcher.Match {
	if a.index == nil {
		return matcher.Match{Kind: matcher.MatchNone}
	}
	return a.index.Match(canonical)
}

// collectionForCategory resolves the model's category to a collection by
// case-insensitive name. No match keeps the requested collection.
func (a *Adder) collectionForCategory(ctx context.Context, category string, fallback int) int {
	collections, err := bookmarks.CachedCollections(ctx, a.client, a.cache, a.logger)
	if err != nil {
		a.logger.Warn("Could not fetch collections for category match", zap.Error(err))
		return fallback
	}
	for _, coll := range collections {
		if strings.EqualFold(strings.TrimSpace(coll.Name), category) {
			return coll.ID
		}
	}
	return fallback
}

func contains(tags []string, name string) bool {
	for _, t := range tags {
		if t == name {
			return true
		}
	}
	return false
}
