package crawler

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/archive"
	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/newsletter"
	"github.com/mjaros/linksync/internal/queue"
)

// lastCrawlKey is the meta-namespace key gating a full walk. Its TTL is the
// refresh interval: within the window the whole walk is a no-op unless
// forced. This is a coarser gate than per-issue seen-set membership.
const lastCrawlKey = "last_crawl"

// FrontierConfig captures one crawl run's inputs.
type FrontierConfig struct {
	StartURL string
	// MaxTotal caps the number of records appended this run.
	MaxTotal int
	// Force skips the last-crawl gate.
	Force bool
	RunID string
}

// StopReason says why a walk ended.
type StopReason string

// Walk termination causes.
const (
	StopBudget     StopReason = "budget reached"
	StopSeen       StopReason = "reached already-crawled issue"
	StopExhausted  StopReason = "no previous issue"
	StopFresh      StopReason = "recent crawl cached"
	StopStepFailed StopReason = "step failed"
)

// Result summarizes a finished (or cleanly stopped) walk.
type Result struct {
	Appended int
	Reason   StopReason
}

// Frontier walks the linear previous-issue chain one page at a time:
// Fetch -> Extract -> CheckSeen -> Append -> Advance. All steps are
// sequential; each fetch depends on the previous extract.
type Frontier struct {
	fetcher   Fetcher
	renderer  Renderer // nil disables headless promotion
	detector  Detector
	extractor Extractor
	store     newsletter.Store
	seen      *SeenSet
	archive   archive.Provider
	events    queue.Provider
	cache     *cache.Service
	logger    *zap.Logger
}

// NewFrontier wires a frontier. renderer and detector may be nil; archive,
// events, and cacheSvc must be non-nil (use the NoOp providers and a real
// service).
func NewFrontier(
	fetcher Fetcher,
	renderer Renderer,
	detector Detector,
	extractor Extractor,
	store newsletter.Store,
	seen *SeenSet,
	archiveProvider archive.Provider,
	events queue.Provider,
	cacheSvc *cache.Service,
	logger *zap.Logger,
) *Frontier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		fetcher:   fetcher,
		renderer:  renderer,
		detector:  detector,
		extractor: extractor,
		store:     store,
		seen:      seen,
		archive:   archiveProvider,
		events:    events,
		cache:     cacheSvc,
		logger:    logger,
	}
}

// Run executes one walk. It stops cleanly on the first fatal step error,
// returning both the error and the progress made before it; everything
// already appended stays appended and the next run resumes from the
// seen-set.
func (f *Frontier) Run(ctx context.Context, cfg FrontierConfig) (Result, error) {
	// Refuse before the last-crawl gate is read or written: a zero-iteration
	// walk must not suppress the next real run for a whole refresh interval.
	if cfg.StartURL == "" {
		return Result{}, errors.New("crawl: start url is required")
	}
	if !cfg.Force {
		var last time.Time
		hit, err := f.cache.Get(cache.NamespaceMeta, lastCrawlKey, &last)
		if err != nil {
			return Result{}, err
		}
		if hit {
			f.logger.Info("Skipping crawl, last run is still fresh",
				zap.Time("last_crawl", last))
			return Result{Reason: StopFresh}, nil
		}
	}

	res := Result{}
	current := cfg.StartURL
	for current != "" {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if res.Appended >= cfg.MaxTotal {
			res.Reason = StopBudget
			break
		}

		rec, candidates, err := f.step(ctx, current)
		if err != nil {
			res.Reason = StopStepFailed
			return res, err
		}

		if f.seen.Contains(rec.SourceURL) {
			// The chain only gets older: everything beyond this issue was
			// crawled in a prior run.
			res.Reason = StopSeen
			break
		}

		if err := f.append(ctx, cfg.RunID, rec); err != nil {
			res.Reason = StopStepFailed
			return res, err
		}
		res.Appended++

		next := nextCandidate(candidates)
		switch {
		case next == "":
			res.Reason = StopExhausted
			current = ""
		case f.seen.Contains(next):
			res.Reason = StopSeen
			current = ""
		default:
			current = next
		}
	}
	if res.Reason == "" {
		res.Reason = StopExhausted
	}

	if err := f.cache.Set(cache.NamespaceMeta, lastCrawlKey, time.Now().UTC()); err != nil {
		return res, err
	}
	f.logger.Info("Crawl finished",
		zap.String("run_id", cfg.RunID),
		zap.Int("appended", res.Appended),
		zap.String("reason", string(res.Reason)),
	)
	return res, nil
}

// step fetches and extracts one issue. Fetch and parse failures are
// terminal for the step; no retry happens here.
func (f *Frontier) step(ctx context.Context, rawURL string) (newsletter.Record, []string, error) {
	page, err := f.fetchPage(ctx, rawURL)
	if err != nil {
		fetchErrors.Inc()
		return newsletter.Record{}, nil, err
	}
	pagesFetched.Inc()

	f.archivePage(ctx, page)

	rec, candidates, err := f.extractor.Extract(page)
	if err != nil {
		parseErrors.Inc()
		return newsletter.Record{}, nil, err
	}
	if rec.SourceURL == "" {
		rec.SourceURL = page.URL
	}
	if err := rec.Validate(); err != nil {
		parseErrors.Inc()
		return newsletter.Record{}, nil, err
	}
	return rec, candidates, nil
}

func (f *Frontier) fetchPage(ctx context.Context, rawURL string) (Page, error) {
	page, err := f.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{URL: rawURL, Err: err}
		}
		return Page{}, err
	}
	if f.renderer != nil && f.detector != nil && f.detector.NeedsJS(ctx, page) {
		f.logger.Debug("Promoting fetch to headless render", zap.String("url", rawURL))
		rendered, rerr := f.renderer.Render(ctx, rawURL)
		if rerr != nil {
			// Fall back to the fast-path body rather than failing the step.
			f.logger.Warn("Headless render failed, using fast-path body",
				zap.String("url", rawURL), zap.Error(rerr))
			return page, nil
		}
		headlessRenders.Inc()
		return rendered, nil
	}
	return page, nil
}

// archivePage snapshots the raw body. Archive failures are logged, not
// fatal: the snapshot is an audit artifact, not crawl state.
func (f *Frontier) archivePage(ctx context.Context, page Page) {
	if len(page.Body) == 0 {
		return
	}
	name := snapshotObjectName(page.URL, time.Now().UTC())
	if err := f.archive.Save(ctx, name, page.Body); err != nil {
		f.logger.Warn("Failed to archive page snapshot",
			zap.String("url", page.URL), zap.Error(err))
	}
}

// append durably persists rec, then marks it seen. Order matters: a crash
// after Append but before Add reprocesses the issue next run, which is
// safe; the opposite order would skip it forever.
func (f *Frontier) append(ctx context.Context, runID string, rec newsletter.Record) error {
	if err := f.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("append record %s: %w", rec.SourceURL, err)
	}
	if err := f.seen.Add(rec.SourceURL); err != nil {
		return fmt.Errorf("mark seen %s: %w", rec.SourceURL, err)
	}
	recordsAppended.Inc()
	f.logger.Info("Appended issue",
		zap.String("date", rec.Date),
		zap.String("title", rec.Title),
		zap.String("url", rec.SourceURL),
	)
	if err := f.events.Publish(ctx, queue.Event{
		RunID:     runID,
		SourceURL: rec.SourceURL,
		Title:     rec.Title,
		Date:      rec.Date,
		LinkCount: len(rec.Links),
	}); err != nil {
		f.logger.Warn("Failed to publish crawl event", zap.Error(err))
	}
	return nil
}

// nextCandidate picks the first usable previous-issue URL.
func nextCandidate(candidates []string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func snapshotObjectName(rawURL string, fetchedAt time.Time) string {
	urlHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawURL)))
	return path.Join("pages", fetchedAt.Format("2006-01-02"), urlHash+".html")
}
