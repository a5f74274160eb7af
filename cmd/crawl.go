package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/app"
	"github.com/mjaros/linksync/internal/config"
	"github.com/mjaros/linksync/internal/crawler"
)

// newCrawlCmd creates and configures the 'crawl' subcommand. It walks the
// newsletter's previous-issue chain from the configured start URL, appending
// every unseen issue to the corpus until it hits an already-crawled issue,
// the end of the chain, or the per-run budget.
func newCrawlCmd() *cobra.Command {
	var (
		startURL string
		limit    int
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Walks the newsletter's previous-issue chain into the corpus",
		Long: `Fetches the configured newsletter index page, extracts the issue and its
links, and follows the previous-issue references backward. Each unseen issue
is appended to the corpus before the walk advances, so an interrupted run
loses at most the issue in flight.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawlCommand(cmd, startURL, limit, force)
		},
	}

	cmd.Flags().StringVar(&startURL, "start-url", "", "issue URL to start from (default: configured start URL)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum issues to append this run (default: configured max_total)")
	cmd.Flags().BoolVar(&force, "force", false, "crawl even if a recent run is within the refresh interval")

	return cmd
}

func runCrawlCommand(cmd *cobra.Command, startURL string, limit int, force bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	frontier, cleanup, err := buildFrontier(appInstance)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cleanup(cmd.Context()); cerr != nil {
			logger.Warn("Failed to close renderer", zap.Error(cerr))
		}
	}()

	runCfg := crawler.FrontierConfig{
		StartURL: cfg.Crawler.StartURL,
		MaxTotal: cfg.Crawler.MaxTotal,
		Force:    force,
		RunID:    uuid.NewString(),
	}
	if startURL != "" {
		runCfg.StartURL = startURL
	}
	if limit > 0 {
		runCfg.MaxTotal = limit
	}
	if runCfg.StartURL == "" {
		return errors.New("no start URL: set crawler.start_url or pass --start-url")
	}

	result, err := frontier.Run(cmd.Context(), runCfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Crawl ended early",
			zap.Int("appended", result.Appended),
			zap.Error(err))
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl command finished",
		zap.String("run_id", runCfg.RunID),
		zap.Int("appended", result.Appended),
		zap.String("reason", string(result.Reason)))
	return nil
}

// buildFrontier assembles the crawl pipeline from the app's shared services
// plus the per-run fetcher and optional headless renderer. The returned
// cleanup closes the renderer when one was started.
func buildFrontier(appInstance *app.App) (*crawler.Frontier, func(context.Context) error, error) {
	cfg := appInstance.Config()
	logger := appInstance.Logger()

	fetcher, err := crawler.NewCollyFetcher(crawler.FetcherConfig{
		UserAgent:      cfg.Crawler.UserAgent,
		Timeout:        cfg.CrawlTimeout(),
		DelayPerDomain: time.Duration(cfg.Crawler.DelayMs) * time.Millisecond,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init fetcher: %w", err)
	}

	renderer, err := buildRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func(context.Context) error { return nil }
	var detector crawler.Detector
	if renderer != nil {
		cleanup = renderer.Close
		detector = crawler.NewHeuristicDetector(
			cfg.Headless.MinHTMLBytes,
			cfg.Headless.RequiredCSS,
			cfg.Headless.MarkerKeywords,
		)
	}

	frontier := crawler.NewFrontier(
		fetcher,
		renderer,
		detector,
		crawler.NewIssueExtractor(),
		appInstance.Store(),
		appInstance.Seen(),
		appInstance.Archive(),
		appInstance.Queue(),
		appInstance.Cache(),
		logger,
	)
	return frontier, cleanup, nil
}

func buildRenderer(cfg config.Config, logger *zap.Logger) (crawler.Renderer, error) {
	if !cfg.Headless.Enabled || cfg.Headless.MaxParallel <= 0 {
		return nil, nil
	}
	renderer, err := crawler.NewChromedpRenderer(crawler.RendererConfig{
		UserAgent:      cfg.Crawler.UserAgent,
		NavTimeout:     time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		MaxConcurrency: cfg.Headless.MaxParallel,
		DomainQPS:      cfg.Headless.DomainQPS,
	}, logger)
	switch {
	case err == nil:
		return renderer, nil
	case errors.Is(err, crawler.ErrRendererDisabled):
		logger.Warn("Renderer disabled despite feature flag; crawling without headless fallback")
		return nil, nil
	default:
		return nil, fmt.Errorf("init renderer: %w", err)
	}
}
