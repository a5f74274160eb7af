package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/enrich"
)

// newEnrichCmd creates and configures the 'enrich' subcommand. It fills in
// titles, descriptions, and tags for bookmarks the newsletters never
// covered, by fetching each page and asking an LLM to summarize it.
func newEnrichCmd() *cobra.Command {
	var (
		dryRun       bool
		limit        int
		collectionID int
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fills in missing bookmark metadata with LLM summaries",
		Long: `Walks the bookmark server's links and, for every link with a bogus or
missing title, an empty description, or no real tags, fetches the page and
asks the configured LLM provider for a title, description, and tags. Results
are cached so a dry run or a failed update never repeats a paid call.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()

			client, err := buildBookmarkClient(appInstance)
			if err != nil {
				return err
			}

			provider, err := enrich.New(enrich.Config{
				Provider: cfg.LLM.Provider,
				APIKey:   cfg.LLM.APIKey,
				Model:    cfg.LLM.Model,
				BaseURL:  cfg.LLM.BaseURL,
				Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			})
			if err != nil {
				return fmt.Errorf("init llm provider: %w", err)
			}

			fetcher, err := crawler.NewCollyFetcher(crawler.FetcherConfig{
				UserAgent:      cfg.Crawler.UserAgent,
				Timeout:        cfg.CrawlTimeout(),
				DelayPerDomain: time.Duration(cfg.Crawler.DelayMs) * time.Millisecond,
			}, logger)
			if err != nil {
				return fmt.Errorf("init fetcher: %w", err)
			}

			tags := bookmarks.NewTagPolicy(cfg.Bookmarks.MarkerTag)
			enricher := enrich.NewEnricher(client, provider, fetcher, appInstance.Cache(), tags, logger)
			report, err := enricher.Run(cmd.Context(), enrich.Options{
				CollectionID: collectionID,
				DryRun:       dryRun,
				Limit:        limit,
				Force:        force,
			})
			if err != nil {
				return fmt.Errorf("run enrich: %w", err)
			}

			logger.Info("Enrich finished",
				zap.Int("total", report.Total),
				zap.Int("enriched", report.Enriched),
				zap.Int("skipped", report.Skipped),
				zap.Int("no_access", report.NoAccess),
				zap.Int("failed", report.Failed),
				zap.Bool("dry_run", dryRun))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and cache results without updating the server")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum links to enrich (0 = unlimited)")
	cmd.Flags().IntVar(&collectionID, "collection", 0, "restrict to one collection ID (0 = all)")
	cmd.Flags().BoolVar(&force, "force", false, "re-enrich links even when their metadata looks complete")

	return cmd
}
