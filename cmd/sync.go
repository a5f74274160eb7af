package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/app"
	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/matcher"
)

// newSyncCmd creates and configures the 'sync' subcommand. It matches every
// bookmark on the Linkwarden server against the crawled corpus and pushes
// the newsletter's metadata onto the matching links.
func newSyncCmd() *cobra.Command {
	var (
		dryRun        bool
		limit         int
		collectionID  int
		showUnmatched bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pushes newsletter metadata onto matching bookmarks",
		Long: `Loads the crawled corpus, indexes its links by exact and fuzzy URL keys,
then walks the bookmark server's links. Every match gets the newsletter's
tags, description, bracketed title, and canonical URL; already-synced links
are skipped.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			index, err := buildCorpusIndex(cmd, appInstance)
			if err != nil {
				return err
			}

			client, err := buildBookmarkClient(appInstance)
			if err != nil {
				return err
			}

			tags := bookmarks.NewTagPolicy(appInstance.Config().Bookmarks.MarkerTag)
			syncer := bookmarks.NewSyncer(client, index, appInstance.Cache(), tags, logger)
			report, err := syncer.Run(cmd.Context(), bookmarks.SyncOptions{
				CollectionID: collectionID,
				DryRun:       dryRun,
				Limit:        limit,
			})
			if err != nil {
				return fmt.Errorf("run sync: %w", err)
			}

			logger.Info("Sync finished",
				zap.Int("total", report.Total),
				zap.Int("exact", report.Exact),
				zap.Int("fuzzy", report.Fuzzy),
				zap.Int("ambiguous", report.Ambiguous),
				zap.Int("updated", report.Updated),
				zap.Int("skipped", report.Skipped),
				zap.Int("failed", report.Failed),
				zap.Int("unmatched", len(report.Unmatched)),
				zap.Bool("dry_run", dryRun))

			if showUnmatched {
				for _, u := range report.Unmatched {
					fmt.Fprintln(cmd.OutOrStdout(), u)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report planned changes without updating the server")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum links to update (0 = unlimited)")
	cmd.Flags().IntVar(&collectionID, "collection", 0, "restrict to one collection ID (0 = all)")
	cmd.Flags().BoolVar(&showUnmatched, "show-unmatched", false, "print the URLs of links not found in the corpus")

	return cmd
}

func buildCorpusIndex(cmd *cobra.Command, appInstance *app.App) (*matcher.Index, error) {
	records, err := appInstance.Store().LoadAll(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	appInstance.Logger().Info("Corpus loaded", zap.Int("issues", len(records)))
	return matcher.BuildIndex(records), nil
}

func buildBookmarkClient(appInstance *app.App) (*bookmarks.Client, error) {
	cfg := appInstance.Config()
	client, err := bookmarks.NewClient(bookmarks.ClientConfig{
		BaseURL: cfg.Bookmarks.BaseURL,
		Token:   cfg.Bookmarks.Token,
		Timeout: time.Duration(cfg.Bookmarks.TimeoutSeconds) * time.Second,
	}, appInstance.Logger())
	if err != nil {
		return nil, fmt.Errorf("init bookmark client: %w", err)
	}
	return client, nil
}
