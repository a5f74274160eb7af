package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/bookmarks"
	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/enrich"
	"github.com/mjaros/linksync/internal/matcher"
)

// newAddCmd creates and configures the 'add' subcommand. It saves one URL
// to the bookmark server, taking its metadata from the crawled corpus when
// the newsletter covered the link and from the LLM otherwise.
func newAddCmd() *cobra.Command {
	var (
		collectionID int
		dryRun       bool
		unread       bool
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Saves one URL to the bookmark server with enriched metadata",
		Long: `Normalizes the URL, refuses it when an identical link already exists on
the server, then looks it up in the crawled corpus. A corpus hit supplies the
newsletter's title, description, and date tag; anything else is fetched and
summarized by the configured LLM provider. An LLM category matching a
collection name picks that collection.`,
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()

			// A missing or unreadable corpus is not fatal here; the
			// link just goes through the LLM path.
			var index *matcher.Index
			if ix, err := buildCorpusIndex(cmd, appInstance); err != nil {
				logger.Warn("Corpus unavailable, skipping newsletter lookup", zap.Error(err))
			} else {
				index = ix
			}

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
			adder := enrich.NewAdder(client, index, provider, fetcher, appInstance.Cache(), tags, logger)
			res, err := adder.Add(cmd.Context(), enrich.AddOptions{
				URL:          args[0],
				CollectionID: collectionID,
				DryRun:       dryRun,
				Unread:       unread,
			})
			if err != nil {
				return fmt.Errorf("add link: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url:    %s\n", res.URL)
			fmt.Fprintf(out, "source: %s\n", res.Source)
			if res.Title != "" {
				fmt.Fprintf(out, "title:  %s\n", res.Title)
			}
			if res.Description != "" {
				fmt.Fprintf(out, "desc:   %s\n", res.Description)
			}
			if len(res.Tags) > 0 {
				fmt.Fprintf(out, "tags:   %s\n", strings.Join(res.Tags, ", "))
			}
			if res.Created {
				fmt.Fprintf(out, "added to collection #%d\n", res.CollectionID)
			} else {
				fmt.Fprintf(out, "(dry-run) would add to collection #%d\n", res.CollectionID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&collectionID, "collection", 0, "target collection ID (an LLM category match overrides it)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview the link without creating it")
	cmd.Flags().BoolVar(&unread, "unread", false, "tag the new link as unread")

	return cmd
}
