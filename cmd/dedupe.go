package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/bookmarks"
)

// newDedupeCmd creates and configures the 'dedupe' subcommand. It groups the
// server's bookmarks by exact and fuzzy URL keys and deletes every copy but
// the oldest one in each group.
func newDedupeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Removes duplicate bookmarks, keeping the oldest copy",

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger()

			client, err := buildBookmarkClient(appInstance)
			if err != nil {
				return err
			}

			deduper := bookmarks.NewDeduper(client, appInstance.Cache(), logger)
			report, err := deduper.Run(cmd.Context(), bookmarks.DedupeOptions{DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("run dedupe: %w", err)
			}

			logger.Info("Dedupe finished",
				zap.Int("total", report.Total),
				zap.Int("exact_groups", len(report.ExactGroups)),
				zap.Int("fuzzy_groups", len(report.FuzzyGroups)),
				zap.Int("removals_planned", report.Removals()),
				zap.Int("deleted", report.Deleted),
				zap.Int("failed", report.Failed),
				zap.Bool("dry_run", dryRun))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report duplicate groups without deleting anything")

	return cmd
}
