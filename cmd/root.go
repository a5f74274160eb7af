// Package cmd defines and implements the CLI commands for the linksync
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mjaros/linksync/internal/app"
	"github.com/mjaros/linksync/internal/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so we can replace it
// with a mock factory in tests.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linksync",
		Short: "Newsletter crawler and bookmark synchronizer.",
		Long: `linksync walks a newsletter's previous-issue chain into a local JSONL
corpus, then pushes the extracted link metadata onto a Linkwarden-compatible
bookmark server: titles, descriptions, date tags, canonical URLs, duplicate
removal, and LLM enrichment for links the newsletters never covered.`,
		SilenceUsage: true,

		// This hook runs AFTER flags are parsed but BEFORE the subcommand's
		// RunE. It is the place to build and inject the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			// Store the app instance in the context for subcommands to use.
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus LINKSYNC_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newDedupeCmd())
	cmd.AddCommand(newEnrichCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}

// resolveApp retrieves the application container injected by the root
// command's PersistentPreRunE.
func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
