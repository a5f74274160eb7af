package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/cache"
)

var cacheNamespaces = []string{
	cache.NamespaceArticles,
	cache.NamespaceEnrichments,
	cache.NamespaceCollections,
	cache.NamespaceMeta,
}

// newCacheCmd creates the 'cache' subcommand group for inspecting and
// clearing the layered on-disk cache.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspects and clears the on-disk cache",
	}
	cmd.AddCommand(newCacheStatusCmd())
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Prints the live entry count of every cache namespace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			for _, ns := range cacheNamespaces {
				n, err := appInstance.Cache().Len(ns)
				if err != nil {
					return fmt.Errorf("inspect namespace %s: %w", ns, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", ns, n)
			}
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "clear <namespace>",
		Short:     "Removes every entry in one cache namespace",
		Args:      cobra.ExactArgs(1),
		ValidArgs: cacheNamespaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ns := args[0]
			if err := appInstance.Cache().Clear(ns); err != nil {
				return fmt.Errorf("clear namespace %s: %w", ns, err)
			}
			appInstance.Logger().Info("Cache namespace cleared", zap.String("namespace", ns))
			return nil
		},
	}
}
