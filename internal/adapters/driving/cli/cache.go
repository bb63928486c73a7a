package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the summary cache",
	Long: `Generated summaries are cached by a hash of their exact input, so
re-running the pipeline over unchanged clusters does not call the model
again.`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired cache entries",
	Long: `Remove summary cache entries older than cache.ttl.

The in-memory cache evicts on its own and Redis expires keys itself, so
pruning only removes rows from the SQLite cache.`,
	RunE: runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	if summaryCache == nil {
		return errors.New("summary cache not configured")
	}

	removed, err := summaryCache.Prune(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}
	cmd.Printf("Pruned %d expired entries from the %s cache\n", removed, appConfig.Cache.Backend)
	return nil
}
