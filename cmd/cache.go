package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding counts in the cache",
	Long: `Show how many embeddings the cache holds, overall or per variant.

Examples:
  rewildid cache stats --db embeddings.db
  rewildid cache stats --db embeddings.db --variant dinov3_raw`,
	RunE: runCacheStats,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)

	cacheStatsCmd.Flags().String("db", "", "Cache database path (defaults to REWILDID_CACHE_PATH)")
	cacheStatsCmd.Flags().String("variant", "", "Count only this embedding variant")
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	path := mustGetString(cmd, "db")
	if path == "" {
		path = cfg.Cache.Path
	}
	if path == "" {
		return errors.New("no cache database: pass --db or set REWILDID_CACHE_PATH")
	}

	store, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	variant := mustGetString(cmd, "variant")
	count, err := store.Count(cmd.Context(), variant)
	if err != nil {
		return err
	}

	if variant == "" {
		fmt.Printf("Embeddings in %s: %d\n", path, count)
	} else {
		fmt.Printf("Embeddings in %s (%s): %d\n", path, variant, count)
	}
	return nil
}
