package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/detection"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/logging"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image-dir> <output-dir>",
	Short: "Detect animals in a directory of camera-trap images",
	Long: `Run animal detection over every image in a directory.

Each image produces one JSON document in the output directory with its kept
bounding boxes in pixel coordinates. When a cache database is configured, raw
backbone features are computed for every kept box and stored under the raw
variant, so later identification runs can take the cheap adapter path.

Examples:
  # Detect with 4 workers, no embedding cache
  rewildid detect ./photos ./detections

  # Cache raw features for later identification
  rewildid detect ./photos ./detections --cache embeddings.db --workers 8`,
	Args: cobra.ExactArgs(2),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Int("workers", 4, "Number of parallel workers")
	detectCmd.Flags().String("cache", "", "Cache database for raw features (defaults to REWILDID_CACHE_PATH)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.Setup(cfg.Log.Dir, cfg.Log.Level)

	if path := mustGetString(cmd, "cache"); path != "" {
		cfg.Cache.Path = path
	}

	bulk := &detection.Bulk{
		Detector:      detection.NewClient(cfg.Detector.URL),
		Workers:       mustGetInt(cmd, "workers"),
		MinConfidence: cfg.Detector.MinConfidence,
		IoUThreshold:  cfg.Detector.IoUThreshold,
		RawVariant:    cfg.Variants.Raw,
		Log:           log,
	}
	if store := openConfiguredStore(cfg, log); store != nil {
		defer store.Close()
		bulk.Store = store
		bulk.Embedder = embedding.NewClient(cfg.Extractor.URL, "")
	}

	summary, err := bulk.Run(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("detection run failed: %w", err)
	}

	fmt.Printf("Completed: %d processed, %d failed\n", summary.Processed, summary.Failed)
	return nil
}
