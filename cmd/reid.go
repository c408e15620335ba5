package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/imaging"
	"github.com/ML-4-SocialGood/ReWildID/internal/logging"
	"github.com/ML-4-SocialGood/ReWildID/internal/progress"
	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
)

var reidCmd = &cobra.Command{
	Use:   "reid <job.json>",
	Short: "Identify individual animals from a detection job document",
	Long: `Run individual re-identification over a job document.

The job document lists detections (image path, pixel bounding box, detection
id), an output path, an optional cache database path, and an optional species
tag. Embeddings are resolved through the cache first; only detections without
a usable cached vector hit the inference server.

Progress is reported on stdout as STATUS and PROCESS lines for the
supervising frontend.

Examples:
  # Identify individuals from a prepared job document
  rewildid reid job.json

  # Larger inference batches
  rewildid reid job.json --batch-size 16`,
	Args: cobra.ExactArgs(1),
	RunE: runReid,
}

func init() {
	rootCmd.AddCommand(reidCmd)

	reidCmd.Flags().Int("batch-size", 0, "Crops per inference batch (0 = config default)")
}

func runReid(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.Setup(cfg.Log.Dir, cfg.Log.Level)

	if bs := mustGetInt(cmd, "batch-size"); bs > 0 {
		cfg.Extractor.BatchSize = bs
	}

	job, err := reid.LoadJob(args[0])
	if err != nil {
		return err
	}

	store := openConfiguredStore(cfg, log)
	if store != nil {
		defer store.Close()
	}

	pipeline := &reid.Pipeline{
		Cfg:   cfg,
		Store: store,
		NewExtractor: func(species string) embedding.Extractor {
			return embedding.NewClient(cfg.Extractor.URL, species)
		},
		LoadCrop: imaging.LoadCrop,
		Reporter: progress.NewReporter(os.Stdout),
		Log:      log,
	}

	if _, err := pipeline.Run(cmd.Context(), job); err != nil {
		return fmt.Errorf("reid run failed: %w", err)
	}
	return nil
}

// openConfiguredStore opens the cache named in the config, degrading to no
// cache when it cannot be opened. Jobs carrying their own db_path override
// this store inside the pipeline.
func openConfiguredStore(cfg *config.Config, log *slog.Logger) *cache.Store {
	if cfg.Cache.Path == "" {
		return nil
	}
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		log.Warn("cache unavailable, every embedding will be recomputed",
			"path", cfg.Cache.Path, "error", err)
		return nil
	}
	return store
}
