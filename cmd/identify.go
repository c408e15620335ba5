package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/imaging"
	"github.com/ML-4-SocialGood/ReWildID/internal/logging"
	"github.com/ML-4-SocialGood/ReWildID/internal/progress"
	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <image-dir> <detections-dir>",
	Short: "Group detected animals into individuals across an image folder",
	Long: `Identify individuals from a folder of images and the detection documents a
previous detect run produced for it.

Every bounding box in the detection documents becomes one candidate crop. The
output maps individual names to image paths relative to the image folder, so
an image with two animals can appear under two individuals. Cached raw
features written by the detect stage are reused through the adapter.

Examples:
  # Group the stoats under ./trap-42 into individuals
  rewildid identify ./trap-42 ./trap-42-detections --species stoat

  # Write the groups somewhere else
  rewildid identify ./trap-42 ./trap-42-detections --output groups.json`,
	Args: cobra.ExactArgs(2),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().String("species", "", "Species tag selecting the embedding variant")
	identifyCmd.Flags().String("output", "individuals.json", "Path for the grouped output document")
	identifyCmd.Flags().Int("batch-size", 0, "Crops per inference batch (0 = config default)")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := logging.Setup(cfg.Log.Dir, cfg.Log.Level)

	if bs := mustGetInt(cmd, "batch-size"); bs > 0 {
		cfg.Extractor.BatchSize = bs
	}
	species := mustGetString(cmd, "species")
	output := mustGetString(cmd, "output")

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

	groups, err := pipeline.RunFolder(cmd.Context(), args[0], args[1], species, output)
	if err != nil {
		return fmt.Errorf("identify run failed: %w", err)
	}
	fmt.Printf("Identified %d individuals across %s\n", len(groups), args[0])
	return nil
}
