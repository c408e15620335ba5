package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rewildid",
	Short: "Camera-trap animal detection and individual re-identification",
	Long: `ReWildID processes camera-trap images: it detects animal candidates,
extracts visual embeddings through a local inference server, and groups
detections into putative individual identities.

Expensive embeddings are cached in a local SQLite database keyed by image,
bounding box, and embedding variant, so repeated runs over the same photos
skip the heavy model work.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
