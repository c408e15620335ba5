package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/gallery"
	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Search cached embeddings",
}

var gallerySimilarCmd = &cobra.Command{
	Use:   "similar <image-id> <x1,y1,x2,y2>",
	Short: "Find the cached crops most similar to a detection",
	Long: `Find the nearest cached embeddings to one detection's embedding.

The query crop must already be cached: pass the image id and the pixel
bounding box it was cached under. Searches within one species variant.

Examples:
  rewildid gallery similar 42 120,80,360,300 --species stoat --db embeddings.db
  rewildid gallery similar cam3-0017 0,0,640,480 --species stoat -k 10`,
	Args: cobra.ExactArgs(2),
	RunE: runGallerySimilar,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.AddCommand(gallerySimilarCmd)

	gallerySimilarCmd.Flags().String("db", "", "Cache database path (defaults to REWILDID_CACHE_PATH)")
	gallerySimilarCmd.Flags().String("species", "", "Species tag selecting the embedding variant")
	gallerySimilarCmd.Flags().IntP("neighbors", "k", 5, "Number of neighbors to return")
}

func runGallerySimilar(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	path := mustGetString(cmd, "db")
	if path == "" {
		path = cfg.Cache.Path
	}
	if path == "" {
		return errors.New("no cache database: pass --db or set REWILDID_CACHE_PATH")
	}

	bbox, err := parseBBox(args[1])
	if err != nil {
		return err
	}

	store, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	variant := reid.Variant(cfg.Variants.ReidPrefix, mustGetString(cmd, "species"))
	query, err := store.Get(cmd.Context(), args[0], bbox, variant)
	if err != nil {
		return err
	}
	if query == nil {
		return fmt.Errorf("no cached %s embedding for image %s at %s", variant, args[0], args[1])
	}

	idx, err := gallery.Build(cmd.Context(), store, variant)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	fmt.Printf("Searching %d cached %s crops\n", idx.Count(), variant)

	k := mustGetInt(cmd, "neighbors")
	// Ask for one extra so the query crop itself can be skipped.
	neighbors, err := idx.Nearest(query, k+1)
	if err != nil {
		return err
	}

	queryHash := cache.BBoxHash(bbox)
	shown := 0
	for _, n := range neighbors {
		if n.ImageID == args[0] && n.BBoxHash == queryHash {
			continue
		}
		fmt.Printf("%-24s %-20s %.6f\n", n.ImageID, n.BBoxHash, n.Distance)
		shown++
		if shown == k {
			break
		}
	}
	if shown == 0 {
		fmt.Println("No other cached crops in this variant.")
	}
	return nil
}

func parseBBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be x1,y1,x2,y2, got %q", s)
	}
	bbox := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", part, err)
		}
		bbox[i] = v
	}
	return bbox, nil
}
