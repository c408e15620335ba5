package detection

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/imaging"
	"github.com/ML-4-SocialGood/ReWildID/internal/progress"
)

// Bulk runs detection over a directory of images with a fixed pool of
// workers. Workers share nothing but the counters; each file is read,
// detected, filtered, and saved independently, so a corrupt image costs
// only itself. When a store and embedder are configured, raw backbone
// features for every kept box are cached under the raw variant so a later
// identification run can take the adapter shortcut.
type Bulk struct {
	Detector      Detector
	Embedder      embedding.RawEmbedder // optional
	Store         *cache.Store          // optional
	RawVariant    string
	Workers       int
	MinConfidence float64
	IoUThreshold  float64
	Reporter      *progress.Reporter
	Log           *slog.Logger
}

// Longest image edge sent to the detector.
const maxDetectEdge = 1920

// Summary reports the outcome of a bulk run.
type Summary struct {
	Processed int
	Failed    int
}

// Run detects animals in every image under imageDir and writes one JSON
// document per image to outDir.
func (b *Bulk) Run(ctx context.Context, imageDir, outDir string) (Summary, error) {
	files, err := listImages(imageDir)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, nil
	}

	workers := b.Workers
	if workers <= 0 {
		workers = 4
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Detecting animals"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	var summary Summary
	var done int
	var mu sync.Mutex

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := b.processImage(ctx, path, outDir)

			mu.Lock()
			if err != nil {
				summary.Failed++
				b.logger().Warn("image failed", "path", path, "error", err)
			} else {
				summary.Processed++
			}
			done++
			if b.Reporter != nil {
				b.Reporter.Report(done, len(files))
			}
			mu.Unlock()
			bar.Add(1)
		}(file)
	}

	wg.Wait()
	fmt.Fprintln(os.Stderr)

	return summary, nil
}

func (b *Bulk) processImage(ctx context.Context, path, outDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	// Downscale before upload; the detector returns normalized boxes, so
	// pixel conversion still uses the original dimensions.
	payload := data
	if resized, err := imaging.ResizeImage(data, maxDetectEdge); err == nil {
		payload = resized
	}

	boxes, err := b.Detector.Detect(ctx, payload)
	if err != nil {
		return err
	}
	kept := FilterBoxes(boxes, b.MinConfidence, b.IoUThreshold)

	// Pixel conversion happens exactly once; the saved boxes and the cache
	// keys below must agree on coordinates.
	for i := range kept {
		kept[i].BBox = ConvertNormalizedToPixel(kept[i].BBox, cfg.Width, cfg.Height)
	}

	result := ImageResult{
		ImagePath:  path,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Detections: kept,
	}
	if err := SaveResult(outDir, result); err != nil {
		return err
	}

	return b.cacheRawFeatures(ctx, path, kept)
}

// cacheRawFeatures computes and stores raw backbone features for the kept
// boxes. Failures here are logged and swallowed: the detection output is
// already written and the cache is only an accelerator.
func (b *Bulk) cacheRawFeatures(ctx context.Context, path string, boxes []Box) error {
	if b.Embedder == nil || b.Store == nil || len(boxes) == 0 {
		return nil
	}

	crops := make([]embedding.Crop, 0, len(boxes))
	cropBoxes := make([]Box, 0, len(boxes))
	for _, box := range boxes {
		data, day, err := imaging.LoadCrop(path, box.BBox)
		if err != nil {
			b.logger().Warn("skipping raw feature, crop failed", "path", path, "error", err)
			continue
		}
		crops = append(crops, embedding.Crop{Data: data, Day: day})
		cropBoxes = append(cropBoxes, box)
	}
	if len(crops) == 0 {
		return nil
	}

	vecs, err := b.Embedder.EmbedRaw(ctx, crops)
	if err != nil {
		b.logger().Warn("raw feature extraction failed", "path", path, "error", err)
		return nil
	}

	items := make([]cache.StoreItem, len(vecs))
	for i, vec := range vecs {
		items[i] = cache.StoreItem{ImageID: path, BBox: cropBoxes[i].BBox, Vector: vec}
	}
	if err := b.Store.PutBatch(ctx, items, b.RawVariant); err != nil {
		b.logger().Warn("raw feature write-back failed", "path", path, "error", err)
	}
	return nil
}

func (b *Bulk) logger() *slog.Logger {
	if b.Log != nil {
		return b.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func listImages(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return files, nil
}
