package reid

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/progress"
)

// CropLoader loads an image file, crops it by a pixel bounding box, and
// returns the JPEG crop with its day/night flag.
type CropLoader func(path string, bbox []float64) ([]byte, bool, error)

// Dispatcher resolves one final-variant embedding per detection with as
// little model work as possible. Detections fall into exactly one of three
// tiers, checked in strict priority order:
//
//  1. fully cached: a final-variant record exists, no model call at all
//  2. adapter only: a cached intermediate feature is pushed through the
//     lightweight adapter, skipping the heavy backbone
//  3. full computation: backbone plus adapter from the source crop
//
// Batches never mix tiers. Results are reassembled in original detection
// order via explicit index bookkeeping, never by relying on batch ordering.
type Dispatcher struct {
	Store          *cache.Store // nil degrades to always-miss
	Extractor      embedding.Extractor
	BatchSize      int
	FinalVariant   string
	AdapterVariant string // intermediate variant consumed by tier 2; "" disables the tier
	LoadCrop       CropLoader
	Reporter       *progress.Reporter
	Log            *slog.Logger
}

type tierItem struct {
	idx int // index into the caller's detection slice
	det Detection
	raw []float32 // cached intermediate, tier 2 only
}

// Embeddings returns the final embeddings for the detections that survived,
// in original order, along with each survivor's original index. Detections
// whose image cannot be loaded are dropped from both slices. Cache read and
// write errors propagate: after a successful open they indicate corruption
// that needs operator attention, not a condition to paper over.
func (d *Dispatcher) Embeddings(ctx context.Context, detections []Detection) ([][]float32, []int, error) {
	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}

	cachedFinal := make(map[int][]float32)
	computed := make(map[int][]float32)
	dropped := make(map[int]bool)
	var adapterItems, fullItems []tierItem

	for i, det := range detections {
		if d.Store != nil && det.ImageID != "" {
			vec, err := d.Store.Get(ctx, string(det.ImageID), det.BBox, d.FinalVariant)
			if err != nil {
				return nil, nil, err
			}
			if vec != nil {
				cachedFinal[i] = vec
				continue
			}

			if d.AdapterVariant != "" {
				raw, err := d.Store.Get(ctx, string(det.ImageID), det.BBox, d.AdapterVariant)
				if err != nil {
					return nil, nil, err
				}
				if raw != nil {
					adapterItems = append(adapterItems, tierItem{idx: i, det: det, raw: raw})
					continue
				}
			}
		}
		fullItems = append(fullItems, tierItem{idx: i, det: det})
	}

	d.logger().Info("cache status",
		"cached", len(cachedFinal),
		"adapter_only", len(adapterItems),
		"full_model", len(fullItems))

	total := len(adapterItems) + len(fullItems)
	done := 0

	for start := 0; start < len(adapterItems); start += batchSize {
		batch := adapterItems[start:min(start+batchSize, len(adapterItems))]
		if err := d.runAdapterBatch(ctx, batch, computed); err != nil {
			return nil, nil, err
		}
		done += len(batch)
		d.report(done, total)
	}

	for start := 0; start < len(fullItems); start += batchSize {
		batch := fullItems[start:min(start+batchSize, len(fullItems))]
		if err := d.runFullBatch(ctx, batch, computed, dropped); err != nil {
			return nil, nil, err
		}
		done += len(batch)
		d.report(done, total)
	}

	embeddings := make([][]float32, 0, len(detections))
	indices := make([]int, 0, len(detections))
	for i := range detections {
		if dropped[i] {
			continue
		}
		var vec []float32
		if v, ok := cachedFinal[i]; ok {
			vec = v
		} else if v, ok := computed[i]; ok {
			vec = v
		} else {
			continue
		}
		embeddings = append(embeddings, vec)
		indices = append(indices, i)
	}
	return embeddings, indices, nil
}

// runAdapterBatch pushes cached intermediate features through the adapter.
// The crop is still loaded once per item for its day/night flag; a load
// failure here only degrades the flag to day, it does not drop the item.
func (d *Dispatcher) runAdapterBatch(ctx context.Context, batch []tierItem, computed map[int][]float32) error {
	raw := make([][]float32, len(batch))
	day := make([]bool, len(batch))
	for i, item := range batch {
		raw[i] = item.raw
		day[i] = true
		if d.LoadCrop != nil {
			if _, isDay, err := d.LoadCrop(item.det.ImagePath, item.det.BBox); err == nil {
				day[i] = isDay
			}
		}
	}

	vecs, err := d.Extractor.Adapt(ctx, raw, day)
	if err != nil {
		return err
	}

	var toStore []cache.StoreItem
	for i, item := range batch {
		computed[item.idx] = vecs[i]
		if d.Store != nil && item.det.ImageID != "" {
			toStore = append(toStore, cache.StoreItem{
				ImageID: string(item.det.ImageID),
				BBox:    item.det.BBox,
				Vector:  vecs[i],
			})
		}
	}
	return d.writeBack(ctx, toStore)
}

// runFullBatch loads, crops, and runs the full model. Items whose image
// fails to load are dropped and the rest of the batch continues.
func (d *Dispatcher) runFullBatch(ctx context.Context, batch []tierItem, computed map[int][]float32, dropped map[int]bool) error {
	crops := make([]embedding.Crop, 0, len(batch))
	loaded := make([]tierItem, 0, len(batch))
	for _, item := range batch {
		data, day, err := d.LoadCrop(item.det.ImagePath, item.det.BBox)
		if err != nil {
			d.logger().Warn("dropping detection, failed to load crop",
				"path", item.det.ImagePath, "error", err)
			dropped[item.idx] = true
			continue
		}
		crops = append(crops, embedding.Crop{Data: data, Day: day})
		loaded = append(loaded, item)
	}
	if len(crops) == 0 {
		return nil
	}

	vecs, err := d.Extractor.Embed(ctx, crops)
	if err != nil {
		return err
	}

	var toStore []cache.StoreItem
	for i, item := range loaded {
		computed[item.idx] = vecs[i]
		if d.Store != nil && item.det.ImageID != "" {
			toStore = append(toStore, cache.StoreItem{
				ImageID: string(item.det.ImageID),
				BBox:    item.det.BBox,
				Vector:  vecs[i],
			})
		}
	}
	return d.writeBack(ctx, toStore)
}

func (d *Dispatcher) writeBack(ctx context.Context, items []cache.StoreItem) error {
	if d.Store == nil || len(items) == 0 {
		return nil
	}
	return d.Store.PutBatch(ctx, items, d.FinalVariant)
}

func (d *Dispatcher) report(done, total int) {
	if d.Reporter != nil {
		d.Reporter.Report(done, total)
	}
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}
