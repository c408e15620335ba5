package reid

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/progress"
)

// Pipeline runs one re-identification job end to end: embedding resolution
// through the cache-aware dispatcher, pairwise distances, clustering, and
// the grouped output document.
type Pipeline struct {
	Cfg          *config.Config
	Store        *cache.Store // may be nil; jobs carrying their own DBPath open per-run stores
	NewExtractor func(species string) embedding.Extractor
	LoadCrop     CropLoader
	Reporter     *progress.Reporter
	Log          *slog.Logger
}

// Run executes the job and returns the grouped individuals. The output file
// is written only when the job names one, so callers embedding the pipeline
// can consume the result directly.
func (p *Pipeline) Run(ctx context.Context, job *Job) (*Output, error) {
	log := p.logger()
	p.begin()

	store, closeStore := p.resolveStore(job)
	defer closeStore()

	species := NormalizeSpecies(job.Species)
	variant := Variant(p.Cfg.Variants.ReidPrefix, species)
	eps := p.Cfg.Variants.EpsilonFor(variant)
	log.Info("starting reid run",
		"detections", len(job.Detections),
		"species", species,
		"variant", variant,
		"epsilon", eps)

	// Trivial sizes never touch the extractor: nothing to compare.
	if len(job.Detections) == 0 {
		return p.finish(job, &Output{Individuals: []Individual{}})
	}
	if len(job.Detections) == 1 {
		out := &Output{Individuals: []Individual{
			{Name: "ID-0", DetectionIDs: []int64{job.Detections[0].DetectionID}},
		}}
		return p.finish(job, out)
	}

	p.processing()

	dispatcher := &Dispatcher{
		Store:          store,
		Extractor:      p.NewExtractor(species),
		BatchSize:      p.Cfg.Extractor.BatchSize,
		FinalVariant:   variant,
		AdapterVariant: p.Cfg.Variants.AdapterSource,
		LoadCrop:       p.LoadCrop,
		Reporter:       p.Reporter,
		Log:            log,
	}
	embeddings, indices, err := dispatcher.Embeddings(ctx, job.Detections)
	if err != nil {
		return nil, fmt.Errorf("resolving embeddings: %w", err)
	}

	ids := make([]int64, len(indices))
	for i, idx := range indices {
		ids[i] = job.Detections[idx].DetectionID
	}

	switch len(embeddings) {
	case 0:
		return p.finish(job, &Output{Individuals: []Individual{}})
	case 1:
		out := &Output{Individuals: []Individual{
			{Name: "ID-0", DetectionIDs: []int64{ids[0]}},
		}}
		return p.finish(job, out)
	}

	dist := DistanceMatrix(embeddings)
	clusters := Cluster(dist, eps)
	log.Info("clustering finished", "embeddings", len(embeddings), "individuals", len(clusters))

	return p.finish(job, FormatIndividuals(ids, clusters))
}

// resolveStore prefers a per-job database over the pipeline-wide one. When
// the job names a database that cannot be opened, the run degrades to
// always-miss; falling back to a different store than the caller asked for
// could serve stale vectors from the wrong library.
func (p *Pipeline) resolveStore(job *Job) (*cache.Store, func()) {
	if job.DBPath == "" {
		return p.Store, func() {}
	}
	store, err := cache.Open(job.DBPath)
	if err != nil {
		p.logger().Warn("cache unavailable, every embedding will be recomputed",
			"path", job.DBPath, "error", err)
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

func (p *Pipeline) finish(job *Job, out *Output) (*Output, error) {
	if job.OutputPath != "" {
		if err := out.WriteFile(job.OutputPath); err != nil {
			return nil, fmt.Errorf("writing output: %w", err)
		}
	}
	p.done()
	return out, nil
}

func (p *Pipeline) begin() {
	if p.Reporter != nil {
		p.Reporter.Begin()
	}
}

func (p *Pipeline) processing() {
	if p.Reporter != nil {
		p.Reporter.Processing()
	}
}

func (p *Pipeline) done() {
	if p.Reporter != nil {
		p.Reporter.Done()
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
}
