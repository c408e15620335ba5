package reid

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ML-4-SocialGood/ReWildID/internal/detection"
)

// RunFolder identifies individuals across a directory of images using the
// per-image detection documents a previous detect run wrote. Where Run
// groups database detection ids, this mode groups image paths relative to
// imageDir, one entry per detected box. Image paths double as cache image
// ids, the same keying the detect stage uses for its raw-feature
// write-back, so the adapter tier applies here too.
func (p *Pipeline) RunFolder(ctx context.Context, imageDir, jsonDir, species, outputPath string) (map[string][]string, error) {
	log := p.logger()
	p.begin()

	detections, paths, err := loadFolderDetections(jsonDir)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeSpecies(species)
	variant := Variant(p.Cfg.Variants.ReidPrefix, normalized)
	eps := p.Cfg.Variants.EpsilonFor(variant)
	log.Info("starting folder reid run",
		"detections", len(detections),
		"species", normalized,
		"variant", variant,
		"epsilon", eps)

	if len(detections) == 0 {
		return p.finishFolder(outputPath, map[string][]string{})
	}
	if len(detections) == 1 {
		return p.finishFolder(outputPath, FormatPaths(paths, [][]int{{0}}, imageDir))
	}

	p.processing()

	dispatcher := &Dispatcher{
		Store:          p.Store,
		Extractor:      p.NewExtractor(normalized),
		BatchSize:      p.Cfg.Extractor.BatchSize,
		FinalVariant:   variant,
		AdapterVariant: p.Cfg.Variants.AdapterSource,
		LoadCrop:       p.LoadCrop,
		Reporter:       p.Reporter,
		Log:            log,
	}
	embeddings, indices, err := dispatcher.Embeddings(ctx, detections)
	if err != nil {
		return nil, fmt.Errorf("resolving embeddings: %w", err)
	}

	surviving := make([]string, len(indices))
	for i, idx := range indices {
		surviving[i] = paths[idx]
	}

	var groups map[string][]string
	switch len(embeddings) {
	case 0:
		groups = map[string][]string{}
	case 1:
		groups = FormatPaths(surviving, [][]int{{0}}, imageDir)
	default:
		dist := DistanceMatrix(embeddings)
		clusters := Cluster(dist, eps)
		log.Info("clustering finished", "embeddings", len(embeddings), "individuals", len(clusters))
		groups = FormatPaths(surviving, clusters, imageDir)
	}
	return p.finishFolder(outputPath, groups)
}

// loadFolderDetections flattens every box of every detection document into
// one detection list, with a parallel path table for output labeling. A box
// appears once per document entry, so an image with three animals
// contributes three detections sharing one path.
func loadFolderDetections(jsonDir string) ([]Detection, []string, error) {
	entries, err := os.ReadDir(jsonDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read detections directory: %w", err)
	}

	var detections []Detection
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(jsonDir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var doc detection.ImageResult
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		for _, box := range doc.Detections {
			detections = append(detections, Detection{
				ImagePath: doc.ImagePath,
				BBox:      box.BBox,
				ImageID:   ImageID(doc.ImagePath),
			})
			paths = append(paths, doc.ImagePath)
		}
	}
	return detections, paths, nil
}

func (p *Pipeline) finishFolder(path string, groups map[string][]string) (map[string][]string, error) {
	if path != "" {
		data, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal groups: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write groups: %w", err)
		}
	}
	p.done()
	return groups, nil
}
