package detection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ImageResult is the per-image detection document written to the output
// directory. Boxes are pixel-coordinate corners, already filtered.
type ImageResult struct {
	ImagePath  string `json:"image_path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Detections []Box  `json:"detections"`
}

// SaveResult writes one image's detections as <image-stem>.json under dir.
func SaveResult(dir string, result ImageResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	base := filepath.Base(result.ImagePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal detections: %w", err)
	}
	path := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write detections: %w", err)
	}
	return nil
}
