package reid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ImageID is the opaque, stable identifier of a source image. Callers supply
// either a JSON number (database id) or a string; both decode to the same
// canonical form.
type ImageID string

func (id *ImageID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ImageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ImageID(n.String())
		return nil
	}
	return fmt.Errorf("image_id must be a string or number, got %s", string(b))
}

// Detection is one animal candidate to identify.
type Detection struct {
	DetectionID int64     `json:"detection_id"`
	ImagePath   string    `json:"image_path"`
	BBox        []float64 `json:"bbox"` // [x1, y1, x2, y2] pixel coordinates
	ImageID     ImageID   `json:"image_id,omitempty"`
}

// Job is the input document for a cache-integrated identification run.
type Job struct {
	Detections []Detection `json:"detections"`
	OutputPath string      `json:"output_path"`
	DBPath     string      `json:"db_path,omitempty"`
	Species    string      `json:"species,omitempty"`
}

// ParseJob decodes and validates a job document.
func ParseJob(r io.Reader) (*Job, error) {
	var job Job
	dec := json.NewDecoder(r)
	if err := dec.Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to parse job document: %w", err)
	}
	for i, det := range job.Detections {
		if len(det.BBox) != 4 {
			return nil, fmt.Errorf("detection %d: bbox must have 4 coordinates, got %d", i, len(det.BBox))
		}
	}
	return &job, nil
}

// LoadJob reads a job document from a file.
func LoadJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job file: %w", err)
	}
	defer f.Close()
	return ParseJob(f)
}

// Individual is one discovered identity group in the job output.
type Individual struct {
	Name         string  `json:"name"`
	DetectionIDs []int64 `json:"detection_ids"`
}

// Output is the job result document.
type Output struct {
	Individuals []Individual `json:"individuals"`
}

// WriteFile writes the output document to a path, pretty-printed the way the
// downstream consumer expects.
func (o *Output) WriteFile(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
