// Package detection runs animal candidate detection over camera-trap
// images: a black-box detector service returns normalized candidate boxes,
// which are filtered, converted to pixel coordinates, and saved per image.
package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultDetectorURL = "http://localhost:8094"

// Box is one candidate detection as the detector reports it.
type Box struct {
	BBox       []float64 `json:"bbox"` // normalized [x1, y1, x2, y2]
	Confidence float64   `json:"confidence"`
	Label      string    `json:"label,omitempty"`
}

// Detector returns candidate boxes for one image.
type Detector interface {
	Detect(ctx context.Context, imageData []byte) ([]Box, error)
}

// Client talks to the detector service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type detectResponse struct {
	Detections []Box `json:"detections"`
}

// Detect posts one image and returns its candidate boxes unfiltered.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]Box, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse detector response: %w", err)
	}
	return detResp.Detections, nil
}
