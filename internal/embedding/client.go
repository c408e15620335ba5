package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const defaultExtractorURL = "http://localhost:8093"

// Client talks to the inference server over HTTP. One server process keeps
// the backbone and adapters loaded; this client only moves bytes.
type Client struct {
	baseURL string
	species string
	client  *http.Client
}

// NewClient creates an extractor client for one species. The species selects
// the adapter weights on the server side.
func NewClient(baseURL, species string) *Client {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		species: species,
		client:  &http.Client{},
	}
}

// embedResponse is the response for all embedding endpoints.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dim        int         `json:"dim"`
}

// postMultipartCrops posts a batch of crops as repeated "file" parts with an
// aligned comma-separated "day" field.
func (c *Client) postMultipartCrops(ctx context.Context, endpoint string, crops []Crop) ([][]float32, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	dayFlags := make([]string, len(crops))
	for i, crop := range crops {
		part, err := writer.CreateFormFile("file", fmt.Sprintf("crop_%d.jpg", i))
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(crop.Data); err != nil {
			return nil, fmt.Errorf("failed to write crop data: %w", err)
		}
		if crop.Day {
			dayFlags[i] = "1"
		} else {
			dayFlags[i] = "0"
		}
	}
	if err := writer.WriteField("day", strings.Join(dayFlags, ",")); err != nil {
		return nil, fmt.Errorf("failed to write day field: %w", err)
	}
	if c.species != "" {
		if err := writer.WriteField("species", c.species); err != nil {
			return nil, fmt.Errorf("failed to write species field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, len(crops))
}

func (c *Client) do(req *http.Request, expected int) ([][]float32, error) {
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
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("failed to parse extractor response: %w", err)
	}
	if len(embResp.Embeddings) != expected {
		return nil, fmt.Errorf("extractor returned %d embeddings for %d inputs",
			len(embResp.Embeddings), expected)
	}
	return embResp.Embeddings, nil
}

// Embed runs the full backbone plus adapter on a batch of crops.
func (c *Client) Embed(ctx context.Context, crops []Crop) ([][]float32, error) {
	return c.postMultipartCrops(ctx, "/embed/reid", crops)
}

// EmbedRaw extracts raw backbone features without an adapter.
func (c *Client) EmbedRaw(ctx context.Context, crops []Crop) ([][]float32, error) {
	return c.postMultipartCrops(ctx, "/embed/raw", crops)
}

// adaptRequest is the JSON body for the adapter-only endpoint.
type adaptRequest struct {
	Embeddings [][]float32 `json:"embeddings"`
	Day        []bool      `json:"day"`
	Species    string      `json:"species,omitempty"`
}

// Adapt applies only the adapter transform to cached raw backbone features.
func (c *Client) Adapt(ctx context.Context, raw [][]float32, day []bool) ([][]float32, error) {
	if len(raw) != len(day) {
		return nil, fmt.Errorf("got %d vectors but %d day flags", len(raw), len(day))
	}

	payload, err := json.Marshal(adaptRequest{Embeddings: raw, Day: day, Species: c.species})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal adapt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/adapt", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(payload)))

	return c.do(req, len(raw))
}
