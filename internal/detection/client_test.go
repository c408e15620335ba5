package detection

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("path = %s, want /detect", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 1 {
			t.Errorf("got %d file parts, want 1", len(files))
		}
		json.NewEncoder(w).Encode(detectResponse{Detections: []Box{
			{BBox: []float64{0.1, 0.1, 0.5, 0.5}, Confidence: 0.92, Label: "stoat"},
		}})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	boxes, err := client.Detect(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 1 || boxes[0].Label != "stoat" {
		t.Errorf("got %+v", boxes)
	}
}

func TestClientDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Detect(context.Background(), []byte("x")); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
