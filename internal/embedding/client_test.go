package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/reid" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		files := r.MultipartForm.File["file"]
		if len(files) != 2 {
			t.Errorf("expected 2 file parts, got %d", len(files))
		}
		if day := r.FormValue("day"); day != "1,0" {
			t.Errorf("expected day field 1,0, got %q", day)
		}
		if species := r.FormValue("species"); species != "stoat" {
			t.Errorf("expected species stoat, got %q", species)
		}

		_ = json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
			Dim:        2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "stoat")
	crops := []Crop{
		{Data: []byte("jpeg-a"), Day: true},
		{Data: []byte("jpeg-b"), Day: false},
	}

	vecs, err := client.Embed(context.Background(), crops)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[1][0] != 0.3 {
		t.Errorf("unexpected vector content: %v", vecs[1])
	}
}

func TestClientAdapt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/adapt" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req adaptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Embeddings) != 1 || len(req.Day) != 1 {
			t.Errorf("unexpected request: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float32{{0.5, 0.6}},
			Dim:        2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "stoat")
	vecs, err := client.Adapt(context.Background(), [][]float32{{1, 2}}, []bool{true})
	if err != nil {
		t.Fatalf("adapt failed: %v", err)
	}
	if vecs[0][1] != 0.6 {
		t.Errorf("unexpected vector content: %v", vecs[0])
	}
}

func TestClientAdaptMismatchedFlags(t *testing.T) {
	client := NewClient("http://localhost:1", "stoat")
	if _, err := client.Adapt(context.Background(), [][]float32{{1}}, nil); err == nil {
		t.Error("expected error for mismatched day flags")
	}
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.Embed(context.Background(), []Crop{{Data: []byte("x")}}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestClientCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}, Dim: 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	crops := []Crop{{Data: []byte("a")}, {Data: []byte("b")}}
	if _, err := client.Embed(context.Background(), crops); err == nil {
		t.Error("expected error when extractor returns wrong count")
	}
}
