package gallery

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	ctx := context.Background()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	vectors := map[string][]float32{
		"img-a": {1, 0, 0},
		"img-b": {0.9, 0.1, 0},
		"img-c": {0, 0, 1},
	}
	for id, vec := range vectors {
		if err := store.Put(ctx, id, []float64{0, 0, 10, 10}, "dinov3_reid_stoat", vec); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := Build(ctx, store, "dinov3_reid_stoat")
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestIndexNearest(t *testing.T) {
	idx := buildTestIndex(t)

	if idx.Count() != 3 {
		t.Fatalf("indexed %d records, want 3", idx.Count())
	}

	neighbors, err := idx.Nearest([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(neighbors))
	}
	if neighbors[0].ImageID != "img-a" {
		t.Errorf("closest = %s, want img-a", neighbors[0].ImageID)
	}
	if neighbors[1].ImageID != "img-b" {
		t.Errorf("second = %s, want img-b", neighbors[1].ImageID)
	}
	if neighbors[0].Distance > neighbors[1].Distance {
		t.Errorf("distances out of order: %v", neighbors)
	}
}

func TestIndexEmpty(t *testing.T) {
	ctx := context.Background()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	idx, err := Build(ctx, store, "dinov3_reid_stoat")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Nearest([]float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error searching an empty index")
	}
}
