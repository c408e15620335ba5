// Package gallery provides approximate nearest-neighbor search over the
// embedding cache, for finding the most similar cached crops to a query
// detection.
package gallery

import (
	"context"
	"errors"

	"github.com/coder/hnsw"

	"github.com/ML-4-SocialGood/ReWildID/internal/cache"
)

const maxNeighbors = 16

// Neighbor is one search hit: the cached crop's key parts and its cosine
// distance to the query.
type Neighbor struct {
	ImageID  string
	BBoxHash string
	Distance float64
}

// Index wraps an HNSW graph over one embedding variant. Node keys are the
// store's composite cache keys, so two crops of the same image stay
// distinct. The index is read-only after Build; rebuild to pick up new
// cache rows.
type Index struct {
	graph   *hnsw.Graph[string]
	records map[string]cache.Record
}

// Build loads every embedding of a variant from the store and indexes it.
func Build(ctx context.Context, store *cache.Store, variant string) (*Index, error) {
	records, err := store.List(ctx, variant)
	if err != nil {
		return nil, err
	}

	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance

	idx := &Index{
		graph:   g,
		records: make(map[string]cache.Record, len(records)),
	}
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			continue
		}
		key := rec.ImageID + ":" + rec.BBoxHash
		g.Add(hnsw.MakeNode(key, rec.Vector))
		idx.records[key] = rec
	}
	return idx, nil
}

// Nearest returns the k closest indexed crops to the query vector.
func (x *Index) Nearest(query []float32, k int) ([]Neighbor, error) {
	if len(x.records) == 0 {
		return nil, errors.New("index is empty")
	}

	nodes := x.graph.Search(query, k)
	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		rec, ok := x.records[n.Key]
		if !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ImageID:  rec.ImageID,
			BBoxHash: rec.BBoxHash,
			Distance: float64(hnsw.CosineDistance(query, n.Value)),
		})
	}
	return neighbors, nil
}

// Count returns the number of indexed embeddings.
func (x *Index) Count() int {
	return len(x.records)
}
