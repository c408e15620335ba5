package reid

import (
	"math"

	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
)

// DistanceMatrix builds the pairwise cosine distance matrix over a set of
// embeddings and applies the self-exclusion rule. Rows are normalized first,
// so D[i][j] = 1 - cos(e_i, e_j) exactly.
//
// Self-exclusion masks each row's minimum value with +Inf, not the diagonal
// index: the self-pair distance of 0 is normally the row minimum, but when
// two crops produce near-identical embeddings the mask may land on the
// duplicate instead. That coarseness is deliberate and downstream clustering
// depends on it, so the diagonal is never special-cased.
func DistanceMatrix(embeddings [][]float32) [][]float64 {
	normalized := embedding.NormalizeAll(embeddings)

	n := len(normalized)
	dist := make([][]float64, n)
	for i := range dist {
		row := make([]float64, n)
		for j := range row {
			row[j] = 1 - embedding.Dot(normalized[i], normalized[j])
		}
		dist[i] = row
	}

	for _, row := range dist {
		// First occurrence wins on ties.
		minIdx := 0
		for j := 1; j < len(row); j++ {
			if row[j] < row[minIdx] {
				minIdx = j
			}
		}
		row[minIdx] = math.Inf(1)
	}

	return dist
}
