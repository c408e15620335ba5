package reid

import "math"

const unassigned = -1

// Cluster partitions the rows of a masked distance matrix into putative
// individuals. It is a greedy, order-sensitive approximation of
// single-linkage clustering with a tolerance band eps: each row joins the
// cluster of any near-tied nearest neighbor, not only the single argmin.
//
// The decision ladder is processed in strict priority per row and a later
// row's propagation overwrites earlier assignments without reconciling
// assignments that were already propagated further (last write wins). That
// can silently merge clusters; it is a known tradeoff of the algorithm, kept
// for determinism and compatibility, not a defect to repair.
//
// Callers must guarantee len(dist) >= 2. The result is a list of clusters in
// discovery order; cluster k holds the row indices assigned to it.
func Cluster(dist [][]float64, eps float64) [][]int {
	n := len(dist)
	keys := make([]int, n)
	for i := range keys {
		keys[i] = unassigned
	}

	for r := 0; r < n; r++ {
		row := dist[r]

		minDist := row[0]
		for _, v := range row[1:] {
			if v < minDist {
				minDist = v
			}
		}

		var candidates []int
		for j, v := range row {
			if math.Abs(v-minDist) <= eps {
				candidates = append(candidates, j)
			}
		}

		// Snapshot candidate keys before any assignment below.
		candidateKeys := make([]int, len(candidates))
		for i, j := range candidates {
			candidateKeys[i] = keys[j]
		}

		counter := maxKey(keys)

		switch {
		case keys[r] != unassigned:
			for _, j := range candidates {
				keys[j] = keys[r]
			}

		case allUnassigned(candidateKeys):
			keys[r] = counter + 1
			for _, j := range candidates {
				keys[j] = counter + 1
			}

		default:
			minPosKey := math.MaxInt
			for _, k := range candidateKeys {
				if k != unassigned && k < minPosKey {
					minPosKey = k
				}
			}
			keys[r] = minPosKey
			for i, j := range candidates {
				if candidateKeys[i] != minPosKey {
					keys[j] = minPosKey
				}
			}
		}
	}

	return compact(keys)
}

// compact renumbers cluster keys into sequential ids starting at 0,
// preserving first-discovered order.
func compact(keys []int) [][]int {
	minKey, maxKeyVal := keys[0], keys[0]
	for _, k := range keys[1:] {
		if k < minKey {
			minKey = k
		}
		if k > maxKeyVal {
			maxKeyVal = k
		}
	}

	var clusters [][]int
	for k := minKey; k <= maxKeyVal; k++ {
		var members []int
		for i, key := range keys {
			if key == k {
				members = append(members, i)
			}
		}
		if len(members) > 0 {
			clusters = append(clusters, members)
		}
	}
	return clusters
}

func maxKey(keys []int) int {
	m := keys[0]
	for _, k := range keys[1:] {
		if k > m {
			m = k
		}
	}
	return m
}

func allUnassigned(keys []int) bool {
	for _, k := range keys {
		if k != unassigned {
			return false
		}
	}
	return true
}
