package reid

import (
	"fmt"
	"path/filepath"
)

// FormatIndividuals maps clusters back to the caller-supplied detection ids.
// Cluster member indices refer to the surviving embedding list, so ids must
// already be filtered down to the detections that produced an embedding.
func FormatIndividuals(ids []int64, clusters [][]int) *Output {
	individuals := make([]Individual, 0, len(clusters))
	for clusterID, members := range clusters {
		detectionIDs := make([]int64, 0, len(members))
		for _, idx := range members {
			detectionIDs = append(detectionIDs, ids[idx])
		}
		individuals = append(individuals, Individual{
			Name:         fmt.Sprintf("ID-%d", clusterID),
			DetectionIDs: detectionIDs,
		})
	}
	return &Output{Individuals: individuals}
}

// FormatPaths maps clusters to image paths relative to a parent directory,
// for folder-based runs where detections come from per-image documents
// rather than database rows.
func FormatPaths(paths []string, clusters [][]int, parent string) map[string][]string {
	out := make(map[string][]string, len(clusters))
	for clusterID, members := range clusters {
		name := fmt.Sprintf("ID-%d", clusterID)
		rel := make([]string, 0, len(members))
		for _, idx := range members {
			p, err := filepath.Rel(parent, paths[idx])
			if err != nil {
				p = paths[idx]
			}
			rel = append(rel, p)
		}
		out[name] = rel
	}
	return out
}
