package cache

import "fmt"

// BBoxHash converts a bounding box [x1, y1, x2, y2] to its cache hash string.
// Coordinates are truncated to integers before formatting, so boxes that
// round to the same integer pixels collide on purpose: pipeline stages that
// recompute boxes independently drift by sub-pixel amounts and must still hit
// the same cache row. Callers must pass pixel coordinates, never normalized
// ones, or the cache silently fragments.
func BBoxHash(bbox []float64) string {
	return fmt.Sprintf("%d_%d_%d_%d",
		int(bbox[0]), int(bbox[1]), int(bbox[2]), int(bbox[3]))
}

// Key builds the composite lookup key used by GetBatch results.
func Key(imageID string, bbox []float64) string {
	return imageID + ":" + BBoxHash(bbox)
}
