package detection

import "sort"

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)

	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// FilterBoxes drops boxes below the confidence floor and greedily suppresses
// overlaps: boxes are walked in descending confidence order and a box is
// discarded when it overlaps an already-kept box at or above iouThreshold.
func FilterBoxes(boxes []Box, minConfidence, iouThreshold float64) []Box {
	confident := make([]Box, 0, len(boxes))
	for _, box := range boxes {
		if box.Confidence >= minConfidence {
			confident = append(confident, box)
		}
	}

	sort.SliceStable(confident, func(i, j int) bool {
		return confident[i].Confidence > confident[j].Confidence
	})

	kept := make([]Box, 0, len(confident))
	for _, box := range confident {
		overlaps := false
		for _, k := range kept {
			if ComputeIoU(box.BBox, k.BBox) >= iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, box)
		}
	}
	return kept
}

// ConvertNormalizedToPixel converts a normalized [x1, y1, x2, y2] box to
// pixel corner coordinates, truncated to whole pixels and clamped to the
// image bounds. Every pixel box that reaches the embedding cache comes
// through here, so truncation behavior is part of the cache key contract.
func ConvertNormalizedToPixel(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}

	clamp := func(v float64, limit int) float64 {
		px := float64(int(v * float64(limit)))
		if px < 0 {
			return 0
		}
		if px > float64(limit) {
			return float64(limit)
		}
		return px
	}

	return []float64{
		clamp(bbox[0], width),
		clamp(bbox[1], height),
		clamp(bbox[2], width),
		clamp(bbox[3], height),
	}
}
