package imaging

import "image"

// IsDay classifies a crop as daytime or nighttime (infrared). Night camera
// frames are grayscale, so the per-pixel channel differences collapse to
// zero. The diffs wrap modulo 256 like the original uint8 arithmetic, so a
// median of exactly 255 also counts as night (diff of -1 wrapped).
func IsDay(img image.Image) bool {
	bounds := img.Bounds()

	var histRG, histRB, histGB [256]int
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
			histRG[uint8(r8-g8)]++
			histRB[uint8(r8-b8)]++
			histGB[uint8(g8-b8)]++
			total++
		}
	}
	if total == 0 {
		return false
	}

	maxDiff := histogramMedian(histRG[:], total)
	if m := histogramMedian(histRB[:], total); m > maxDiff {
		maxDiff = m
	}
	if m := histogramMedian(histGB[:], total); m > maxDiff {
		maxDiff = m
	}

	if maxDiff < 3 || maxDiff == 255 {
		return false
	}
	return true
}

func histogramMedian(hist []int, total int) int {
	half := total / 2
	seen := 0
	for v, count := range hist {
		seen += count
		if seen > half {
			return v
		}
	}
	return 0
}
