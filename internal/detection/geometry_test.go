package detection

import (
	"math"
	"reflect"
	"testing"
)

func TestComputeIoU(t *testing.T) {
	tests := []struct {
		name     string
		bbox1    []float64
		bbox2    []float64
		expected float64
	}{
		{
			name:     "identical boxes",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{0, 0, 10, 10},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{20, 20, 30, 30},
			expected: 0,
		},
		{
			name:     "partial overlap",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{5, 5, 15, 15},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "contained box",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{2, 2, 8, 8},
			expected: 36.0 / 100.0,
		},
		{
			name:     "invalid bbox",
			bbox1:    []float64{0, 0, 10},
			bbox2:    []float64{0, 0, 10, 10},
			expected: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeIoU(tt.bbox1, tt.bbox2)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ComputeIoU() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFilterBoxes(t *testing.T) {
	boxes := []Box{
		{BBox: []float64{0, 0, 10, 10}, Confidence: 0.9},
		{BBox: []float64{1, 1, 11, 11}, Confidence: 0.8},  // heavy overlap with the first
		{BBox: []float64{50, 50, 60, 60}, Confidence: 0.7},
		{BBox: []float64{0, 0, 5, 5}, Confidence: 0.1}, // below floor
	}

	kept := FilterBoxes(boxes, 0.3, 0.3)

	if len(kept) != 2 {
		t.Fatalf("kept %d boxes, want 2: %+v", len(kept), kept)
	}
	if kept[0].Confidence != 0.9 || kept[1].Confidence != 0.7 {
		t.Errorf("wrong survivors: %+v", kept)
	}
}

func TestFilterBoxesKeepsLightOverlap(t *testing.T) {
	boxes := []Box{
		{BBox: []float64{0, 0, 10, 10}, Confidence: 0.9},
		{BBox: []float64{9, 9, 19, 19}, Confidence: 0.8}, // IoU 1/199, far below 0.3
	}
	if kept := FilterBoxes(boxes, 0.3, 0.3); len(kept) != 2 {
		t.Errorf("kept %d boxes, want 2", len(kept))
	}
}

func TestConvertNormalizedToPixel(t *testing.T) {
	tests := []struct {
		name   string
		bbox   []float64
		w, h   int
		want   []float64
	}{
		{
			name: "truncates not rounds",
			bbox: []float64{0.1, 0.2, 0.5, 0.999},
			w:    101, h: 77,
			// 0.1*101=10.1 -> 10, 0.2*77=15.4 -> 15, 0.5*101=50.5 -> 50, 0.999*77=76.9 -> 76
			want: []float64{10, 15, 50, 76},
		},
		{
			name: "clamps out of range",
			bbox: []float64{-0.1, 0, 1.2, 1.0},
			w:    100, h: 100,
			want: []float64{0, 0, 100, 100},
		},
		{
			name: "invalid passthrough",
			bbox: []float64{0.1, 0.2},
			w:    100, h: 100,
			want: []float64{0.1, 0.2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertNormalizedToPixel(tt.bbox, tt.w, tt.h)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ConvertNormalizedToPixel() = %v, want %v", got, tt.want)
			}
		})
	}
}
