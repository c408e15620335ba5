package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := solidImage(100, 100, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	cropped, err := Crop(img, []float64{10.7, 20.2, 60.9, 80.4})
	if err != nil {
		t.Fatalf("crop failed: %v", err)
	}

	bounds := cropped.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 60 {
		t.Errorf("expected 50x60 crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCropClampsToImage(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	cropped, err := Crop(img, []float64{-20, -20, 200, 200})
	if err != nil {
		t.Fatalf("crop failed: %v", err)
	}
	if cropped.Bounds().Dx() != 50 || cropped.Bounds().Dy() != 50 {
		t.Errorf("expected clamped 50x50 crop, got %v", cropped.Bounds())
	}
}

func TestCropRejectsEmptyRegion(t *testing.T) {
	img := solidImage(50, 50, color.RGBA{A: 255})

	if _, err := Crop(img, []float64{30, 30, 10, 10}); err == nil {
		t.Error("expected error for inverted bbox")
	}
	if _, err := Crop(img, []float64{10, 10, 10}); err == nil {
		t.Error("expected error for malformed bbox")
	}
}

func TestIsDay(t *testing.T) {
	tests := []struct {
		name     string
		color    color.RGBA
		expected bool
	}{
		{
			name:     "colorful daytime frame",
			color:    color.RGBA{R: 180, G: 140, B: 90, A: 255},
			expected: true,
		},
		{
			name:     "grayscale infrared frame",
			color:    color.RGBA{R: 120, G: 120, B: 120, A: 255},
			expected: false,
		},
		{
			name:     "near-gray frame below threshold",
			color:    color.RGBA{R: 121, G: 120, B: 119, A: 255},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(32, 32, tt.color)
			if got := IsDay(img); got != tt.expected {
				t.Errorf("IsDay = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsDayWrappedDiffIsNight(t *testing.T) {
	// g one above r wraps the r-g diff to 255, which the heuristic treats
	// as night rather than an extreme color cast.
	img := solidImage(32, 32, color.RGBA{R: 100, G: 101, B: 101, A: 255})
	if IsDay(img) {
		t.Error("expected wrapped diff of 255 to classify as night")
	}
}

func TestLoadCrop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")

	img := solidImage(80, 60, color.RGBA{R: 200, G: 120, B: 60, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	data, day, err := LoadCrop(path, []float64{10, 10, 50, 40})
	if err != nil {
		t.Fatalf("loadCrop failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty JPEG data")
	}
	if !day {
		t.Error("expected colorful crop to classify as day")
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("crop is not a decodable image: %v", err)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 30 {
		t.Errorf("expected 40x30 crop, got %v", decoded.Bounds())
	}
}

func TestLoadCropMissingFile(t *testing.T) {
	if _, _, err := LoadCrop("/nonexistent/frame.jpg", []float64{0, 0, 10, 10}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResizeImage(t *testing.T) {
	img := solidImage(400, 200, color.RGBA{R: 90, G: 90, B: 200, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	out, err := ResizeImage(buf.Bytes(), 100)
	if err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("resized output not decodable: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 50 {
		t.Errorf("expected 100x50, got %v", decoded.Bounds())
	}
}
