// Package imaging provides the image plumbing around the pipeline: decoding,
// pixel-box cropping, resizing, and the day/night heuristic that selects the
// adapter branch.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// jpegQuality matches the quality the detection stage writes crops with.
const jpegQuality = 85

// Crop extracts the pixel region [x1, y1, x2, y2] from an image. Coordinates
// are truncated to integers and clamped to the image bounds.
func Crop(img image.Image, bbox []float64) (image.Image, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 coordinates, got %d", len(bbox))
	}

	bounds := img.Bounds()
	x1 := clamp(int(bbox[0]), bounds.Min.X, bounds.Max.X)
	y1 := clamp(int(bbox[1]), bounds.Min.Y, bounds.Max.Y)
	x2 := clamp(int(bbox[2]), bounds.Min.X, bounds.Max.X)
	y2 := clamp(int(bbox[3]), bounds.Min.Y, bounds.Max.Y)

	if x2 <= x1 || y2 <= y1 {
		return nil, fmt.Errorf("empty crop region [%d %d %d %d]", x1, y1, x2, y2)
	}

	rect := image.Rect(0, 0, x2-x1, y2-y1)
	out := image.NewRGBA(rect)
	draw.Draw(out, rect, img, image.Pt(x1, y1), draw.Src)
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadCrop loads an image file, crops it by the pixel bounding box, and
// returns the JPEG-encoded crop together with its day/night flag.
func LoadCrop(path string, bbox []float64) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	cropped, err := Crop(img, bbox)
	if err != nil {
		return nil, false, err
	}

	day := IsDay(cropped)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), day, nil
}

// ResizeImage resizes an image to fit within maxSize (width or height) while
// keeping aspect ratio, re-encoding as JPEG.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		return buf.Bytes(), nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = int(float64(height) * float64(maxSize) / float64(width))
	} else {
		newHeight = maxSize
		newWidth = int(float64(width) * float64(maxSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
