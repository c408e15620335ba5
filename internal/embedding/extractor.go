// Package embedding defines the contract to the inference server that turns
// animal crops into feature vectors, and the small amount of vector math the
// pipeline needs around it. The neural models themselves are opaque: image
// bytes in, fixed-length float vector out.
package embedding

import "context"

// Crop is one animal image crop ready for feature extraction.
type Crop struct {
	Data []byte // JPEG-encoded crop
	Day  bool   // day/night flag, selects the adapter branch
}

// Extractor produces final re-identification embeddings. Embed runs the full
// backbone plus adapter; Adapt applies only the adapter to already-computed
// raw backbone features and must be materially cheaper.
type Extractor interface {
	Embed(ctx context.Context, crops []Crop) ([][]float32, error)
	Adapt(ctx context.Context, raw [][]float32, day []bool) ([][]float32, error)
}

// RawEmbedder produces raw backbone features (the shared, species-agnostic
// variant cached by the detection stage).
type RawEmbedder interface {
	EmbedRaw(ctx context.Context, crops []Crop) ([][]float32, error)
}
