package embedding

import "math"

// normEpsilon floors the divisor so degenerate all-zero vectors normalize to
// zero instead of NaN. Matches the stabilization used when the models were
// trained.
const normEpsilon = 1e-6

// Normalize returns the L2-normalized copy of a vector.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < normEpsilon {
		norm = normEpsilon
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// NormalizeAll normalizes every row of an embedding matrix.
func NormalizeAll(vecs [][]float32) [][]float32 {
	out := make([][]float32, len(vecs))
	for i, vec := range vecs {
		out[i] = Normalize(vec)
	}
	return out
}

// Dot computes the inner product of two equal-length vectors in float64.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
