package embeddings

import "math"

// CosineSimilarity computes the cosine similarity of two unit vectors (their
// dot product) clipped to [0, 1]. Vectors of unequal length compare as 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}

	if dot < 0 {
		return 0
	}

	if dot > 1 {
		return 1
	}

	return dot
}

// NormalizeVector scales vec to unit length in place. A zero vector is left
// unchanged.
func NormalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// PadToTargetDimensions pads or truncates a vector to the target dimensions.
// Zero-padding does not affect the angle between vectors, so it is safe for
// cosine similarity.
func PadToTargetDimensions(vec []float32, target int) []float32 {
	if len(vec) == target {
		return vec
	}

	if len(vec) > target {
		return vec[:target]
	}

	padded := make([]float32, target)
	copy(padded, vec)

	return padded
}
