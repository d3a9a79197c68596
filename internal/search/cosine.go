package search

import (
	"math"

	verrors "github.com/veracite/veracite/internal/errors"
)

// CosineSimilarity computes dot(a,b) / (‖a‖·‖b‖) in [-1, 1].
// A length mismatch is a hard error, never a silent zero. Zero vectors
// have no direction and score 0 against everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, verrors.DimensionMismatch(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
