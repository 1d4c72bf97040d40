package recognition

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrDimensionMismatch reports embeddings of differing lengths. Embedding
// length is fixed at enrollment time; a mismatch means a corrupt enrollment
// entry or a misconfigured extraction model.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedding is a fixed-length real vector produced by the face model.
type Embedding []float64

// Frame is an opaque captured camera frame handed to the extractor. The
// engine never inspects pixel data.
type Frame struct {
	Data       []byte
	CapturedAt time.Time
}

// BoundingBox locates a detected face within a frame.
type BoundingBox struct {
	X, Y, W, H int
}

// Detection is one face found in a frame.
type Detection struct {
	Embedding Embedding
	Box       BoundingBox
}

// Cosine returns the cosine similarity between two embeddings.
// Returns ErrDimensionMismatch when lengths differ and an error when either
// vector has zero norm (similarity undefined).
func Cosine(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, errors.New("zero-norm embedding")
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
