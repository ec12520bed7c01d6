package search

import (
	"context"
	"errors"
	"math"
)

// Hit is one scored corpus row. Index refers to corpus insertion order.
type Hit struct {
	Index int
	Score float64
}

// Backend is the exact nearest-neighbor search contract. Two implementations
// exist: the in-process CPU backend and the accelerated sidecar. Build
// registers the full normalized corpus under a version tag, and Search must
// present the same tag; hit indices are only meaningful against the corpus
// ordering they were built from, so a tag mismatch is rejected with
// ErrIndexSuperseded instead of answering from a different build.
type Backend interface {
	Name() string
	Build(ctx context.Context, version string, matrix [][]float32) error
	Search(ctx context.Context, version string, query []float32, k int) ([]Hit, error)
}

// ErrIndexSuperseded reports that the backend's index was rebuilt for a newer
// corpus snapshot than the one the caller searched with. It is not a backend
// fault; the caller answers from its own snapshot instead.
var ErrIndexSuperseded = errors.New("search index superseded by a newer corpus build")

// l2Normalize returns a unit-norm copy of v. Zero vectors are returned as-is.
func l2Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
