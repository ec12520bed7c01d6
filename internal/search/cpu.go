package search

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
)

type cpuBuild struct {
	version string
	matrix  [][]float32
}

// cpuBackend compares the query against every corpus row directly. This is
// the permanent fallback: it cannot fault once built, and the corpus is small
// enough that a full scan completes well under a second.
type cpuBackend struct {
	build atomic.Pointer[cpuBuild]
}

func NewCPUBackend() Backend {
	return &cpuBackend{}
}

func (b *cpuBackend) Name() string { return "cpu" }

func (b *cpuBackend) Build(_ context.Context, version string, matrix [][]float32) error {
	if version == "" {
		return fmt.Errorf("cpu backend: build version required")
	}
	if len(matrix) == 0 {
		return fmt.Errorf("cpu backend: empty corpus matrix")
	}
	b.build.Store(&cpuBuild{version: version, matrix: matrix})
	return nil
}

func (b *cpuBackend) Search(_ context.Context, version string, query []float32, k int) ([]Hit, error) {
	build := b.build.Load()
	if build == nil {
		return nil, fmt.Errorf("cpu backend: not built")
	}
	if build.version != version {
		return nil, fmt.Errorf("cpu backend: built=%s queried=%s: %w", build.version, version, ErrIndexSuperseded)
	}
	matrix := build.matrix
	if len(query) != len(matrix[0]) {
		return nil, fmt.Errorf("cpu backend: query dimension mismatch: expected=%d got=%d", len(matrix[0]), len(query))
	}
	if k <= 0 || k > len(matrix) {
		k = len(matrix)
	}

	hits := make([]Hit, len(matrix))
	for i, row := range matrix {
		hits[i] = Hit{Index: i, Score: dot(query, row)}
	}
	// Stable so tied scores keep corpus insertion order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits[:k], nil
}
