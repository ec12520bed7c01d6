package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

type stubLoader struct {
	moves  []types.Move
	matrix [][]float32
	err    error
	calls  int
}

func (l *stubLoader) LoadCorpus(context.Context) ([]types.Move, [][]float32, error) {
	l.calls++
	if l.err != nil {
		return nil, nil, l.err
	}
	return l.moves, l.matrix, nil
}

func testCorpus() *stubLoader {
	return &stubLoader{
		moves: []types.Move{
			{MoveID: "move-a", Duration: 8},
			{MoveID: "move-b", Duration: 8},
			{MoveID: "move-c", Duration: 8},
		},
		matrix: [][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0.9, 0.1, 0, 0},
		},
	}
}

func newTestIndex(t *testing.T, loader CorpusLoader, accel Backend, ttl time.Duration) *Index {
	t.Helper()
	idx, err := NewIndex(logger.NewNop(), IndexConfig{Dim: 4, TTL: ttl}, loader, accel)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestSearchScoresNonIncreasing(t *testing.T) {
	idx := newTestIndex(t, testCorpus(), nil, time.Hour)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches: want=3 got=%d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("scores not non-increasing at %d: %v > %v", i, matches[i].Score, matches[i-1].Score)
		}
	}
	if matches[0].Move.MoveID != "move-a" {
		t.Fatalf("best match: want=move-a got=%s", matches[0].Move.MoveID)
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	loader := &stubLoader{
		moves: []types.Move{
			{MoveID: "first"},
			{MoveID: "second"},
			{MoveID: "third"},
		},
		matrix: [][]float32{
			{0, 1, 0, 0},
			{1, 0, 0, 0},
			{0, 1, 0, 0},
		},
	}
	idx := newTestIndex(t, loader, nil, time.Hour)

	matches, err := idx.Search(context.Background(), []float32{0, 1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches[0].Move.MoveID != "first" || matches[1].Move.MoveID != "third" {
		t.Fatalf("tie order: want=[first third ...] got=[%s %s %s]",
			matches[0].Move.MoveID, matches[1].Move.MoveID, matches[2].Move.MoveID)
	}
}

func TestSearchEmptyCorpusIsConfigurationError(t *testing.T) {
	idx := newTestIndex(t, &stubLoader{}, nil, time.Hour)

	_, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 3)
	if err == nil {
		t.Fatalf("expected error for empty corpus")
	}
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type: want=*types.ConfigurationError got=%T", err)
	}
}

func TestSearchDimensionMismatchIsConfigurationError(t *testing.T) {
	idx := newTestIndex(t, testCorpus(), nil, time.Hour)

	_, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type: want=*types.ConfigurationError got=%T", err)
	}
}

// faultyBackend fails every call after Build succeeds, standing in for a GPU
// fault at search time.
type faultyBackend struct {
	buildCalls  int
	searchCalls int
}

func (b *faultyBackend) Name() string { return "accel" }

func (b *faultyBackend) Build(context.Context, string, [][]float32) error {
	b.buildCalls++
	return nil
}

func (b *faultyBackend) Search(context.Context, string, []float32, int) ([]Hit, error) {
	b.searchCalls++
	return nil, fmt.Errorf("device fault")
}

func TestSearchFaultDowngradesPermanently(t *testing.T) {
	accel := &faultyBackend{}
	idx := newTestIndex(t, testCorpus(), accel, time.Hour)

	// First search hits the faulty backend, falls back to the direct scan and
	// still returns results.
	matches, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search after fault: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: want=2 got=%d", len(matches))
	}
	if accel.searchCalls != 1 {
		t.Fatalf("accel search calls: want=1 got=%d", accel.searchCalls)
	}
	if stats := idx.Stats(); !stats.Downgraded || stats.Backend != "cpu" {
		t.Fatalf("expected permanent cpu downgrade, got stats=%+v", stats)
	}

	// Subsequent searches never touch the accelerated backend again.
	if _, err := idx.Search(context.Background(), []float32{0, 1, 0, 0}, 2); err != nil {
		t.Fatalf("Search after downgrade: %v", err)
	}
	if accel.searchCalls != 1 {
		t.Fatalf("accel search calls after downgrade: want=1 got=%d", accel.searchCalls)
	}
}

type failingBuildBackend struct{}

func (failingBuildBackend) Name() string { return "accel" }
func (failingBuildBackend) Build(context.Context, string, [][]float32) error {
	return fmt.Errorf("transfer failed")
}
func (failingBuildBackend) Search(context.Context, string, []float32, int) ([]Hit, error) {
	return nil, fmt.Errorf("unreachable")
}

func TestBuildFaultDowngradesSilently(t *testing.T) {
	idx := newTestIndex(t, testCorpus(), failingBuildBackend{}, time.Hour)

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches: want=1 got=%d", len(matches))
	}
	if stats := idx.Stats(); !stats.Downgraded {
		t.Fatalf("expected downgrade after build fault, got stats=%+v", stats)
	}
}

func TestCacheTTLTriggersReload(t *testing.T) {
	loader := testCorpus()
	idx := newTestIndex(t, loader, nil, time.Nanosecond)

	if _, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if loader.calls < 2 {
		t.Fatalf("loader calls: want>=2 got=%d", loader.calls)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	loader := testCorpus()
	idx := newTestIndex(t, loader, nil, time.Hour)

	if _, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	idx.Invalidate()
	if _, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("loader calls: want=2 got=%d", loader.calls)
	}
}

// rebuildingBackend models the shared sidecar index being replaced in flight:
// its Search swaps the loader's corpus to a reversed ordering, forces a
// reload (which rebuilds this backend under a new version), then rejects the
// original version the way the HTTP client does on an echo mismatch.
type rebuildingBackend struct {
	idx      *Index
	loader   *stubLoader
	version  string
	searches int
}

func (b *rebuildingBackend) Name() string { return "accel" }

func (b *rebuildingBackend) Build(_ context.Context, version string, _ [][]float32) error {
	b.version = version
	return nil
}

func (b *rebuildingBackend) Search(ctx context.Context, version string, _ []float32, _ int) ([]Hit, error) {
	b.searches++
	if b.searches == 1 {
		b.loader.moves = []types.Move{
			{MoveID: "move-c", Duration: 8},
			{MoveID: "move-b", Duration: 8},
			{MoveID: "move-a", Duration: 8},
		}
		b.loader.matrix = [][]float32{
			{0.9, 0.1, 0, 0},
			{0, 1, 0, 0},
			{1, 0, 0, 0},
		}
		b.idx.Invalidate()
		if _, err := b.idx.CorpusSize(ctx); err != nil {
			return nil, err
		}
	}
	if version != b.version {
		return nil, fmt.Errorf("built=%s queried=%s: %w", b.version, version, ErrIndexSuperseded)
	}
	return nil, fmt.Errorf("unexpected search against fresh build")
}

func TestReloadMidSearchKeepsPinnedSnapshot(t *testing.T) {
	loader := testCorpus()
	accel := &rebuildingBackend{loader: loader}
	idx := newTestIndex(t, loader, accel, time.Hour)
	accel.idx = idx

	matches, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if matches[0].Move.MoveID != "move-a" {
		t.Fatalf("in-flight search resolved against the wrong corpus: want=move-a got=%s", matches[0].Move.MoveID)
	}
	if stats := idx.Stats(); stats.Downgraded {
		t.Fatalf("rebuild race must not downgrade the backend, got stats=%+v", stats)
	}
	if loader.calls != 2 {
		t.Fatalf("loader calls: want=2 got=%d", loader.calls)
	}

	// The swapped-in snapshot serves subsequent searches with its own build.
	if size, err := idx.CorpusSize(context.Background()); err != nil || size != 3 {
		t.Fatalf("corpus size after reload: want=3 got=%d err=%v", size, err)
	}
}

func TestCorpusRowDimensionMismatchFails(t *testing.T) {
	loader := &stubLoader{
		moves:  []types.Move{{MoveID: "bad"}},
		matrix: [][]float32{{1, 0}},
	}
	idx := newTestIndex(t, loader, nil, time.Hour)

	_, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type: want=*types.ConfigurationError got=%T (%v)", err, err)
	}
}
