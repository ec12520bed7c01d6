package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/search"
	"github.com/movecraft/choreo-backend/internal/types"
)

type stubLoader struct {
	moves  []types.Move
	matrix [][]float32
}

func (l *stubLoader) LoadCorpus(context.Context) ([]types.Move, [][]float32, error) {
	return l.moves, l.matrix, nil
}

func newTestMatcher(t *testing.T, loader search.CorpusLoader) *Matcher {
	t.Helper()
	idx, err := search.NewIndex(logger.NewNop(), search.IndexConfig{Dim: 4, TTL: time.Hour}, loader, nil)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return New(logger.NewNop(), idx)
}

func beginnerCorpus() *stubLoader {
	return &stubLoader{
		moves: []types.Move{
			{MoveID: "basic-step", Difficulty: types.DifficultyBeginner, EnergyLevel: types.EnergyLow, Style: types.StylePlayful, Duration: 8},
			{MoveID: "side-sway", Difficulty: types.DifficultyBeginner, EnergyLevel: types.EnergyMedium, Style: types.StyleRomantic, Duration: 8},
			{MoveID: "turn-combo", Difficulty: types.DifficultyIntermediate, EnergyLevel: types.EnergyHigh, Style: types.StyleEnergetic, Duration: 8},
		},
		matrix: [][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
	}
}

func TestMatchExactFilterShortCircuits(t *testing.T) {
	m := newTestMatcher(t, beginnerCorpus())

	results, err := m.Match(context.Background(), []float32{1, 0, 0, 0}, types.SearchFilter{
		Difficulty:  types.DifficultyBeginner,
		EnergyLevel: types.EnergyLow,
		Style:       types.StylePlayful,
	}, 5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results: want=1 got=%d", len(results))
	}
	if results[0].MoveID != "basic-step" {
		t.Fatalf("move: want=basic-step got=%s", results[0].MoveID)
	}
}

func TestMatchRelaxesOverConstrainedFilter(t *testing.T) {
	m := newTestMatcher(t, beginnerCorpus())

	// No move is advanced/high/romantic; the ladder must still return
	// something because the corpus is non-empty.
	results, err := m.Match(context.Background(), []float32{1, 0, 0, 0}, types.SearchFilter{
		Difficulty:  types.DifficultyAdvanced,
		EnergyLevel: types.EnergyHigh,
		Style:       types.StyleRomantic,
	}, 5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("ladder returned empty results for non-empty corpus")
	}
}

func TestMatchIntermediateRungKeepsDifficulty(t *testing.T) {
	m := newTestMatcher(t, beginnerCorpus())

	// difficulty+style matches side-sway only after energy is dropped.
	results, err := m.Match(context.Background(), []float32{1, 0, 0, 0}, types.SearchFilter{
		Difficulty:  types.DifficultyBeginner,
		EnergyLevel: types.EnergyHigh,
		Style:       types.StyleRomantic,
	}, 5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 1 || results[0].MoveID != "side-sway" {
		t.Fatalf("results: want=[side-sway] got=%+v", results)
	}
}

func TestMatchScoresNonIncreasing(t *testing.T) {
	m := newTestMatcher(t, beginnerCorpus())

	results, err := m.Match(context.Background(), []float32{0.8, 0.5, 0.2, 0}, types.SearchFilter{}, 3)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("scores not non-increasing at %d", i)
		}
	}
}

func TestMatchEmptyCorpusFailsHard(t *testing.T) {
	m := newTestMatcher(t, &stubLoader{})

	_, err := m.Match(context.Background(), []float32{1, 0, 0, 0}, types.SearchFilter{}, 3)
	if err == nil {
		t.Fatalf("expected error for empty corpus")
	}
	// The index rejects an empty corpus at build time as a configuration
	// fault before the ladder can even run.
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type: want=*types.ConfigurationError got=%T", err)
	}
}

func TestMatchTopKBoundsResults(t *testing.T) {
	m := newTestMatcher(t, beginnerCorpus())

	results, err := m.Match(context.Background(), []float32{1, 1, 1, 0}, types.SearchFilter{}, 2)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: want=2 got=%d", len(results))
	}
}
