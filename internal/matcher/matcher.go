package matcher

import (
	"context"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/search"
	"github.com/movecraft/choreo-backend/internal/types"
)

// overFetchFactor trades a few redundant comparisons for enough candidates to
// survive client-side metadata filtering.
const overFetchFactor = 5

// Matcher queries the similarity index with over-fetch and walks the filter
// relaxation ladder until a step yields at least one candidate.
type Matcher struct {
	log   *logger.Logger
	index *search.Index
}

func New(log *logger.Logger, index *search.Index) *Matcher {
	return &Matcher{
		log:   log.With("service", "MoveMatcher"),
		index: index,
	}
}

// ladder returns the deterministic relaxation order: full filter, drop
// energy, drop style, then pure semantic ranking.
func ladder(f types.SearchFilter) []types.SearchFilter {
	return []types.SearchFilter{
		{Difficulty: f.Difficulty, EnergyLevel: f.EnergyLevel, Style: f.Style},
		{Difficulty: f.Difficulty, Style: f.Style},
		{Difficulty: f.Difficulty},
		{},
	}
}

// Match returns up to topK moves ranked by similarity. It never returns an
// empty result while the corpus holds any data: an over-constrained filter is
// relaxed step by step, and only a fully empty corpus yields
// NoCandidatesError.
func (m *Matcher) Match(ctx context.Context, query []float32, filter types.SearchFilter, topK int) ([]types.MatchResult, error) {
	if topK <= 0 {
		topK = 10
	}

	corpusSize, err := m.index.CorpusSize(ctx)
	if err != nil {
		return nil, err
	}
	fetchK := topK * overFetchFactor
	if fetchK > corpusSize {
		fetchK = corpusSize
	}

	for step, f := range ladder(filter) {
		matches, err := m.index.Search(ctx, query, fetchK)
		if err != nil {
			return nil, err
		}
		results := make([]types.MatchResult, 0, topK)
		for _, match := range matches {
			if !f.Matches(match.Move) {
				continue
			}
			results = append(results, types.MatchResult{
				MoveID: match.Move.MoveID,
				Score:  match.Score,
				Move:   match.Move,
			})
			if len(results) == topK {
				break
			}
		}
		if len(results) > 0 {
			if step > 0 {
				m.log.Info("filter ladder relaxed", "step", step, "candidates", len(results))
			}
			return results, nil
		}
	}

	return nil, &types.NoCandidatesError{CorpusSize: corpusSize}
}
