package services

import (
	"context"
	"fmt"

	"github.com/movecraft/choreo-backend/internal/embedding"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/repos"
	"github.com/movecraft/choreo-backend/internal/types"
)

// CorpusService feeds the similarity index. It reads the whole move table and
// fuses each record's embeddings through the identical combiner queries use,
// so corpus rows and query vectors live in the same space.
type CorpusService struct {
	log      *logger.Logger
	moves    repos.MoveRepo
	combiner *embedding.Combiner
}

func NewCorpusService(log *logger.Logger, moves repos.MoveRepo, combiner *embedding.Combiner) (*CorpusService, error) {
	if moves == nil || combiner == nil {
		return nil, fmt.Errorf("corpus service: missing deps")
	}
	return &CorpusService{
		log:      log.With("service", "CorpusService"),
		moves:    moves,
		combiner: combiner,
	}, nil
}

// LoadCorpus implements search.CorpusLoader. Records that fail to decode or
// fuse abort the whole load; a corrupted corpus must never silently shrink.
func (s *CorpusService) LoadCorpus(ctx context.Context) ([]types.Move, [][]float32, error) {
	records, err := s.moves.ListAll(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("list moves: %w", err)
	}

	moves := make([]types.Move, 0, len(records))
	matrix := make([][]float32, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		move, err := rec.Decode()
		if err != nil {
			return nil, nil, err
		}
		if move.Duration <= 0 {
			return nil, nil, fmt.Errorf("move %s: non-positive duration %.3f", move.MoveID, move.Duration)
		}
		row, err := s.combiner.CombineMove(move)
		if err != nil {
			return nil, nil, fmt.Errorf("move %s: %w", move.MoveID, err)
		}
		moves = append(moves, move)
		matrix = append(matrix, row)
	}

	s.log.Info("corpus loaded", "moves", len(moves))
	return moves, matrix, nil
}
