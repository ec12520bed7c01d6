package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

type MoveRepo interface {
	// ListAll returns the full corpus in stable insertion order.
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.MoveRecord, error)
	Create(ctx context.Context, tx *gorm.DB, moves []*types.MoveRecord) ([]*types.MoveRecord, error)
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
}

type moveRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMoveRepo(db *gorm.DB, baseLog *logger.Logger) MoveRepo {
	return &moveRepo{db: db, log: baseLog.With("repo", "MoveRepo")}
}

func (r *moveRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.MoveRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.MoveRecord
	if err := transaction.WithContext(ctx).
		Order("created_at ASC, move_id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moveRepo) Create(ctx context.Context, tx *gorm.DB, moves []*types.MoveRecord) ([]*types.MoveRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(moves) == 0 {
		return []*types.MoveRecord{}, nil
	}

	// Embedding columns are large, keep batches small.
	const batchSize = 100

	if err := transaction.WithContext(ctx).CreateInBatches(moves, batchSize).Error; err != nil {
		return nil, err
	}
	return moves, nil
}

func (r *moveRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).Model(&types.MoveRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
