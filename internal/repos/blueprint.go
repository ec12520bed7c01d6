package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/types"
)

type BlueprintRepo interface {
	Save(ctx context.Context, tx *gorm.DB, doc *types.BlueprintDocument) (*types.BlueprintDocument, error)
	GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.BlueprintDocument, error)
}

type blueprintRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlueprintRepo(db *gorm.DB, baseLog *logger.Logger) BlueprintRepo {
	return &blueprintRepo{db: db, log: baseLog.With("repo", "BlueprintRepo")}
}

func (r *blueprintRepo) Save(ctx context.Context, tx *gorm.DB, doc *types.BlueprintDocument) (*types.BlueprintDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *blueprintRepo) GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.BlueprintDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var doc types.BlueprintDocument
	if err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}
