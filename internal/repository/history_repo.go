package repository

import (
	"context"

	"garmentflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository is append-only: there is no update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, event *model.HistoryEvent) error
	ListBySubBatch(ctx context.Context, subBatchID uuid.UUID) ([]model.HistoryEvent, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, event *model.HistoryEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *historyRepository) ListBySubBatch(ctx context.Context, subBatchID uuid.UUID) ([]model.HistoryEvent, error) {
	var events []model.HistoryEvent
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ?", subBatchID).
		Order("created_at asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
