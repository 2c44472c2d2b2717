package repository

import (
	"context"

	"garmentflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SplitRecordRepository interface {
	CreateRejection(ctx context.Context, record *model.RejectionRecord) error
	CreateAlteration(ctx context.Context, record *model.AlterationRecord) error
	ListRejections(ctx context.Context, subBatchID uuid.UUID) ([]model.RejectionRecord, error)
	ListAlterations(ctx context.Context, subBatchID uuid.UUID) ([]model.AlterationRecord, error)
	CountByWorkLog(ctx context.Context, workLogID uuid.UUID) (int64, error)
}

type splitRecordRepository struct {
	db *gorm.DB
}

func NewSplitRecordRepository(db *gorm.DB) SplitRecordRepository {
	return &splitRecordRepository{db: db}
}

func (r *splitRecordRepository) CreateRejection(ctx context.Context, record *model.RejectionRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *splitRecordRepository) CreateAlteration(ctx context.Context, record *model.AlterationRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *splitRecordRepository) ListRejections(ctx context.Context, subBatchID uuid.UUID) ([]model.RejectionRecord, error) {
	var records []model.RejectionRecord
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ?", subBatchID).Order("created_at asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *splitRecordRepository) ListAlterations(ctx context.Context, subBatchID uuid.UUID) ([]model.AlterationRecord, error) {
	var records []model.AlterationRecord
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ?", subBatchID).Order("created_at asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *splitRecordRepository) CountByWorkLog(ctx context.Context, workLogID uuid.UUID) (int64, error) {
	var rejections, alterations int64
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RejectionRecord{}).Where("work_log_id = ?", workLogID).Count(&rejections).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.AlterationRecord{}).Where("work_log_id = ?", workLogID).Count(&alterations).Error; err != nil {
		return 0, err
	}
	return rejections + alterations, nil
}
