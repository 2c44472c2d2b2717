package repository

import (
	"context"
	"time"

	"garmentflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkLogFilter narrows wage and history queries. Zero values mean "any".
type WorkLogFilter struct {
	WorkerID   *uuid.UUID
	WorkerIDs  []uuid.UUID
	SubBatchID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

type WorkLogRepository interface {
	Create(ctx context.Context, log *model.WorkLog) error
	Update(ctx context.Context, log *model.WorkLog) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLog, error)
	ListByTask(ctx context.Context, subBatchID, stageID uuid.UUID) ([]model.WorkLog, error)
	ListByTaskPaged(ctx context.Context, subBatchID, stageID uuid.UUID, offset, limit int) ([]model.WorkLog, int64, error)
	List(ctx context.Context, filter WorkLogFilter) ([]model.WorkLog, error)
	ExistsForEntry(ctx context.Context, ledgerEntryID uuid.UUID) (bool, error)
}

type workLogRepository struct {
	db *gorm.DB
}

func NewWorkLogRepository(db *gorm.DB) WorkLogRepository {
	return &workLogRepository{db: db}
}

func (r *workLogRepository) Create(ctx context.Context, log *model.WorkLog) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(log).Error
}

func (r *workLogRepository) Update(ctx context.Context, log *model.WorkLog) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(log).Error
}

func (r *workLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.WorkLog{}).Error
}

func (r *workLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkLog, error) {
	var log model.WorkLog
	if err := GetDB(ctx, r.db).Preload("Rejections").Preload("Alterations").
		First(&log, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *workLogRepository) ListByTask(ctx context.Context, subBatchID, stageID uuid.UUID) ([]model.WorkLog, error) {
	var logs []model.WorkLog
	if err := GetDB(ctx, r.db).
		Preload("Rejections", orderByCreated).
		Preload("Alterations", orderByCreated).
		Where("sub_batch_id = ? AND stage_id = ?", subBatchID, stageID).
		Order("work_date asc").Order("created_at asc").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *workLogRepository) ListByTaskPaged(ctx context.Context, subBatchID, stageID uuid.UUID, offset, limit int) ([]model.WorkLog, int64, error) {
	var logs []model.WorkLog
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkLog{}).Where("sub_batch_id = ? AND stage_id = ?", subBatchID, stageID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Rejections", orderByCreated).Preload("Alterations", orderByCreated).
		Order("work_date desc").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *workLogRepository) List(ctx context.Context, filter WorkLogFilter) ([]model.WorkLog, error) {
	var logs []model.WorkLog

	db := GetDB(ctx, r.db).Model(&model.WorkLog{})
	if filter.WorkerID != nil {
		db = db.Where("worker_id = ?", *filter.WorkerID)
	}
	if filter.WorkerIDs != nil {
		db = db.Where("worker_id IN ?", filter.WorkerIDs)
	}
	if filter.SubBatchID != nil {
		db = db.Where("sub_batch_id = ?", *filter.SubBatchID)
	}
	if filter.StartDate != nil {
		db = db.Where("work_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("work_date <= ?", *filter.EndDate)
	}

	if err := db.Order("work_date asc").Order("created_at asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *workLogRepository) ExistsForEntry(ctx context.Context, ledgerEntryID uuid.UUID) (bool, error) {
	var total int64
	if err := GetDB(ctx, r.db).Model(&model.WorkLog{}).Where("ledger_entry_id = ?", ledgerEntryID).
		Limit(1).Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

func orderByCreated(db *gorm.DB) *gorm.DB {
	return db.Order("created_at asc")
}
