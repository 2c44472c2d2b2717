package repository

import (
	"context"

	"garmentflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository is the store of quantity tranches. Only the transition
// engine calls the mutating methods.
type LedgerRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error)
	FindActive(ctx context.Context, subBatchID, stageID uuid.UUID) (*model.LedgerEntry, error)
	FindActiveByLineage(ctx context.Context, subBatchID, stageID uuid.UUID, lineage model.Lineage, forUpdate bool) (*model.LedgerEntry, error)
	ListBySubBatch(ctx context.Context, subBatchID uuid.UUID) ([]model.LedgerEntry, error)
	ListByTask(ctx context.Context, subBatchID, stageID uuid.UUID) ([]model.LedgerEntry, error)
	CountBySubBatch(ctx context.Context, subBatchID uuid.UUID) (int64, error)
	DecrementRemaining(ctx context.Context, id uuid.UUID, quantity int) (int64, error)
	SetCurrent(ctx context.Context, id uuid.UUID, current bool) error
	SetSentTo(ctx context.Context, id uuid.UUID, stageID uuid.UUID) error
	SetAssignedWorker(ctx context.Context, id uuid.UUID, workerID *uuid.UUID) error
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, entry *model.LedgerEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *ledgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindActive returns the open tranche of a sub-batch at a stage. Split
// lineages may be open next to the main flow, so the pick is: the MAIN
// tranche if it still holds pieces, else the newest tranche holding pieces,
// else the MAIN tranche, else the newest.
func (r *ledgerRepository) FindActive(ctx context.Context, subBatchID, stageID uuid.UUID) (*model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	if err := GetDB(ctx, r.db).
		Where("sub_batch_id = ? AND stage_id = ? AND is_current = ?", subBatchID, stageID, true).
		Order("created_at desc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var main, stocked *model.LedgerEntry
	for i := range entries {
		e := &entries[i]
		if e.LineageTag == model.LineageMain {
			if e.QuantityRemaining > 0 {
				return e, nil
			}
			main = e
		}
		if stocked == nil && e.QuantityRemaining > 0 {
			stocked = e
		}
	}
	switch {
	case stocked != nil:
		return stocked, nil
	case main != nil:
		return main, nil
	}
	return &entries[0], nil
}

func (r *ledgerRepository) FindActiveByLineage(ctx context.Context, subBatchID, stageID uuid.UUID, lineage model.Lineage, forUpdate bool) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	db := GetDB(ctx, r.db)
	if forUpdate {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := db.Where("sub_batch_id = ? AND stage_id = ? AND lineage_tag = ? AND is_current = ?", subBatchID, stageID, lineage, true).
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *ledgerRepository) ListBySubBatch(ctx context.Context, subBatchID uuid.UUID) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ?", subBatchID).
		Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) ListByTask(ctx context.Context, subBatchID, stageID uuid.UUID) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ? AND stage_id = ?", subBatchID, stageID).
		Order("created_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) CountBySubBatch(ctx context.Context, subBatchID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.LedgerEntry{}).Where("sub_batch_id = ?", subBatchID).Count(&total).Error
	return total, err
}

// DecrementRemaining debits an open tranche only if it still holds quantity.
// Zero affected rows means another writer consumed it first.
func (r *ledgerRepository) DecrementRemaining(ctx context.Context, id uuid.UUID, quantity int) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.LedgerEntry{}).
		Where("id = ? AND is_current = ? AND quantity_remaining >= ?", id, true, quantity).
		Update("quantity_remaining", gorm.Expr("quantity_remaining - ?", quantity))
	return res.RowsAffected, res.Error
}

func (r *ledgerRepository) SetCurrent(ctx context.Context, id uuid.UUID, current bool) error {
	return GetDB(ctx, r.db).Model(&model.LedgerEntry{}).Where("id = ?", id).Update("is_current", current).Error
}

func (r *ledgerRepository) SetSentTo(ctx context.Context, id uuid.UUID, stageID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.LedgerEntry{}).Where("id = ?", id).Update("sent_to_stage_id", stageID).Error
}

func (r *ledgerRepository) SetAssignedWorker(ctx context.Context, id uuid.UUID, workerID *uuid.UUID) error {
	var value interface{} = gorm.Expr("NULL")
	if workerID != nil {
		value = *workerID
	}
	return GetDB(ctx, r.db).Model(&model.LedgerEntry{}).Where("id = ?", id).Update("assigned_worker_id", value).Error
}
