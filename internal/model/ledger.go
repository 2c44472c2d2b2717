package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lineage tells which branch of the flow a tranche belongs to
type Lineage string

const (
	LineageMain     Lineage = "MAIN"
	LineageRejected Lineage = "REJECTED"
	LineageAltered  Lineage = "ALTERED"
)

func (l Lineage) Valid() bool {
	switch l {
	case LineageMain, LineageRejected, LineageAltered:
		return true
	}
	return false
}

// LedgerEntry (department_sub_batch) is a tranche of a sub-batch's quantity sitting at one stage.
//
// TotalQuantity is fixed at creation. QuantityRemaining only ever decreases and
// only the transition engine writes it, together with IsCurrent. At most one
// current MAIN entry exists per (sub-batch, stage); the partial unique index
// enforces it against concurrent writers. Rejected and altered tranches may
// pile up at a stage, one per split.
type LedgerEntry struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubBatchID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_current_main,where:is_current = true AND lineage_tag = 'MAIN'" json:"sub_batch_id"`
	StageID           uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_current_main" json:"stage_id"`
	LineageTag        Lineage    `gorm:"type:varchar(20);not null" json:"lineage_tag"`
	TotalQuantity     int        `gorm:"type:int;not null" json:"total_quantity"`
	QuantityRemaining int        `gorm:"type:int;not null" json:"quantity_remaining"`
	IsCurrent         bool       `gorm:"not null;index" json:"is_current"`
	SentFromStageID   *uuid.UUID `gorm:"type:uuid" json:"sent_from_stage_id"`
	SentToStageID     *uuid.UUID `gorm:"type:uuid" json:"sent_to_stage_id"`
	RejectReason      *string    `gorm:"type:text" json:"reject_reason"`
	AlterReason       *string    `gorm:"type:text" json:"alter_reason"`
	AssignedWorkerID  *uuid.UUID `gorm:"type:uuid;index" json:"assigned_worker_id"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (LedgerEntry) TableName() string {
	return "department_sub_batches"
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Reason returns the rejection or alteration reason carried by a split tranche
func (e LedgerEntry) Reason() string {
	switch {
	case e.RejectReason != nil:
		return *e.RejectReason
	case e.AlterReason != nil:
		return *e.AlterReason
	}
	return ""
}
