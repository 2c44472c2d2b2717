package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RejectionRecord links the tranche debited by a rejection to the tranche it created
type RejectionRecord struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubBatchID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"sub_batch_id"`
	Quantity             int        `gorm:"type:int;not null" json:"quantity"`
	Reason               string     `gorm:"type:text;not null" json:"reason"`
	TargetStageID        uuid.UUID  `gorm:"type:uuid;not null" json:"target_stage_id"`
	SourceLedgerEntryID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"source_ledger_entry_id"`
	CreatedLedgerEntryID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"created_ledger_entry_id"`
	WorkLogID            *uuid.UUID `gorm:"type:uuid;index" json:"work_log_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (RejectionRecord) TableName() string {
	return "rejection_records"
}

func (r *RejectionRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

func (RejectionRecord) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (RejectionRecord) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }

// AlterationRecord is the alteration counterpart of RejectionRecord
type AlterationRecord struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SubBatchID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"sub_batch_id"`
	Quantity             int        `gorm:"type:int;not null" json:"quantity"`
	Reason               string     `gorm:"type:text;not null" json:"reason"`
	TargetStageID        uuid.UUID  `gorm:"type:uuid;not null" json:"target_stage_id"`
	SourceLedgerEntryID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"source_ledger_entry_id"`
	CreatedLedgerEntryID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"created_ledger_entry_id"`
	WorkLogID            *uuid.UUID `gorm:"type:uuid;index" json:"work_log_id"`
	CreatedAt            time.Time  `json:"created_at"`
}

func (AlterationRecord) TableName() string {
	return "alteration_records"
}

func (a *AlterationRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (AlterationRecord) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (AlterationRecord) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }
