package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAppendOnly is returned by hooks guarding rows that must never change once written
var ErrAppendOnly = errors.New("append-only record cannot be modified")

type HistoryEventType string

const (
	EventArrival    HistoryEventType = "ARRIVAL"
	EventAdvance    HistoryEventType = "ADVANCE"
	EventRejection  HistoryEventType = "REJECTION"
	EventAlteration HistoryEventType = "ALTERATION"
)

// HistoryEvent records the arrival of a tranche at a stage.
// FromStageID is null for initial arrivals and for rejection/alteration
// splits: those read as a fresh arrival at ToStageID for Reason. The stage
// that gave up the quantity stays reachable through SourceLedgerEntryID.
type HistoryEvent struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	LedgerEntryID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"ledger_entry_id"`
	SubBatchID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"sub_batch_id"`
	FromStageID         *uuid.UUID       `gorm:"type:uuid" json:"from_stage_id"`
	ToStageID           uuid.UUID        `gorm:"type:uuid;not null" json:"to_stage_id"`
	Reason              *string          `gorm:"type:text" json:"reason"`
	EventType           HistoryEventType `gorm:"type:varchar(20);not null" json:"event_type"`
	SourceLedgerEntryID *uuid.UUID       `gorm:"type:uuid" json:"source_ledger_entry_id"`
	CreatedAt           time.Time        `gorm:"index" json:"created_at"`
}

func (HistoryEvent) TableName() string {
	return "department_sub_batch_histories"
}

func (h *HistoryEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

func (HistoryEvent) BeforeUpdate(tx *gorm.DB) error { return ErrAppendOnly }
func (HistoryEvent) BeforeDelete(tx *gorm.DB) error { return ErrAppendOnly }
