package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityNormal   ActivityType = "NORMAL"
	ActivityRejected ActivityType = "REJECTED"
	ActivityAltered  ActivityType = "ALTERED"
)

// WorkLog is one worker-day of production against a ledger entry.
// Rejections and Alterations are the split records this day's output spawned.
type WorkLog struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	LedgerEntryID    uuid.UUID          `gorm:"type:uuid;not null;index" json:"ledger_entry_id"`
	SubBatchID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_worker_logs_task" json:"sub_batch_id"`
	StageID          uuid.UUID          `gorm:"type:uuid;not null;index:idx_worker_logs_task" json:"stage_id"`
	WorkerID         *uuid.UUID         `gorm:"type:uuid;index" json:"worker_id"`
	WorkerName       string             `gorm:"type:varchar(100)" json:"worker_name"`
	WorkDate         time.Time          `gorm:"type:date;not null;index" json:"work_date"`
	QuantityReceived int                `gorm:"type:int;not null" json:"quantity_received"`
	QuantityWorked   int                `gorm:"type:int;not null" json:"quantity_worked"`
	UnitPrice        decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	IsBillable       bool               `gorm:"not null" json:"is_billable"`
	ActivityType     ActivityType       `gorm:"type:varchar(20);not null" json:"activity_type"`
	Particulars      string             `gorm:"type:text" json:"particulars"`
	Rejections       []RejectionRecord  `gorm:"foreignKey:WorkLogID" json:"rejections,omitempty"`
	Alterations      []AlterationRecord `gorm:"foreignKey:WorkLogID" json:"alterations,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (WorkLog) TableName() string {
	return "worker_logs"
}

func (w *WorkLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// Amount is the pay earned by this log
func (w WorkLog) Amount() decimal.Decimal {
	return decimal.NewFromInt(int64(w.QuantityWorked)).Mul(w.UnitPrice)
}

func (w WorkLog) RejectedQuantity() int {
	total := 0
	for _, r := range w.Rejections {
		total += r.Quantity
	}
	return total
}

func (w WorkLog) AlteredQuantity() int {
	total := 0
	for _, a := range w.Alterations {
		total += a.Quantity
	}
	return total
}
