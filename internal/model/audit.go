package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionStartSubBatch    = "START_SUB_BATCH"
	ActionAdvance          = "ADVANCE_TRANCHE"
	ActionCreateRejection  = "CREATE_REJECTION"
	ActionCreateAlteration = "CREATE_ALTERATION"
	ActionAssignWorker     = "ASSIGN_WORKER"

	// Work log actions
	ActionCreateWorkLog = "CREATE_WORK_LOG"
	ActionUpdateWorkLog = "UPDATE_WORK_LOG"
	ActionDeleteWorkLog = "DELETE_WORK_LOG"
)

// AuditLog tracks which supervisor performed which write, and when
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    string    `gorm:"type:varchar(64);index" json:"actor_id"` // JWT subject, empty for system calls
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
