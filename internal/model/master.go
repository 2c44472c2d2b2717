package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department is a processing stage (cutting, stitching, finishing...).
// Master data is owned by the CRUD screens; the production core only reads it.
type Department struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

// Worker is a person who logs production against a stage
type Worker struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"type:varchar(100);not null" json:"name"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;index" json:"department_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// SubBatch is a cut lot of garments moving through its workflow
type SubBatch struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(150);not null" json:"name"`
	BatchName  string     `gorm:"type:varchar(150)" json:"batch_name"`
	Quantity   int        `gorm:"type:int;not null" json:"quantity"`
	WorkflowID *uuid.UUID `gorm:"type:uuid;index" json:"workflow_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s *SubBatch) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Workflow is the planned route of a sub-batch
type Workflow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(150);not null" json:"name"`
	Steps     []WorkflowStep `gorm:"foreignKey:WorkflowID" json:"steps,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (w *Workflow) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// WorkflowStep places a stage at a position of the planned route
type WorkflowStep struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkflowID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workflow_step_index" json:"workflow_id"`
	StepIndex  int       `gorm:"type:int;not null;uniqueIndex:idx_workflow_step_index" json:"step_index"`
	StageID    uuid.UUID `gorm:"type:uuid;not null" json:"stage_id"`
}

func (s *WorkflowStep) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// SubBatchAttachment lists trims (buttons, labels, zippers) issued with a sub-batch
type SubBatchAttachment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubBatchID uuid.UUID `gorm:"type:uuid;not null;index" json:"sub_batch_id"`
	Name       string    `gorm:"type:varchar(150);not null" json:"name"`
	Quantity   int       `gorm:"type:int;not null" json:"quantity"`
}

func (a *SubBatchAttachment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
