// Package testutil provides an in-memory database and seed helpers for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"garmentflow/internal/database"
	"garmentflow/internal/model"
)

// NewTestDB opens a private in-memory SQLite database with the production schema.
// The pool holds a single connection, so transactions run one at a time the
// same way row locks serialize them on postgres.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg := database.GormConfig()
	cfg.Logger = logger.Discard
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func SeedStage(t *testing.T, db *gorm.DB, name string) model.Department {
	t.Helper()
	stage := model.Department{Name: name}
	require.NoError(t, db.Create(&stage).Error)
	return stage
}

func SeedWorker(t *testing.T, db *gorm.DB, name string, departmentID *uuid.UUID) model.Worker {
	t.Helper()
	worker := model.Worker{Name: name, DepartmentID: departmentID}
	require.NoError(t, db.Create(&worker).Error)
	return worker
}

// SeedSubBatch creates a sub-batch whose planned route visits stages in order
func SeedSubBatch(t *testing.T, db *gorm.DB, name string, quantity int, stages ...model.Department) model.SubBatch {
	t.Helper()
	workflow := model.Workflow{Name: name + " route"}
	require.NoError(t, db.Create(&workflow).Error)
	for i, stage := range stages {
		step := model.WorkflowStep{WorkflowID: workflow.ID, StepIndex: i, StageID: stage.ID}
		require.NoError(t, db.Create(&step).Error)
	}

	subBatch := model.SubBatch{Name: name, BatchName: "B-" + name, Quantity: quantity, WorkflowID: &workflow.ID}
	require.NoError(t, db.Create(&subBatch).Error)
	return subBatch
}

// SeedEntry places an open MAIN tranche directly, bypassing the transition engine
func SeedEntry(t *testing.T, db *gorm.DB, subBatchID, stageID uuid.UUID, quantity int) model.LedgerEntry {
	t.Helper()
	entry := model.LedgerEntry{
		SubBatchID:        subBatchID,
		StageID:           stageID,
		LineageTag:        model.LineageMain,
		TotalQuantity:     quantity,
		QuantityRemaining: quantity,
		IsCurrent:         true,
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

// SeedWorkLog writes a log for a worker against an entry
func SeedWorkLog(t *testing.T, db *gorm.DB, entry model.LedgerEntry, worker model.Worker, workDate time.Time, worked int, unitPrice int64, billable bool) model.WorkLog {
	t.Helper()
	workerID := worker.ID
	log := model.WorkLog{
		LedgerEntryID:    entry.ID,
		SubBatchID:       entry.SubBatchID,
		StageID:          entry.StageID,
		WorkerID:         &workerID,
		WorkerName:       worker.Name,
		WorkDate:         workDate,
		QuantityReceived: worked,
		QuantityWorked:   worked,
		UnitPrice:        decimal.NewFromInt(unitPrice),
		IsBillable:       billable,
		ActivityType:     model.ActivityNormal,
	}
	require.NoError(t, db.Omit("Rejections", "Alterations").Create(&log).Error)
	return log
}

func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
