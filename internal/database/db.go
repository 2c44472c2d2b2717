package database

import (
	"fmt"
	"time"

	"garmentflow/internal/model"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PoolConfig tunes the database/sql pool behind GORM
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewConnection initializes a new connection pool using GORM and migrates the production schema
func NewConnection(dsn string, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("failed to register tracing plugin: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig is shared by every dialector. TranslateError turns unique
// violations into gorm.ErrDuplicatedKey, which the transition engine relies on.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// Migrate creates or updates every table the production core reads or writes
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Department{},
		&model.Worker{},
		&model.Workflow{},
		&model.WorkflowStep{},
		&model.SubBatch{},
		&model.SubBatchAttachment{},
		&model.LedgerEntry{},
		&model.HistoryEvent{},
		&model.WorkLog{},
		&model.RejectionRecord{},
		&model.AlterationRecord{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	// Superseded by idx_ledger_current_main, which leaves split tranches unconstrained
	if m := db.Migrator(); m.HasIndex(&model.LedgerEntry{}, "idx_ledger_current_tranche") {
		if err := m.DropIndex(&model.LedgerEntry{}, "idx_ledger_current_tranche"); err != nil {
			return fmt.Errorf("failed to drop idx_ledger_current_tranche: %w", err)
		}
	}
	return nil
}
