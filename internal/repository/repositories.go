package repository

import "gorm.io/gorm"

// Repositories bundles every store the production services use
type Repositories struct {
	Ledger       LedgerRepository
	History      HistoryRepository
	SplitRecords SplitRecordRepository
	WorkLogs     WorkLogRepository
	MasterData   MasterDataRepository
	Audit        AuditRepository
	Tx           TransactionManager
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Ledger:       NewLedgerRepository(db),
		History:      NewHistoryRepository(db),
		SplitRecords: NewSplitRecordRepository(db),
		WorkLogs:     NewWorkLogRepository(db),
		MasterData:   NewMasterDataRepository(db),
		Audit:        NewAuditRepository(db),
		Tx:           NewTransactionManager(db),
	}
}
