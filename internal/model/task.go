package model

// TaskStatus is the display status of a sub-batch at a stage.
// It is always derived from the ledger, never stored.
type TaskStatus string

const (
	TaskNewArrival TaskStatus = "NEW_ARRIVAL"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// DeriveTaskStatus reads the status off the current flag. A current tranche
// with nothing left is still open: only the transition engine closes tranches.
func DeriveTaskStatus(entry *LedgerEntry, hasWork bool) TaskStatus {
	if entry == nil || !entry.IsCurrent {
		return TaskCompleted
	}
	if hasWork || entry.AssignedWorkerID != nil {
		return TaskInProgress
	}
	return TaskNewArrival
}
