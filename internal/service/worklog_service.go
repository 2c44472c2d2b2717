package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"garmentflow/internal/apperror"
	"garmentflow/internal/logger"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DTOs
type RecordWorkLogRequest struct {
	SubBatchID       string          `json:"sub_batch_id" binding:"required,uuid"`
	StageID          string          `json:"stage_id" binding:"required,uuid"`
	LedgerEntryID    string          `json:"ledger_entry_id" binding:"omitempty,uuid"` // Optional: defaults to the active entry
	WorkerID         string          `json:"worker_id" binding:"required_without=WorkerName,omitempty,uuid"`
	WorkerName       string          `json:"worker_name" binding:"required_without=WorkerID,max=100"`
	WorkDate         string          `json:"work_date" binding:"required,datetime=2006-01-02"`
	QuantityReceived *int            `json:"quantity_received" binding:"omitempty,gte=0"` // Optional: defaults to the entry's remaining quantity
	QuantityWorked   int             `json:"quantity_worked" binding:"gte=0"`
	UnitPrice        decimal.Decimal `json:"unit_price" swaggertype:"string"`
	IsBillable       *bool           `json:"is_billable"` // Optional: defaults to true
	ActivityType     string          `json:"activity_type" binding:"omitempty,oneof=NORMAL REJECTED ALTERED"`
	Particulars      string          `json:"particulars" binding:"max=1000"`
}

// UpdateWorkLogRequest corrects a log. Nil fields stay as they are.
type UpdateWorkLogRequest struct {
	WorkDate         *string          `json:"work_date" binding:"omitempty,datetime=2006-01-02"`
	QuantityReceived *int             `json:"quantity_received" binding:"omitempty,gte=0"`
	QuantityWorked   *int             `json:"quantity_worked" binding:"omitempty,gte=0"`
	UnitPrice        *decimal.Decimal `json:"unit_price" swaggertype:"string"`
	IsBillable       *bool            `json:"is_billable"`
	Particulars      *string          `json:"particulars" binding:"omitempty,max=1000"`
}

type WorkLogService interface {
	RecordWorkLog(ctx context.Context, userID string, req RecordWorkLogRequest) (model.WorkLog, error)
	UpdateWorkLog(ctx context.Context, userID string, id string, req UpdateWorkLogRequest) (model.WorkLog, error)
	DeleteWorkLog(ctx context.Context, userID string, id string) error
	ListWorkLogs(ctx context.Context, subBatchID, stageID string, page, limit int) ([]model.WorkLog, int64, error)
}

type workLogService struct {
	repos     repository.Repositories
	publisher EventPublisher
	log       *logrus.Logger
}

func NewWorkLogService(repos repository.Repositories, publisher EventPublisher, log *logrus.Logger) WorkLogService {
	return &workLogService{
		repos:     repos,
		publisher: publisher,
		log:       log,
	}
}

// activityFor maps a tranche's lineage to the kind of work done on it
func activityFor(lineage model.Lineage) model.ActivityType {
	switch lineage {
	case model.LineageRejected:
		return model.ActivityRejected
	case model.LineageAltered:
		return model.ActivityAltered
	}
	return model.ActivityNormal
}

func (s *workLogService) RecordWorkLog(ctx context.Context, userID string, req RecordWorkLogRequest) (model.WorkLog, error) {
	if err := validateRequest(req); err != nil {
		return model.WorkLog{}, err
	}
	if req.UnitPrice.IsNegative() {
		return model.WorkLog{}, apperror.ValidationFields(map[string]string{"unit_price": "must be at least 0"})
	}
	subBatchID, err := parseID("sub_batch_id", req.SubBatchID)
	if err != nil {
		return model.WorkLog{}, err
	}
	stageID, err := parseID("stage_id", req.StageID)
	if err != nil {
		return model.WorkLog{}, err
	}
	entryID, err := parseOptionalID("ledger_entry_id", req.LedgerEntryID)
	if err != nil {
		return model.WorkLog{}, err
	}
	workerID, err := parseOptionalID("worker_id", req.WorkerID)
	if err != nil {
		return model.WorkLog{}, err
	}
	workDate, err := parseDate("work_date", req.WorkDate)
	if err != nil {
		return model.WorkLog{}, err
	}

	var workLog model.WorkLog
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.lockEntry(txCtx, subBatchID, stageID, entryID)
		if err != nil {
			return err
		}
		if !entry.IsCurrent {
			return apperror.Inactive("ledger entry %s is not the current tranche at its stage", entry.ID)
		}

		workerName := strings.TrimSpace(req.WorkerName)
		if workerID != nil {
			worker, err := s.repos.MasterData.FindWorker(txCtx, *workerID)
			if err != nil {
				return lookupErr(err, "worker", *workerID)
			}
			if workerName == "" {
				workerName = worker.Name
			}
		}

		received := entry.QuantityRemaining
		if req.QuantityReceived != nil {
			received = *req.QuantityReceived
		}
		if req.QuantityWorked > received {
			return apperror.ValidationFields(map[string]string{
				"quantity_worked": fmt.Sprintf("must not exceed quantity received (%d)", received),
			})
		}

		billable := true
		if req.IsBillable != nil {
			billable = *req.IsBillable
		}
		activity := activityFor(entry.LineageTag)
		if req.ActivityType != "" {
			activity = model.ActivityType(req.ActivityType)
		}

		workLog = model.WorkLog{
			LedgerEntryID:    entry.ID,
			SubBatchID:       entry.SubBatchID,
			StageID:          entry.StageID,
			WorkerID:         workerID,
			WorkerName:       workerName,
			WorkDate:         workDate,
			QuantityReceived: received,
			QuantityWorked:   req.QuantityWorked,
			UnitPrice:        req.UnitPrice,
			IsBillable:       billable,
			ActivityType:     activity,
			Particulars:      req.Particulars,
		}
		if err := s.repos.WorkLogs.Create(txCtx, &workLog); err != nil {
			return fmt.Errorf("failed to create work log: %w", err)
		}

		return s.audit(txCtx, userID, model.ActionCreateWorkLog, workLog, req)
	})
	if err != nil {
		s.reject("RecordWorkLog", err, logrus.Fields{"sub_batch_id": req.SubBatchID, "stage_id": req.StageID})
		return model.WorkLog{}, err
	}

	s.broadcast(EventWorkLogCreated, workLog)
	return workLog, nil
}

func (s *workLogService) UpdateWorkLog(ctx context.Context, userID string, id string, req UpdateWorkLogRequest) (model.WorkLog, error) {
	logID, err := parseID("id", id)
	if err != nil {
		return model.WorkLog{}, err
	}
	if err := validateRequest(req); err != nil {
		return model.WorkLog{}, err
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return model.WorkLog{}, apperror.ValidationFields(map[string]string{"unit_price": "must be at least 0"})
	}

	var workLog *model.WorkLog
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		workLog, err = s.repos.WorkLogs.FindByID(txCtx, logID)
		if err != nil {
			return lookupErr(err, "work log", logID)
		}
		if err := s.requireOpenEntry(txCtx, workLog); err != nil {
			return err
		}

		if req.WorkDate != nil {
			workDate, err := parseDate("work_date", *req.WorkDate)
			if err != nil {
				return err
			}
			workLog.WorkDate = workDate
		}
		if req.QuantityReceived != nil {
			workLog.QuantityReceived = *req.QuantityReceived
		}
		if req.QuantityWorked != nil {
			workLog.QuantityWorked = *req.QuantityWorked
		}
		if req.UnitPrice != nil {
			workLog.UnitPrice = *req.UnitPrice
		}
		if req.IsBillable != nil {
			workLog.IsBillable = *req.IsBillable
		}
		if req.Particulars != nil {
			workLog.Particulars = *req.Particulars
		}
		if workLog.QuantityWorked > workLog.QuantityReceived {
			return apperror.ValidationFields(map[string]string{
				"quantity_worked": fmt.Sprintf("must not exceed quantity received (%d)", workLog.QuantityReceived),
			})
		}

		if err := s.repos.WorkLogs.Update(txCtx, workLog); err != nil {
			return fmt.Errorf("failed to update work log: %w", err)
		}
		return s.audit(txCtx, userID, model.ActionUpdateWorkLog, *workLog, req)
	})
	if err != nil {
		s.reject("UpdateWorkLog", err, logrus.Fields{"work_log_id": id})
		return model.WorkLog{}, err
	}

	s.broadcast(EventWorkLogUpdated, *workLog)
	return *workLog, nil
}

func (s *workLogService) DeleteWorkLog(ctx context.Context, userID string, id string) error {
	logID, err := parseID("id", id)
	if err != nil {
		return err
	}

	var workLog *model.WorkLog
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		workLog, err = s.repos.WorkLogs.FindByID(txCtx, logID)
		if err != nil {
			return lookupErr(err, "work log", logID)
		}
		if err := s.requireOpenEntry(txCtx, workLog); err != nil {
			return err
		}

		refs, err := s.repos.SplitRecords.CountByWorkLog(txCtx, logID)
		if err != nil {
			return fmt.Errorf("failed to count split records: %w", err)
		}
		if refs > 0 {
			return apperror.Validation("work log %s is referenced by %d rejection or alteration records", logID, refs)
		}

		if err := s.repos.WorkLogs.Delete(txCtx, logID); err != nil {
			return fmt.Errorf("failed to delete work log: %w", err)
		}
		return s.audit(txCtx, userID, model.ActionDeleteWorkLog, *workLog, workLog)
	})
	if err != nil {
		s.reject("DeleteWorkLog", err, logrus.Fields{"work_log_id": id})
		return err
	}

	s.broadcast(EventWorkLogDeleted, *workLog)
	return nil
}

func (s *workLogService) ListWorkLogs(ctx context.Context, subBatchID, stageID string, page, limit int) ([]model.WorkLog, int64, error) {
	sbID, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return nil, 0, err
	}
	stID, err := parseID("stage_id", stageID)
	if err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repos.WorkLogs.ListByTaskPaged(ctx, sbID, stID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work logs: %w", err)
	}
	return logs, total, nil
}

// lockEntry resolves the tranche a new log binds to and locks it
func (s *workLogService) lockEntry(ctx context.Context, subBatchID, stageID uuid.UUID, entryID *uuid.UUID) (*model.LedgerEntry, error) {
	if entryID == nil {
		active, err := s.repos.Ledger.FindActive(ctx, subBatchID, stageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("no active ledger entry for sub-batch %s at stage %s", subBatchID, stageID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find active ledger entry: %w", err)
		}
		entryID = &active.ID
	}

	entry, err := s.repos.Ledger.FindByIDForUpdate(ctx, *entryID)
	if err != nil {
		return nil, lookupErr(err, "ledger entry", *entryID)
	}
	if entry.SubBatchID != subBatchID || entry.StageID != stageID {
		return nil, apperror.ValidationFields(map[string]string{"ledger_entry_id": "must belong to the given sub-batch and stage"})
	}
	return entry, nil
}

// requireOpenEntry allows corrections only while the log's tranche is current
func (s *workLogService) requireOpenEntry(ctx context.Context, workLog *model.WorkLog) error {
	entry, err := s.repos.Ledger.FindByIDForUpdate(ctx, workLog.LedgerEntryID)
	if err != nil {
		return lookupErr(err, "ledger entry", workLog.LedgerEntryID)
	}
	if !entry.IsCurrent {
		return apperror.Inactive("work log %s belongs to a closed tranche and can no longer change", workLog.ID)
	}
	return nil
}

func (s *workLogService) audit(ctx context.Context, userID, action string, workLog model.WorkLog, details interface{}) error {
	entry := &model.AuditLog{
		ActorID:    userID,
		Action:     action,
		EntityID:   workLog.ID.String(),
		EntityName: workLog.WorkerName,
		Details:    marshalDetails(details),
	}
	if err := s.repos.Audit.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *workLogService) broadcast(event string, workLog model.WorkLog) {
	if s.publisher != nil {
		s.publisher.Publish(event, map[string]interface{}{
			"work_log_id":     workLog.ID.String(),
			"ledger_entry_id": workLog.LedgerEntryID.String(),
			"sub_batch_id":    workLog.SubBatchID.String(),
			"stage_id":        workLog.StageID.String(),
			"quantity_worked": workLog.QuantityWorked,
		})
	}
	s.log.WithFields(logrus.Fields{
		"event":       event,
		"work_log_id": workLog.ID.String(),
		"worker":      workLog.WorkerName,
	}).Info("work log committed")
}

func (s *workLogService) reject(funcName string, err error, fields logrus.Fields) {
	if kind := apperror.KindOf(err); kind != "" {
		fields["error_kind"] = string(kind)
		s.log.WithFields(fields).Warn(err.Error())
		return
	}
	logger.LogError(s.log, "WorkLogService", funcName, "transaction failed", fields, err)
}
