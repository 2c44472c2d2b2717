package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"garmentflow/internal/apperror"
	"garmentflow/internal/logger"
	"garmentflow/internal/metrics"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("garmentflow/internal/service")

// Operation labels used in metrics, spans and logs
const (
	OpStartSubBatch    = "start_sub_batch"
	OpAdvance          = "advance"
	OpCreateRejection  = "create_rejection"
	OpCreateAlteration = "create_alteration"
	OpAssignWorker     = "assign_worker"
)

// DTOs
type CreateRejectionRequest struct {
	SubBatchID    string `json:"sub_batch_id" binding:"required,uuid"`
	FromStageID   string `json:"from_stage_id" binding:"required,uuid"`
	ToStageID     string `json:"to_stage_id" binding:"required,uuid"`
	Quantity      int    `json:"quantity" binding:"gt=0"`
	Reason        string `json:"reason" binding:"required,max=500"`
	LedgerEntryID string `json:"ledger_entry_id" binding:"omitempty,uuid"` // Optional: split from this tranche instead of the active one
	WorkLogID     string `json:"work_log_id" binding:"omitempty,uuid"`     // Optional: the log whose output was rejected
}

type CreateAlterationRequest struct {
	SubBatchID    string `json:"sub_batch_id" binding:"required,uuid"`
	FromStageID   string `json:"from_stage_id" binding:"required,uuid"`
	ToStageID     string `json:"to_stage_id" binding:"required,uuid"`
	Quantity      int    `json:"quantity" binding:"gt=0"`
	Note          string `json:"note" binding:"required,max=500"`
	LedgerEntryID string `json:"ledger_entry_id" binding:"omitempty,uuid"`
	WorkLogID     string `json:"work_log_id" binding:"omitempty,uuid"`
}

type AdvanceRequest struct {
	ToStageID string `json:"to_stage_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"gt=0"`
	Note      string `json:"note" binding:"max=500"`
}

type AssignWorkerRequest struct {
	WorkerID *string `json:"worker_id" binding:"omitempty,uuid"` // null clears the assignment
}

// TransitionResult is what every quantity move returns: the debited source
// (nil for a sub-batch start), the credited tranche and its history event.
type TransitionResult struct {
	Source    *model.LedgerEntry `json:"source,omitempty"`
	Entry     model.LedgerEntry  `json:"entry"`
	History   model.HistoryEvent `json:"history"`
	CreatedAt time.Time          `json:"created_at"`
}

type RejectionResult struct {
	TransitionResult
	Record model.RejectionRecord `json:"record"`
}

type AlterationResult struct {
	TransitionResult
	Record model.AlterationRecord `json:"record"`
}

type TransitionService interface {
	StartSubBatch(ctx context.Context, userID string, subBatchID string) (TransitionResult, error)
	CreateRejection(ctx context.Context, userID string, req CreateRejectionRequest) (RejectionResult, error)
	CreateAlteration(ctx context.Context, userID string, req CreateAlterationRequest) (AlterationResult, error)
	Advance(ctx context.Context, userID string, ledgerEntryID string, req AdvanceRequest) (TransitionResult, error)
	AssignWorker(ctx context.Context, userID string, ledgerEntryID string, req AssignWorkerRequest) (model.LedgerEntry, error)
	FindActiveEntry(ctx context.Context, subBatchID, stageID string) (model.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, subBatchID string) ([]model.LedgerEntry, error)
}

type transitionService struct {
	repos     repository.Repositories
	publisher EventPublisher
	metrics   *metrics.Recorder
	log       *logrus.Logger
}

// NewTransitionService wires the engine. publisher and recorder may be nil.
func NewTransitionService(
	repos repository.Repositories,
	publisher EventPublisher,
	recorder *metrics.Recorder,
	log *logrus.Logger,
) TransitionService {
	return &transitionService{
		repos:     repos,
		publisher: publisher,
		metrics:   recorder,
		log:       log,
	}
}

// transferSpec describes one quantity move out of a locked source tranche
type transferSpec struct {
	operation string
	action    string
	sourceID  uuid.UUID
	quantity  int
	target    uuid.UUID
	lineage   model.Lineage
	reason    string
	event     model.HistoryEventType
	workLogID *uuid.UUID
	details   interface{}
}

type transferOutcome struct {
	source     model.LedgerEntry
	entry      model.LedgerEntry
	history    model.HistoryEvent
	rejection  model.RejectionRecord
	alteration model.AlterationRecord
}

// transfer debits spec.quantity from the source tranche and credits a new
// current tranche at the target stage, all in one transaction.
func (s *transitionService) transfer(ctx context.Context, userID string, spec transferSpec) (transferOutcome, error) {
	ctx, span := tracer.Start(ctx, "transition."+spec.operation, trace.WithAttributes(
		attribute.String("ledger_entry.id", spec.sourceID.String()),
		attribute.String("stage.target", spec.target.String()),
		attribute.String("lineage", string(spec.lineage)),
		attribute.Int("quantity", spec.quantity),
	))
	defer span.End()

	var out transferOutcome
	err := s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		source, err := s.repos.Ledger.FindByIDForUpdate(txCtx, spec.sourceID)
		if err != nil {
			return lookupErr(err, "ledger entry", spec.sourceID)
		}
		if !source.IsCurrent {
			return apperror.Inactive("ledger entry %s is not the current tranche at its stage", source.ID)
		}
		if spec.quantity <= 0 {
			return apperror.ValidationFields(map[string]string{"quantity": "must be greater than 0"})
		}
		if spec.quantity > source.QuantityRemaining {
			return apperror.InsufficientQuantity(spec.quantity, source.QuantityRemaining)
		}
		if spec.target == source.StageID {
			return apperror.ValidationFields(map[string]string{"to_stage_id": "must differ from the source stage"})
		}
		if _, err := s.repos.MasterData.FindDepartment(txCtx, spec.target); err != nil {
			return lookupErr(err, "stage", spec.target)
		}
		if spec.workLogID != nil {
			if err := s.checkWorkLog(txCtx, *spec.workLogID, source); err != nil {
				return err
			}
		}
		if spec.lineage == model.LineageMain {
			if err := s.vacateTarget(txCtx, source.SubBatchID, spec.target); err != nil {
				return err
			}
		}

		rows, err := s.repos.Ledger.DecrementRemaining(txCtx, source.ID, spec.quantity)
		if err != nil {
			return fmt.Errorf("failed to debit ledger entry: %w", err)
		}
		if rows == 0 {
			return apperror.ConcurrentModification(nil, "ledger entry %s changed while the %s was being recorded", source.ID, spec.operation)
		}
		source.QuantityRemaining -= spec.quantity

		fromStage := source.StageID
		entry := model.LedgerEntry{
			SubBatchID:        source.SubBatchID,
			StageID:           spec.target,
			LineageTag:        spec.lineage,
			TotalQuantity:     spec.quantity,
			QuantityRemaining: spec.quantity,
			IsCurrent:         true,
			SentFromStageID:   &fromStage,
		}
		switch spec.lineage {
		case model.LineageRejected:
			entry.RejectReason = strPtr(spec.reason)
		case model.LineageAltered:
			entry.AlterReason = strPtr(spec.reason)
		}
		if err := s.repos.Ledger.Create(txCtx, &entry); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.ConcurrentModification(err, "another %s tranche was opened at stage %s concurrently", spec.lineage, spec.target)
			}
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}

		if spec.lineage == model.LineageMain {
			if err := s.repos.Ledger.SetSentTo(txCtx, source.ID, spec.target); err != nil {
				return fmt.Errorf("failed to update ledger entry: %w", err)
			}
			sentTo := spec.target
			source.SentToStageID = &sentTo
		}

		switch spec.lineage {
		case model.LineageRejected:
			out.rejection = model.RejectionRecord{
				SubBatchID:           source.SubBatchID,
				Quantity:             spec.quantity,
				Reason:               spec.reason,
				TargetStageID:        spec.target,
				SourceLedgerEntryID:  source.ID,
				CreatedLedgerEntryID: entry.ID,
				WorkLogID:            spec.workLogID,
			}
			if err := s.repos.SplitRecords.CreateRejection(txCtx, &out.rejection); err != nil {
				return fmt.Errorf("failed to create rejection record: %w", err)
			}
		case model.LineageAltered:
			out.alteration = model.AlterationRecord{
				SubBatchID:           source.SubBatchID,
				Quantity:             spec.quantity,
				Reason:               spec.reason,
				TargetStageID:        spec.target,
				SourceLedgerEntryID:  source.ID,
				CreatedLedgerEntryID: entry.ID,
				WorkLogID:            spec.workLogID,
			}
			if err := s.repos.SplitRecords.CreateAlteration(txCtx, &out.alteration); err != nil {
				return fmt.Errorf("failed to create alteration record: %w", err)
			}
		}

		// Split targets read as fresh arrivals; only a hand-off carries its origin stage.
		sourceID := source.ID
		history := model.HistoryEvent{
			LedgerEntryID:       entry.ID,
			SubBatchID:          entry.SubBatchID,
			ToStageID:           spec.target,
			EventType:           spec.event,
			SourceLedgerEntryID: &sourceID,
		}
		if spec.lineage == model.LineageMain {
			history.FromStageID = &fromStage
		}
		if spec.reason != "" {
			history.Reason = strPtr(spec.reason)
		}
		if err := s.repos.History.Append(txCtx, &history); err != nil {
			return fmt.Errorf("failed to append history event: %w", err)
		}

		audit := &model.AuditLog{
			ActorID:    userID,
			Action:     spec.action,
			EntityID:   entry.ID.String(),
			EntityName: string(spec.lineage),
			Details:    marshalDetails(spec.details),
		}
		if err := s.repos.Audit.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		out.source = *source
		out.entry = entry
		out.history = history
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.reject(spec.operation, err, logrus.Fields{
			"ledger_entry_id": spec.sourceID.String(),
			"quantity":        spec.quantity,
		})
		return transferOutcome{}, err
	}

	s.committed(spec.operation, spec.lineage, spec.quantity)
	s.publish(EventTrancheSplit, spec.operation, out)
	s.log.WithFields(logrus.Fields{
		"operation":       spec.operation,
		"source_entry_id": out.source.ID.String(),
		"new_entry_id":    out.entry.ID.String(),
		"quantity":        spec.quantity,
		"remaining":       out.source.QuantityRemaining,
	}).Info("ledger transition committed")
	return out, nil
}

// vacateTarget retires an exhausted current MAIN tranche at the target stage
// ahead of a hand-off. One still holding pieces blocks the move. Splits never
// call it: every rejection or alteration opens its own tranche.
func (s *transitionService) vacateTarget(ctx context.Context, subBatchID, stageID uuid.UUID) error {
	open, err := s.repos.Ledger.FindActiveByLineage(ctx, subBatchID, stageID, model.LineageMain, true)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check target stage: %w", err)
	}
	if open.QuantityRemaining > 0 {
		return apperror.Validation("stage %s already holds an open MAIN tranche of this sub-batch with %d pieces remaining",
			stageID, open.QuantityRemaining)
	}
	if err := s.repos.Ledger.SetCurrent(ctx, open.ID, false); err != nil {
		return fmt.Errorf("failed to retire ledger entry %s: %w", open.ID, err)
	}
	return nil
}

func (s *transitionService) checkWorkLog(ctx context.Context, workLogID uuid.UUID, source *model.LedgerEntry) error {
	log, err := s.repos.WorkLogs.FindByID(ctx, workLogID)
	if err != nil {
		return lookupErr(err, "work log", workLogID)
	}
	if log.SubBatchID != source.SubBatchID || log.StageID != source.StageID {
		return apperror.ValidationFields(map[string]string{"work_log_id": "must belong to the same sub-batch and stage as the source entry"})
	}
	return nil
}

// splitRequest is the common shape of rejections and alterations
type splitRequest struct {
	subBatchID    string
	fromStageID   string
	toStageID     string
	ledgerEntryID string
	workLogID     string
	quantity      int
	reason        string
}

// splitTransition resolves the source tranche and moves quantity into a new
// lineage at the target stage. Rejections and alterations differ only in
// lineage, record table and audit action.
func (s *transitionService) splitTransition(ctx context.Context, userID string, req splitRequest, lineage model.Lineage, details interface{}) (transferOutcome, error) {
	operation, action, event := OpCreateRejection, model.ActionCreateRejection, model.EventRejection
	if lineage == model.LineageAltered {
		operation, action, event = OpCreateAlteration, model.ActionCreateAlteration, model.EventAlteration
	}

	spec, err := s.resolveSplit(ctx, req)
	if err != nil {
		s.reject(operation, err, logrus.Fields{"sub_batch_id": req.subBatchID, "quantity": req.quantity})
		return transferOutcome{}, err
	}
	spec.operation = operation
	spec.action = action
	spec.event = event
	spec.lineage = lineage
	spec.details = details
	return s.transfer(ctx, userID, spec)
}

func (s *transitionService) resolveSplit(ctx context.Context, req splitRequest) (transferSpec, error) {
	reason := strings.TrimSpace(req.reason)
	if reason == "" {
		return transferSpec{}, apperror.ValidationFields(map[string]string{"reason": "is required"})
	}
	subBatchID, err := parseID("sub_batch_id", req.subBatchID)
	if err != nil {
		return transferSpec{}, err
	}
	fromStageID, err := parseID("from_stage_id", req.fromStageID)
	if err != nil {
		return transferSpec{}, err
	}
	toStageID, err := parseID("to_stage_id", req.toStageID)
	if err != nil {
		return transferSpec{}, err
	}
	entryID, err := parseOptionalID("ledger_entry_id", req.ledgerEntryID)
	if err != nil {
		return transferSpec{}, err
	}
	workLogID, err := parseOptionalID("work_log_id", req.workLogID)
	if err != nil {
		return transferSpec{}, err
	}

	if _, err := s.repos.MasterData.FindSubBatch(ctx, subBatchID); err != nil {
		return transferSpec{}, lookupErr(err, "sub-batch", subBatchID)
	}

	var sourceID uuid.UUID
	if entryID != nil {
		entry, err := s.repos.Ledger.FindByID(ctx, *entryID)
		if err != nil {
			return transferSpec{}, lookupErr(err, "ledger entry", *entryID)
		}
		if entry.SubBatchID != subBatchID || entry.StageID != fromStageID {
			return transferSpec{}, apperror.ValidationFields(map[string]string{"ledger_entry_id": "must belong to the given sub-batch and from stage"})
		}
		sourceID = entry.ID
	} else {
		entry, err := s.repos.Ledger.FindActive(ctx, subBatchID, fromStageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return transferSpec{}, apperror.NotFound("no active ledger entry for sub-batch %s at stage %s", subBatchID, fromStageID)
		}
		if err != nil {
			return transferSpec{}, fmt.Errorf("failed to find active ledger entry: %w", err)
		}
		sourceID = entry.ID
	}

	return transferSpec{
		sourceID:  sourceID,
		quantity:  req.quantity,
		target:    toStageID,
		reason:    reason,
		workLogID: workLogID,
	}, nil
}

func (s *transitionService) CreateRejection(ctx context.Context, userID string, req CreateRejectionRequest) (RejectionResult, error) {
	if err := validateRequest(req); err != nil {
		s.reject(OpCreateRejection, err, logrus.Fields{"sub_batch_id": req.SubBatchID})
		return RejectionResult{}, err
	}
	out, err := s.splitTransition(ctx, userID, splitRequest{
		subBatchID:    req.SubBatchID,
		fromStageID:   req.FromStageID,
		toStageID:     req.ToStageID,
		ledgerEntryID: req.LedgerEntryID,
		workLogID:     req.WorkLogID,
		quantity:      req.Quantity,
		reason:        req.Reason,
	}, model.LineageRejected, req)
	if err != nil {
		return RejectionResult{}, err
	}
	return RejectionResult{TransitionResult: out.result(), Record: out.rejection}, nil
}

func (s *transitionService) CreateAlteration(ctx context.Context, userID string, req CreateAlterationRequest) (AlterationResult, error) {
	if err := validateRequest(req); err != nil {
		s.reject(OpCreateAlteration, err, logrus.Fields{"sub_batch_id": req.SubBatchID})
		return AlterationResult{}, err
	}
	out, err := s.splitTransition(ctx, userID, splitRequest{
		subBatchID:    req.SubBatchID,
		fromStageID:   req.FromStageID,
		toStageID:     req.ToStageID,
		ledgerEntryID: req.LedgerEntryID,
		workLogID:     req.WorkLogID,
		quantity:      req.Quantity,
		reason:        req.Note,
	}, model.LineageAltered, req)
	if err != nil {
		return AlterationResult{}, err
	}
	return AlterationResult{TransitionResult: out.result(), Record: out.alteration}, nil
}

func (s *transitionService) Advance(ctx context.Context, userID string, ledgerEntryID string, req AdvanceRequest) (TransitionResult, error) {
	entryID, err := parseID("ledger_entry_id", ledgerEntryID)
	if err == nil {
		err = validateRequest(req)
	}
	if err != nil {
		s.reject(OpAdvance, err, logrus.Fields{"ledger_entry_id": ledgerEntryID})
		return TransitionResult{}, err
	}
	toStageID, err := parseID("to_stage_id", req.ToStageID)
	if err != nil {
		return TransitionResult{}, err
	}

	out, err := s.transfer(ctx, userID, transferSpec{
		operation: OpAdvance,
		action:    model.ActionAdvance,
		sourceID:  entryID,
		quantity:  req.Quantity,
		target:    toStageID,
		lineage:   model.LineageMain,
		reason:    strings.TrimSpace(req.Note),
		event:     model.EventAdvance,
		details:   req,
	})
	if err != nil {
		return TransitionResult{}, err
	}
	return out.result(), nil
}

// StartSubBatch places a sub-batch's full quantity at the first stage of its workflow
func (s *transitionService) StartSubBatch(ctx context.Context, userID string, subBatchID string) (TransitionResult, error) {
	id, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		s.reject(OpStartSubBatch, err, logrus.Fields{"sub_batch_id": subBatchID})
		return TransitionResult{}, err
	}

	ctx, span := tracer.Start(ctx, "transition."+OpStartSubBatch, trace.WithAttributes(
		attribute.String("sub_batch.id", id.String()),
	))
	defer span.End()

	var entry model.LedgerEntry
	var history model.HistoryEvent
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		subBatch, err := s.repos.MasterData.FindSubBatch(txCtx, id)
		if err != nil {
			return lookupErr(err, "sub-batch", id)
		}
		if subBatch.Quantity <= 0 {
			return apperror.Validation("sub-batch %s has no pieces to start", id)
		}
		if subBatch.WorkflowID == nil {
			return apperror.Validation("sub-batch %s has no workflow", id)
		}
		steps, err := s.repos.MasterData.ListWorkflowSteps(txCtx, *subBatch.WorkflowID)
		if err != nil {
			return fmt.Errorf("failed to load workflow: %w", err)
		}
		if len(steps) == 0 {
			return apperror.Validation("workflow of sub-batch %s has no steps", id)
		}
		started, err := s.repos.Ledger.CountBySubBatch(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to count ledger entries: %w", err)
		}
		if started > 0 {
			return apperror.Validation("sub-batch %s has already been started", id)
		}

		entry = model.LedgerEntry{
			SubBatchID:        id,
			StageID:           steps[0].StageID,
			LineageTag:        model.LineageMain,
			TotalQuantity:     subBatch.Quantity,
			QuantityRemaining: subBatch.Quantity,
			IsCurrent:         true,
		}
		if err := s.repos.Ledger.Create(txCtx, &entry); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.ConcurrentModification(err, "sub-batch %s was started concurrently", id)
			}
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}

		history = model.HistoryEvent{
			LedgerEntryID: entry.ID,
			SubBatchID:    id,
			ToStageID:     entry.StageID,
			EventType:     model.EventArrival,
		}
		if err := s.repos.History.Append(txCtx, &history); err != nil {
			return fmt.Errorf("failed to append history event: %w", err)
		}

		audit := &model.AuditLog{
			ActorID:    userID,
			Action:     model.ActionStartSubBatch,
			EntityID:   id.String(),
			EntityName: subBatch.Name,
			Details:    marshalDetails(map[string]interface{}{"stage_id": entry.StageID, "quantity": entry.TotalQuantity}),
		}
		if err := s.repos.Audit.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.reject(OpStartSubBatch, err, logrus.Fields{"sub_batch_id": subBatchID})
		return TransitionResult{}, err
	}

	s.committed(OpStartSubBatch, model.LineageMain, entry.TotalQuantity)
	if s.publisher != nil {
		s.publisher.Publish(EventSubBatchStarted, map[string]interface{}{
			"sub_batch_id":    id.String(),
			"stage_id":        entry.StageID.String(),
			"ledger_entry_id": entry.ID.String(),
			"quantity":        entry.TotalQuantity,
		})
	}
	s.log.WithFields(logrus.Fields{
		"operation":    OpStartSubBatch,
		"sub_batch_id": id.String(),
		"new_entry_id": entry.ID.String(),
		"quantity":     entry.TotalQuantity,
	}).Info("ledger transition committed")

	return TransitionResult{Entry: entry, History: history, CreatedAt: entry.CreatedAt}, nil
}

func (s *transitionService) AssignWorker(ctx context.Context, userID string, ledgerEntryID string, req AssignWorkerRequest) (model.LedgerEntry, error) {
	entryID, err := parseID("ledger_entry_id", ledgerEntryID)
	if err == nil {
		err = validateRequest(req)
	}
	var workerID *uuid.UUID
	if err == nil && req.WorkerID != nil {
		workerID, err = parseOptionalID("worker_id", *req.WorkerID)
	}
	if err != nil {
		s.reject(OpAssignWorker, err, logrus.Fields{"ledger_entry_id": ledgerEntryID})
		return model.LedgerEntry{}, err
	}

	var entry *model.LedgerEntry
	err = s.repos.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = s.repos.Ledger.FindByIDForUpdate(txCtx, entryID)
		if err != nil {
			return lookupErr(err, "ledger entry", entryID)
		}
		if !entry.IsCurrent {
			return apperror.Inactive("ledger entry %s is not the current tranche at its stage", entryID)
		}

		workerName := ""
		if workerID != nil {
			worker, err := s.repos.MasterData.FindWorker(txCtx, *workerID)
			if err != nil {
				return lookupErr(err, "worker", *workerID)
			}
			workerName = worker.Name
		}

		if err := s.repos.Ledger.SetAssignedWorker(txCtx, entryID, workerID); err != nil {
			return fmt.Errorf("failed to assign worker: %w", err)
		}
		entry.AssignedWorkerID = workerID

		audit := &model.AuditLog{
			ActorID:    userID,
			Action:     model.ActionAssignWorker,
			EntityID:   entryID.String(),
			EntityName: workerName,
			Details:    marshalDetails(map[string]interface{}{"worker_id": uuidString(workerID)}),
		}
		if err := s.repos.Audit.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		s.reject(OpAssignWorker, err, logrus.Fields{"ledger_entry_id": ledgerEntryID})
		return model.LedgerEntry{}, err
	}

	// Reload for the fresh updated_at
	if reloaded, err := s.repos.Ledger.FindByID(ctx, entryID); err == nil {
		entry = reloaded
	}

	if s.publisher != nil {
		s.publisher.Publish(EventWorkerAssigned, map[string]interface{}{
			"ledger_entry_id": entryID.String(),
			"sub_batch_id":    entry.SubBatchID.String(),
			"stage_id":        entry.StageID.String(),
			"worker_id":       uuidString(workerID),
		})
	}
	s.log.WithFields(logrus.Fields{
		"operation":       OpAssignWorker,
		"ledger_entry_id": entryID.String(),
		"worker_id":       uuidString(workerID),
	}).Info("worker assignment committed")

	return *entry, nil
}

func (s *transitionService) FindActiveEntry(ctx context.Context, subBatchID, stageID string) (model.LedgerEntry, error) {
	sbID, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	stID, err := parseID("stage_id", stageID)
	if err != nil {
		return model.LedgerEntry{}, err
	}

	entry, err := s.repos.Ledger.FindActive(ctx, sbID, stID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.LedgerEntry{}, apperror.NotFound("no active ledger entry for sub-batch %s at stage %s", sbID, stID)
		}
		return model.LedgerEntry{}, fmt.Errorf("failed to find active ledger entry: %w", err)
	}
	return *entry, nil
}

func (s *transitionService) ListLedgerEntries(ctx context.Context, subBatchID string) ([]model.LedgerEntry, error) {
	id, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.MasterData.FindSubBatch(ctx, id); err != nil {
		return nil, lookupErr(err, "sub-batch", id)
	}
	entries, err := s.repos.Ledger.ListBySubBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (o transferOutcome) result() TransitionResult {
	source := o.source
	return TransitionResult{
		Source:    &source,
		Entry:     o.entry,
		History:   o.history,
		CreatedAt: o.entry.CreatedAt,
	}
}

func (s *transitionService) committed(operation string, lineage model.Lineage, quantity int) {
	s.metrics.ObserveTransition(operation, string(lineage), quantity)
}

func (s *transitionService) publish(event, operation string, out transferOutcome) {
	if s.publisher == nil {
		return
	}
	if operation == OpAdvance {
		event = EventTrancheAdvanced
	}
	s.publisher.Publish(event, map[string]interface{}{
		"operation":       operation,
		"sub_batch_id":    out.entry.SubBatchID.String(),
		"source_entry_id": out.source.ID.String(),
		"new_entry_id":    out.entry.ID.String(),
		"from_stage_id":   out.source.StageID.String(),
		"to_stage_id":     out.entry.StageID.String(),
		"lineage":         string(out.entry.LineageTag),
		"quantity":        out.entry.TotalQuantity,
		"remaining":       out.source.QuantityRemaining,
	})
}

// reject records a refused call. Caller errors log at warn, anything else is
// an infrastructure failure.
func (s *transitionService) reject(operation string, err error, fields logrus.Fields) {
	s.metrics.ObserveRejected(operation, err)
	kind := apperror.KindOf(err)
	if kind == "" {
		logger.LogError(s.log, "TransitionService", operation, "transaction failed", fields, err)
		return
	}
	fields["operation"] = operation
	fields["error_kind"] = string(kind)
	s.log.WithFields(fields).Warn(err.Error())
}
