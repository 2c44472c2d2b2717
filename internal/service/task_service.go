package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"garmentflow/internal/apperror"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const routeSeparator = " → "

type RouteStep struct {
	StepIndex int    `json:"step_index"`
	StageID   string `json:"stage_id"`
	StageName string `json:"stage_name"`
}

type TaskTotals struct {
	Worked    int `json:"total_worked"`
	Rejected  int `json:"total_rejected"`
	Altered   int `json:"total_altered"`
	Remaining int `json:"remaining"`
}

// WorkerRow is one work log of the task with the splits it spawned
type WorkerRow struct {
	WorkLogID         string          `json:"work_log_id"`
	LedgerEntryID     string          `json:"ledger_entry_id"`
	WorkerID          string          `json:"worker_id,omitempty"`
	WorkerName        string          `json:"worker_name"`
	WorkDate          string          `json:"work_date"`
	QuantityReceived  int             `json:"quantity_received"`
	QuantityWorked    int             `json:"quantity_worked"`
	QuantityRejected  int             `json:"quantity_rejected"`
	QuantityAltered   int             `json:"quantity_altered"`
	UnitPrice         decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string"`
	IsBillable        bool            `json:"is_billable"`
	ActivityType      string          `json:"activity_type"`
	Particulars       string          `json:"particulars"`
	RejectionReasons  string          `json:"rejection_reasons"`
	AlterationReasons string          `json:"alteration_reasons"`
}

// TaskDetailsView is the supervisor's view of one sub-batch at one stage
type TaskDetailsView struct {
	SubBatchID   string                     `json:"sub_batch_id"`
	SubBatchName string                     `json:"sub_batch_name"`
	BatchName    string                     `json:"batch_name"`
	StageID      string                     `json:"stage_id"`
	StageName    string                     `json:"stage_name"`
	Status       model.TaskStatus           `json:"status"`
	CurrentEntry *model.LedgerEntry         `json:"current_entry"`
	Entries      []model.LedgerEntry        `json:"entries"`
	Totals       TaskTotals                 `json:"totals"`
	Workers      []WorkerRow                `json:"workers"`
	PlannedRoute string                     `json:"planned_route"`
	RouteSteps   []RouteStep                `json:"route_steps"`
	Attachments  []model.SubBatchAttachment `json:"attachments"`
}

type TaskService interface {
	GetTaskDetails(ctx context.Context, subBatchID, stageID string) (TaskDetailsView, error)
}

type taskService struct {
	repos repository.Repositories
}

func NewTaskService(repos repository.Repositories) TaskService {
	return &taskService{repos: repos}
}

func (s *taskService) GetTaskDetails(ctx context.Context, subBatchID, stageID string) (TaskDetailsView, error) {
	sbID, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return TaskDetailsView{}, err
	}
	stID, err := parseID("stage_id", stageID)
	if err != nil {
		return TaskDetailsView{}, err
	}

	subBatch, err := s.repos.MasterData.FindSubBatch(ctx, sbID)
	if err != nil {
		return TaskDetailsView{}, lookupErr(err, "sub-batch", sbID)
	}
	stage, err := s.repos.MasterData.FindDepartment(ctx, stID)
	if err != nil {
		return TaskDetailsView{}, lookupErr(err, "stage", stID)
	}

	entries, err := s.repos.Ledger.ListByTask(ctx, sbID, stID)
	if err != nil {
		return TaskDetailsView{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	if len(entries) == 0 {
		return TaskDetailsView{}, apperror.NotFound("sub-batch %s has not reached stage %s", sbID, stID)
	}

	var current *model.LedgerEntry
	active, err := s.repos.Ledger.FindActive(ctx, sbID, stID)
	switch {
	case err == nil:
		current = active
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return TaskDetailsView{}, fmt.Errorf("failed to find active ledger entry: %w", err)
	}

	logs, err := s.repos.WorkLogs.ListByTask(ctx, sbID, stID)
	if err != nil {
		return TaskDetailsView{}, fmt.Errorf("failed to list work logs: %w", err)
	}

	steps, route, err := loadRoute(ctx, s.repos.MasterData, subBatch)
	if err != nil {
		return TaskDetailsView{}, err
	}
	attachments, err := s.repos.MasterData.ListAttachments(ctx, sbID)
	if err != nil {
		return TaskDetailsView{}, fmt.Errorf("failed to list attachments: %w", err)
	}

	var targetIDs []uuid.UUID
	for _, l := range logs {
		for _, r := range l.Rejections {
			targetIDs = append(targetIDs, r.TargetStageID)
		}
		for _, a := range l.Alterations {
			targetIDs = append(targetIDs, a.TargetStageID)
		}
	}
	stageNames, err := s.repos.MasterData.DepartmentNames(ctx, targetIDs)
	if err != nil {
		return TaskDetailsView{}, fmt.Errorf("failed to load stage names: %w", err)
	}

	view := TaskDetailsView{
		SubBatchID:   subBatch.ID.String(),
		SubBatchName: subBatch.Name,
		BatchName:    subBatch.BatchName,
		StageID:      stage.ID.String(),
		StageName:    stage.Name,
		CurrentEntry: current,
		Entries:      entries,
		Workers:      make([]WorkerRow, 0, len(logs)),
		PlannedRoute: route,
		RouteSteps:   steps,
		Attachments:  attachments,
	}

	for _, l := range logs {
		row := WorkerRow{
			WorkLogID:        l.ID.String(),
			LedgerEntryID:    l.LedgerEntryID.String(),
			WorkerID:         uuidString(l.WorkerID),
			WorkerName:       l.WorkerName,
			WorkDate:         l.WorkDate.Format(dateLayout),
			QuantityReceived: l.QuantityReceived,
			QuantityWorked:   l.QuantityWorked,
			QuantityRejected: l.RejectedQuantity(),
			QuantityAltered:  l.AlteredQuantity(),
			UnitPrice:        l.UnitPrice,
			Amount:           l.Amount(),
			IsBillable:       l.IsBillable,
			ActivityType:     string(l.ActivityType),
			Particulars:      l.Particulars,
		}

		reasons := make([]string, 0, len(l.Rejections))
		for _, r := range l.Rejections {
			reasons = append(reasons, r.Reason+" - Returned to "+stageNames[r.TargetStageID])
		}
		row.RejectionReasons = strings.Join(reasons, "; ")

		reasons = make([]string, 0, len(l.Alterations))
		for _, a := range l.Alterations {
			reasons = append(reasons, a.Reason+" - Sent to "+stageNames[a.TargetStageID])
		}
		row.AlterationReasons = strings.Join(reasons, "; ")

		view.Totals.Worked += row.QuantityWorked
		view.Workers = append(view.Workers, row)
	}

	// Split totals come from the records themselves, so splits made without a
	// work log still reconcile against the stage's tranches.
	if err := s.addSplitTotals(ctx, sbID, entries, &view.Totals); err != nil {
		return TaskDetailsView{}, err
	}

	hasWork := false
	if current != nil {
		view.Totals.Remaining = current.QuantityRemaining
		if hasWork, err = s.repos.WorkLogs.ExistsForEntry(ctx, current.ID); err != nil {
			return TaskDetailsView{}, fmt.Errorf("failed to check work logs: %w", err)
		}
	}
	view.Status = model.DeriveTaskStatus(current, hasWork)
	return view, nil
}

// addSplitTotals sums the rejection and alteration records sourced from the
// given tranches
func (s *taskService) addSplitTotals(ctx context.Context, subBatchID uuid.UUID, entries []model.LedgerEntry, totals *TaskTotals) error {
	atStage := make(map[uuid.UUID]bool, len(entries))
	for _, e := range entries {
		atStage[e.ID] = true
	}

	rejections, err := s.repos.SplitRecords.ListRejections(ctx, subBatchID)
	if err != nil {
		return fmt.Errorf("failed to list rejections: %w", err)
	}
	for _, r := range rejections {
		if atStage[r.SourceLedgerEntryID] {
			totals.Rejected += r.Quantity
		}
	}

	alterations, err := s.repos.SplitRecords.ListAlterations(ctx, subBatchID)
	if err != nil {
		return fmt.Errorf("failed to list alterations: %w", err)
	}
	for _, a := range alterations {
		if atStage[a.SourceLedgerEntryID] {
			totals.Altered += a.Quantity
		}
	}
	return nil
}

// loadRoute returns the planned route of a sub-batch and its display string
func loadRoute(ctx context.Context, master repository.MasterDataRepository, subBatch *model.SubBatch) ([]RouteStep, string, error) {
	steps := []RouteStep{}
	if subBatch.WorkflowID == nil {
		return steps, "", nil
	}

	workflowSteps, err := master.ListWorkflowSteps(ctx, *subBatch.WorkflowID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load workflow: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(workflowSteps))
	for _, ws := range workflowSteps {
		ids = append(ids, ws.StageID)
	}
	names, err := master.DepartmentNames(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load stage names: %w", err)
	}

	labels := make([]string, 0, len(workflowSteps))
	for _, ws := range workflowSteps {
		steps = append(steps, RouteStep{
			StepIndex: ws.StepIndex,
			StageID:   ws.StageID.String(),
			StageName: names[ws.StageID],
		})
		labels = append(labels, names[ws.StageID])
	}
	return steps, strings.Join(labels, routeSeparator), nil
}
