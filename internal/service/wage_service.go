package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"garmentflow/internal/apperror"
	"garmentflow/internal/model"
	"garmentflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateRange bounds wage queries by work date, both ends inclusive. Nil means open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange reads YYYY-MM-DD bounds; empty strings leave that end open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := parseDate("start_date", start)
		if err != nil {
			return DateRange{}, err
		}
		r.Start = &t
	}
	if end != "" {
		t, err := parseDate("end_date", end)
		if err != nil {
			return DateRange{}, err
		}
		r.End = &t
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return DateRange{}, apperror.ValidationFields(map[string]string{"end_date": "must not be before start_date"})
	}
	return r, nil
}

type WageLogDetail struct {
	WorkLogID      string          `json:"work_log_id"`
	SubBatchID     string          `json:"sub_batch_id"`
	SubBatchName   string          `json:"sub_batch_name"`
	StageID        string          `json:"stage_id"`
	StageName      string          `json:"stage_name"`
	WorkDate       string          `json:"work_date"`
	QuantityWorked int             `json:"quantity_worked"`
	UnitPrice      decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Amount         decimal.Decimal `json:"amount" swaggertype:"string"`
	IsBillable     bool            `json:"is_billable"`
	ActivityType   string          `json:"activity_type"`
}

// WageTotals splits pay into billable and non-billable buckets
type WageTotals struct {
	TotalBillableWages    decimal.Decimal `json:"total_billable_wages" swaggertype:"string"`
	TotalNonBillableWages decimal.Decimal `json:"total_non_billable_wages" swaggertype:"string"`
	TotalWages            decimal.Decimal `json:"total_wages" swaggertype:"string"`
	BillableEntries       int             `json:"billable_entries"`
	NonBillableEntries    int             `json:"non_billable_entries"`
	TotalEntries          int             `json:"total_entries"`
	TotalQuantityWorked   int             `json:"total_quantity_worked"`
}

func (t *WageTotals) add(l model.WorkLog) {
	amount := l.Amount()
	if l.IsBillable {
		t.TotalBillableWages = t.TotalBillableWages.Add(amount)
		t.BillableEntries++
	} else {
		t.TotalNonBillableWages = t.TotalNonBillableWages.Add(amount)
		t.NonBillableEntries++
	}
	t.TotalWages = t.TotalWages.Add(amount)
	t.TotalEntries++
	t.TotalQuantityWorked += l.QuantityWorked
}

func (t *WageTotals) merge(o WageTotals) {
	t.TotalBillableWages = t.TotalBillableWages.Add(o.TotalBillableWages)
	t.TotalNonBillableWages = t.TotalNonBillableWages.Add(o.TotalNonBillableWages)
	t.TotalWages = t.TotalWages.Add(o.TotalWages)
	t.BillableEntries += o.BillableEntries
	t.NonBillableEntries += o.NonBillableEntries
	t.TotalEntries += o.TotalEntries
	t.TotalQuantityWorked += o.TotalQuantityWorked
}

type WorkerWageSummary struct {
	WorkerID   string `json:"worker_id,omitempty"`
	WorkerName string `json:"worker_name"`
	WageTotals
}

type WorkerWages struct {
	Summary      WorkerWageSummary `json:"summary"`
	DetailedLogs []WageLogDetail   `json:"detailed_logs"`
}

type DepartmentWageSummary struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	WorkerCount    int    `json:"worker_count"`
	WageTotals
	Workers []WorkerWageSummary `json:"workers"`
}

type SubBatchWageSummary struct {
	SubBatchID   string `json:"sub_batch_id"`
	SubBatchName string `json:"sub_batch_name"`
	WageTotals
	Workers []WorkerWageSummary `json:"workers"`
}

// WageService aggregates work logs into pay. Every method is read-only, and
// a filter matching no logs yields zero totals rather than an error.
type WageService interface {
	CalculateWorkerWages(ctx context.Context, workerID string, r DateRange) (WorkerWages, error)
	CalculateAllWorkersWages(ctx context.Context, r DateRange, departmentID string) ([]WorkerWageSummary, error)
	GetDepartmentWageSummary(ctx context.Context, departmentID string, r DateRange) (DepartmentWageSummary, error)
	GetSubBatchWageSummary(ctx context.Context, subBatchID string) (SubBatchWageSummary, error)
	ExportWorkerWages(ctx context.Context, r DateRange, departmentID string) ([]byte, error)
}

type wageService struct {
	repos repository.Repositories
}

func NewWageService(repos repository.Repositories) WageService {
	return &wageService{repos: repos}
}

func (s *wageService) CalculateWorkerWages(ctx context.Context, workerID string, r DateRange) (WorkerWages, error) {
	id, err := parseID("worker_id", workerID)
	if err != nil {
		return WorkerWages{}, err
	}
	worker, err := s.repos.MasterData.FindWorker(ctx, id)
	if err != nil {
		return WorkerWages{}, lookupErr(err, "worker", id)
	}

	logs, err := s.repos.WorkLogs.List(ctx, repository.WorkLogFilter{WorkerID: &id, StartDate: r.Start, EndDate: r.End})
	if err != nil {
		return WorkerWages{}, fmt.Errorf("failed to list work logs: %w", err)
	}

	subBatchIDs := make([]uuid.UUID, 0, len(logs))
	stageIDs := make([]uuid.UUID, 0, len(logs))
	for _, l := range logs {
		subBatchIDs = append(subBatchIDs, l.SubBatchID)
		stageIDs = append(stageIDs, l.StageID)
	}
	subBatchNames, err := s.repos.MasterData.SubBatchNames(ctx, subBatchIDs)
	if err != nil {
		return WorkerWages{}, fmt.Errorf("failed to load sub-batch names: %w", err)
	}
	stageNames, err := s.repos.MasterData.DepartmentNames(ctx, stageIDs)
	if err != nil {
		return WorkerWages{}, fmt.Errorf("failed to load stage names: %w", err)
	}

	out := WorkerWages{
		Summary:      WorkerWageSummary{WorkerID: worker.ID.String(), WorkerName: worker.Name},
		DetailedLogs: make([]WageLogDetail, 0, len(logs)),
	}
	for _, l := range logs {
		out.Summary.add(l)
		out.DetailedLogs = append(out.DetailedLogs, WageLogDetail{
			WorkLogID:      l.ID.String(),
			SubBatchID:     l.SubBatchID.String(),
			SubBatchName:   subBatchNames[l.SubBatchID],
			StageID:        l.StageID.String(),
			StageName:      stageNames[l.StageID],
			WorkDate:       l.WorkDate.Format(dateLayout),
			QuantityWorked: l.QuantityWorked,
			UnitPrice:      l.UnitPrice,
			Amount:         l.Amount(),
			IsBillable:     l.IsBillable,
			ActivityType:   string(l.ActivityType),
		})
	}
	return out, nil
}

func (s *wageService) CalculateAllWorkersWages(ctx context.Context, r DateRange, departmentID string) ([]WorkerWageSummary, error) {
	filter := repository.WorkLogFilter{StartDate: r.Start, EndDate: r.End}

	if departmentID != "" {
		deptID, err := parseID("department_id", departmentID)
		if err != nil {
			return nil, err
		}
		if _, err := s.repos.MasterData.FindDepartment(ctx, deptID); err != nil {
			return nil, lookupErr(err, "department", deptID)
		}
		workers, err := s.repos.MasterData.ListWorkersByDepartment(ctx, deptID)
		if err != nil {
			return nil, fmt.Errorf("failed to list workers: %w", err)
		}
		if len(workers) == 0 {
			return []WorkerWageSummary{}, nil
		}
		filter.WorkerIDs = make([]uuid.UUID, 0, len(workers))
		for _, w := range workers {
			filter.WorkerIDs = append(filter.WorkerIDs, w.ID)
		}
	}

	logs, err := s.repos.WorkLogs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list work logs: %w", err)
	}
	return s.groupByWorker(ctx, logs)
}

func (s *wageService) GetDepartmentWageSummary(ctx context.Context, departmentID string, r DateRange) (DepartmentWageSummary, error) {
	deptID, err := parseID("department_id", departmentID)
	if err != nil {
		return DepartmentWageSummary{}, err
	}
	dept, err := s.repos.MasterData.FindDepartment(ctx, deptID)
	if err != nil {
		return DepartmentWageSummary{}, lookupErr(err, "department", deptID)
	}

	workers, err := s.CalculateAllWorkersWages(ctx, r, departmentID)
	if err != nil {
		return DepartmentWageSummary{}, err
	}

	out := DepartmentWageSummary{
		DepartmentID:   dept.ID.String(),
		DepartmentName: dept.Name,
		WorkerCount:    len(workers),
		Workers:        workers,
	}
	for _, w := range workers {
		out.merge(w.WageTotals)
	}
	return out, nil
}

func (s *wageService) GetSubBatchWageSummary(ctx context.Context, subBatchID string) (SubBatchWageSummary, error) {
	id, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return SubBatchWageSummary{}, err
	}
	subBatch, err := s.repos.MasterData.FindSubBatch(ctx, id)
	if err != nil {
		return SubBatchWageSummary{}, lookupErr(err, "sub-batch", id)
	}

	logs, err := s.repos.WorkLogs.List(ctx, repository.WorkLogFilter{SubBatchID: &id})
	if err != nil {
		return SubBatchWageSummary{}, fmt.Errorf("failed to list work logs: %w", err)
	}
	workers, err := s.groupByWorker(ctx, logs)
	if err != nil {
		return SubBatchWageSummary{}, err
	}

	out := SubBatchWageSummary{
		SubBatchID:   subBatch.ID.String(),
		SubBatchName: subBatch.Name,
		Workers:      workers,
	}
	for _, w := range workers {
		out.merge(w.WageTotals)
	}
	return out, nil
}

// groupByWorker totals logs per worker, sorted by billable wages descending.
// Logs recorded by name only are grouped under that name.
func (s *wageService) groupByWorker(ctx context.Context, logs []model.WorkLog) ([]WorkerWageSummary, error) {
	var workerIDs []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, l := range logs {
		if l.WorkerID != nil && !seen[*l.WorkerID] {
			seen[*l.WorkerID] = true
			workerIDs = append(workerIDs, *l.WorkerID)
		}
	}
	workers, err := s.repos.MasterData.ListWorkers(ctx, workerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	names := make(map[uuid.UUID]string, len(workers))
	for _, w := range workers {
		names[w.ID] = w.Name
	}

	index := make(map[string]int)
	out := []WorkerWageSummary{}
	for _, l := range logs {
		key := "name:" + l.WorkerName
		summary := WorkerWageSummary{WorkerName: l.WorkerName}
		if l.WorkerID != nil {
			key = l.WorkerID.String()
			summary.WorkerID = key
			if name, ok := names[*l.WorkerID]; ok {
				summary.WorkerName = name
			}
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, summary)
		}
		out[i].add(l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalBillableWages.Cmp(out[j].TotalBillableWages); c != 0 {
			return c > 0
		}
		if out[i].WorkerName != out[j].WorkerName {
			return out[i].WorkerName < out[j].WorkerName
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out, nil
}
