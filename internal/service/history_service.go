package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"garmentflow/internal/model"
	"garmentflow/internal/repository"

	"github.com/google/uuid"
)

// StageDetail is one arrival in the actual route of a sub-batch
type StageDetail struct {
	HistoryID         string                 `json:"history_id"`
	EventType         model.HistoryEventType `json:"event_type"`
	LedgerEntryID     string                 `json:"ledger_entry_id"`
	StageID           string                 `json:"stage_id"`
	StageName         string                 `json:"stage_name"`
	FromStageID       string                 `json:"from_stage_id,omitempty"`
	FromStageName     string                 `json:"from_stage_name,omitempty"`
	OriginStageName   string                 `json:"origin_stage_name,omitempty"`
	Lineage           model.Lineage          `json:"lineage"`
	Reason            string                 `json:"reason,omitempty"`
	TotalQuantity     int                    `json:"total_quantity"`
	QuantityRemaining int                    `json:"quantity_remaining"`
	IsCurrent         bool                   `json:"is_current"`
	QuantityWorked    int                    `json:"quantity_worked"`
	Workers           []string               `json:"workers"`
	ArrivedAt         time.Time              `json:"arrived_at"`
}

type SubBatchHistory struct {
	SubBatchID      string        `json:"sub_batch_id"`
	SubBatchName    string        `json:"sub_batch_name"`
	PlannedRoute    string        `json:"planned_route"`
	RouteSteps      []RouteStep   `json:"route_steps"`
	CompletedStages []StageDetail `json:"completed_stages"`
}

type HistoryService interface {
	GetSubBatchHistory(ctx context.Context, subBatchID string) (SubBatchHistory, error)
}

type historyService struct {
	repos repository.Repositories
}

func NewHistoryService(repos repository.Repositories) HistoryService {
	return &historyService{repos: repos}
}

func (s *historyService) GetSubBatchHistory(ctx context.Context, subBatchID string) (SubBatchHistory, error) {
	id, err := parseID("sub_batch_id", subBatchID)
	if err != nil {
		return SubBatchHistory{}, err
	}
	subBatch, err := s.repos.MasterData.FindSubBatch(ctx, id)
	if err != nil {
		return SubBatchHistory{}, lookupErr(err, "sub-batch", id)
	}

	steps, route, err := loadRoute(ctx, s.repos.MasterData, subBatch)
	if err != nil {
		return SubBatchHistory{}, err
	}

	events, err := s.repos.History.ListBySubBatch(ctx, id)
	if err != nil {
		return SubBatchHistory{}, fmt.Errorf("failed to list history: %w", err)
	}
	entries, err := s.repos.Ledger.ListBySubBatch(ctx, id)
	if err != nil {
		return SubBatchHistory{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	logs, err := s.repos.WorkLogs.List(ctx, repository.WorkLogFilter{SubBatchID: &id})
	if err != nil {
		return SubBatchHistory{}, fmt.Errorf("failed to list work logs: %w", err)
	}

	entryByID := make(map[uuid.UUID]model.LedgerEntry, len(entries))
	for _, e := range entries {
		entryByID[e.ID] = e
	}

	worked := make(map[uuid.UUID]int)
	workers := make(map[uuid.UUID]map[string]struct{})
	for _, l := range logs {
		worked[l.LedgerEntryID] += l.QuantityWorked
		if workers[l.LedgerEntryID] == nil {
			workers[l.LedgerEntryID] = make(map[string]struct{})
		}
		if l.WorkerName != "" {
			workers[l.LedgerEntryID][l.WorkerName] = struct{}{}
		}
	}

	var stageIDs []uuid.UUID
	for _, ev := range events {
		stageIDs = append(stageIDs, ev.ToStageID)
		if ev.FromStageID != nil {
			stageIDs = append(stageIDs, *ev.FromStageID)
		}
	}
	for _, e := range entries {
		if e.SentFromStageID != nil {
			stageIDs = append(stageIDs, *e.SentFromStageID)
		}
	}
	names, err := s.repos.MasterData.DepartmentNames(ctx, stageIDs)
	if err != nil {
		return SubBatchHistory{}, fmt.Errorf("failed to load stage names: %w", err)
	}

	completed := make([]StageDetail, 0, len(events))
	for _, ev := range events {
		detail := StageDetail{
			HistoryID:     ev.ID.String(),
			EventType:     ev.EventType,
			LedgerEntryID: ev.LedgerEntryID.String(),
			StageID:       ev.ToStageID.String(),
			StageName:     names[ev.ToStageID],
			ArrivedAt:     ev.CreatedAt,
			Workers:       []string{},
		}
		if ev.FromStageID != nil {
			detail.FromStageID = ev.FromStageID.String()
			detail.FromStageName = names[*ev.FromStageID]
		}
		if ev.Reason != nil {
			detail.Reason = *ev.Reason
		}

		if entry, ok := entryByID[ev.LedgerEntryID]; ok {
			detail.Lineage = entry.LineageTag
			detail.TotalQuantity = entry.TotalQuantity
			detail.QuantityRemaining = entry.QuantityRemaining
			detail.IsCurrent = entry.IsCurrent
			if entry.SentFromStageID != nil {
				detail.OriginStageName = names[*entry.SentFromStageID]
			}
			if detail.Reason == "" {
				detail.Reason = entry.Reason()
			}
		}

		detail.QuantityWorked = worked[ev.LedgerEntryID]
		for name := range workers[ev.LedgerEntryID] {
			detail.Workers = append(detail.Workers, name)
		}
		sort.Strings(detail.Workers)

		completed = append(completed, detail)
	}

	return SubBatchHistory{
		SubBatchID:      subBatch.ID.String(),
		SubBatchName:    subBatch.Name,
		PlannedRoute:    route,
		RouteSteps:      steps,
		CompletedStages: completed,
	}, nil
}
