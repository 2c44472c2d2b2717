package repository

import (
	"context"

	"garmentflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MasterDataRepository reads the records owned by the CRUD screens:
// stages, workers, sub-batches and their planned routes.
type MasterDataRepository interface {
	FindSubBatch(ctx context.Context, id uuid.UUID) (*model.SubBatch, error)
	FindDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error)
	FindWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error)
	DepartmentNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	SubBatchNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	ListWorkers(ctx context.Context, ids []uuid.UUID) ([]model.Worker, error)
	ListWorkersByDepartment(ctx context.Context, departmentID uuid.UUID) ([]model.Worker, error)
	ListWorkflowSteps(ctx context.Context, workflowID uuid.UUID) ([]model.WorkflowStep, error)
	ListAttachments(ctx context.Context, subBatchID uuid.UUID) ([]model.SubBatchAttachment, error)
}

type masterDataRepository struct {
	db *gorm.DB
}

func NewMasterDataRepository(db *gorm.DB) MasterDataRepository {
	return &masterDataRepository{db: db}
}

func (r *masterDataRepository) FindSubBatch(ctx context.Context, id uuid.UUID) (*model.SubBatch, error) {
	var subBatch model.SubBatch
	if err := GetDB(ctx, r.db).First(&subBatch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subBatch, nil
}

func (r *masterDataRepository) FindDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	var department model.Department
	if err := GetDB(ctx, r.db).First(&department, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *masterDataRepository) FindWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	var worker model.Worker
	if err := GetDB(ctx, r.db).First(&worker, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *masterDataRepository) DepartmentNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var departments []model.Department
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&departments).Error; err != nil {
		return nil, err
	}
	for _, d := range departments {
		names[d.ID] = d.Name
	}
	return names, nil
}

func (r *masterDataRepository) SubBatchNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var subBatches []model.SubBatch
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&subBatches).Error; err != nil {
		return nil, err
	}
	for _, s := range subBatches {
		names[s.ID] = s.Name
	}
	return names, nil
}

func (r *masterDataRepository) ListWorkers(ctx context.Context, ids []uuid.UUID) ([]model.Worker, error) {
	var workers []model.Worker
	if len(ids) == 0 {
		return workers, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *masterDataRepository) ListWorkersByDepartment(ctx context.Context, departmentID uuid.UUID) ([]model.Worker, error) {
	var workers []model.Worker
	if err := GetDB(ctx, r.db).Where("department_id = ?", departmentID).Order("name asc").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}

func (r *masterDataRepository) ListWorkflowSteps(ctx context.Context, workflowID uuid.UUID) ([]model.WorkflowStep, error) {
	var steps []model.WorkflowStep
	if err := GetDB(ctx, r.db).Where("workflow_id = ?", workflowID).Order("step_index asc").Find(&steps).Error; err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *masterDataRepository) ListAttachments(ctx context.Context, subBatchID uuid.UUID) ([]model.SubBatchAttachment, error) {
	var attachments []model.SubBatchAttachment
	if err := GetDB(ctx, r.db).Where("sub_batch_id = ?", subBatchID).Order("name asc").Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}
