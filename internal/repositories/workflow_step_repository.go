package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbm "tripflow/internal/models/db_models"
	"tripflow/internal/workflow"
)

// WorkflowStepRepository is the relational checkpoint log behind the workflow engine.
type WorkflowStepRepository struct {
	db *gorm.DB
}

func NewWorkflowStepRepository(db *gorm.DB) *WorkflowStepRepository {
	return &WorkflowStepRepository{db: db}
}

var _ workflow.CheckpointStore = (*WorkflowStepRepository)(nil)

func (r *WorkflowStepRepository) Load(ctx context.Context, instanceID, stepName string) (*workflow.Checkpoint, error) {
	var row dbm.WorkflowStep
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND step_name = ?", instanceID, stepName).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow step: %w", err)
	}
	cp := toCheckpoint(row)
	return &cp, nil
}

func (r *WorkflowStepRepository) Save(ctx context.Context, cp *workflow.Checkpoint) error {
	row := dbm.WorkflowStep{
		InstanceID: cp.InstanceID,
		StepName:   cp.StepName,
		StepIndex:  cp.StepIndex,
		Status:     string(cp.Status),
		Output:     datatypes.JSON(cp.Output),
		Error:      cp.Error,
		Notified:   cp.Notified,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instance_id"}, {Name: "step_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"step_index", "status", "output", "error", "notified", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save workflow step: %w", err)
	}
	return nil
}

func (r *WorkflowStepRepository) MarkNotified(ctx context.Context, instanceID, stepName string) error {
	err := r.db.WithContext(ctx).Model(&dbm.WorkflowStep{}).
		Where("instance_id = ? AND step_name = ?", instanceID, stepName).
		Update("notified", true).Error
	if err != nil {
		return fmt.Errorf("mark workflow step notified: %w", err)
	}
	return nil
}

func (r *WorkflowStepRepository) List(ctx context.Context, instanceID string) ([]workflow.Checkpoint, error) {
	var rows []dbm.WorkflowStep
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("step_index ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list workflow steps: %w", err)
	}
	out := make([]workflow.Checkpoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCheckpoint(row))
	}
	return out, nil
}

func toCheckpoint(row dbm.WorkflowStep) workflow.Checkpoint {
	return workflow.Checkpoint{
		InstanceID: row.InstanceID,
		StepName:   row.StepName,
		StepIndex:  row.StepIndex,
		Status:     workflow.StepStatus(row.Status),
		Output:     []byte(row.Output),
		Error:      row.Error,
		Notified:   row.Notified,
	}
}
