package db_models

import (
	"gorm.io/datatypes"
)

// WorkflowStep is one checkpoint row per (instance, step).
type WorkflowStep struct {
	BaseModel
	InstanceID string         `gorm:"size:64;uniqueIndex:idx_workflow_instance_step"`
	StepName   string         `gorm:"size:64;uniqueIndex:idx_workflow_instance_step"`
	StepIndex  int            `gorm:"not null"`
	Status     string         `gorm:"size:16;not null"`
	Output     datatypes.JSON `gorm:"type:jsonb"`
	Error      string         `gorm:"type:text"`
	Notified   bool           `gorm:"default:false"`
}
