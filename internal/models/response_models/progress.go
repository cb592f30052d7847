package response_models

import (
	"strconv"
	"time"
)

type ProgressStatus string

const (
	ProgressRunning   ProgressStatus = "running"
	ProgressDone      ProgressStatus = "done"
	ProgressWarning   ProgressStatus = "warning"
	ProgressFailed    ProgressStatus = "failed"
	ProgressCompleted ProgressStatus = "completed"
)

// ProgressEvent is published at least once per step. Consumers dedupe on (InstanceID, Step).
type ProgressEvent struct {
	ID         string         `json:"id"`
	InstanceID string         `json:"instanceId"`
	TripID     string         `json:"tripId"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Step       int            `json:"step"`
	TotalSteps int            `json:"totalSteps"`
	Status     ProgressStatus `json:"status"`
	Data       any            `json:"data,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// DedupeKey identifies the event for at-least-once consumers.
func (e ProgressEvent) DedupeKey() string {
	return e.InstanceID + ":" + strconv.Itoa(e.Step)
}
