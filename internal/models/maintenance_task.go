package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind distinguishes preventive maintenance from calibration. The two are
// structurally identical; calibration tasks additionally carry a vendor.
type TaskKind string

const (
	KindPM          TaskKind = "pm"
	KindCalibration TaskKind = "calibration"
)

// TaskStatus is the lifecycle state of a maintenance task. Status only moves
// forward: Scheduled -> InProgress -> Completed, with Overdue reachable from
// Scheduled/InProgress and Cancelled terminal from any non-completed state.
type TaskStatus string

const (
	StatusScheduled  TaskStatus = "scheduled"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusOverdue    TaskStatus = "overdue"
	StatusCancelled  TaskStatus = "cancelled"
)

// ActiveStatuses are the states that count against the one-active-task-per-
// period duplicate guard.
func ActiveStatuses() []TaskStatus {
	return []TaskStatus{StatusScheduled, StatusInProgress, StatusOverdue}
}

// ChecklistResult is a materialized checklist item with a result slot matching
// its value type. Exactly one of the result fields is used, per ValueType.
type ChecklistResult struct {
	Task         string    `json:"task"`
	ValueType    ValueType `json:"value_type"`
	Order        int       `json:"order"`
	BoolResult   *bool     `json:"bool_result,omitempty"`
	TextResult   *string   `json:"text_result,omitempty"`
	NumberResult *float64  `json:"number_result,omitempty"`
}

// MaintenanceTask is a single scheduled PM or calibration job for one asset.
type MaintenanceTask struct {
	ID            uuid.UUID         `json:"id"`
	AssetID       uuid.UUID         `json:"asset_id"`
	Kind          TaskKind          `json:"kind"`
	Status        TaskStatus        `json:"status"`
	ScheduledDate time.Time         `json:"scheduled_date"`
	CompletedDate *time.Time        `json:"completed_date,omitempty"`
	AssigneeID    *int              `json:"assignee_id,omitempty"`
	VendorID      *uuid.UUID        `json:"vendor_id,omitempty"`
	Checklist     []ChecklistResult `json:"checklist"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
