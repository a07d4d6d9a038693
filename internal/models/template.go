package models

import (
	"time"

	"github.com/google/uuid"
)

// ValueType discriminates how a checklist item's result is recorded.
type ValueType string

const (
	ValueBoolean ValueType = "boolean"
	ValueText    ValueType = "text"
	ValueNumber  ValueType = "number"
)

// ChecklistItem is one entry of a template's checklist skeleton.
type ChecklistItem struct {
	Task      string    `json:"task"`
	ValueType ValueType `json:"value_type"`
	Order     int       `json:"order"`
}

// MaintenanceTemplate maps an equipment type (optionally narrowed to a
// manufacturer) to a recurrence frequency and a checklist skeleton. A template
// with an empty Manufacturer is the generic fallback for its equipment type.
type MaintenanceTemplate struct {
	ID              uuid.UUID       `json:"id"`
	Kind            TaskKind        `json:"kind"`
	EquipmentType   string          `json:"equipment_type"`
	Manufacturer    string          `json:"manufacturer,omitempty"`
	FrequencyMonths int             `json:"frequency_months"`
	Skeleton        []ChecklistItem `json:"skeleton"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Materialize copies the checklist skeleton into empty per-task results.
func (t MaintenanceTemplate) Materialize() []ChecklistResult {
	results := make([]ChecklistResult, 0, len(t.Skeleton))
	for _, item := range t.Skeleton {
		results = append(results, ChecklistResult{
			Task:      item.Task,
			ValueType: item.ValueType,
			Order:     item.Order,
		})
	}
	return results
}
