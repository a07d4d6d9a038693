package models

import (
	"time"

	"github.com/google/uuid"
)

// EscalationRule defines one severity tier for overdue tasks of a given kind.
// Rules for the same kind are evaluated in ascending DaysOverdue order, so a
// task accumulates records at every level it has crossed.
type EscalationRule struct {
	ID              uuid.UUID `json:"id"`
	EntityType      TaskKind  `json:"entity_type"`
	DaysOverdue     int       `json:"days_overdue"`
	EscalationLevel int       `json:"escalation_level"`
	NotifyUserIDs   []int     `json:"notify_user_ids"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EscalationRuleCreate is the input structure for creating a new rule.
type EscalationRuleCreate struct {
	EntityType      TaskKind `json:"entity_type" binding:"required"`
	DaysOverdue     *int     `json:"days_overdue" binding:"required"`
	EscalationLevel int      `json:"escalation_level" binding:"required,min=1"`
	NotifyUserIDs   []int    `json:"notify_user_ids" binding:"required,min=1"`
}

// EscalationRuleUpdate is the input structure for updating an existing rule.
type EscalationRuleUpdate struct {
	DaysOverdue     *int  `json:"days_overdue,omitempty"`
	EscalationLevel *int  `json:"escalation_level,omitempty"`
	NotifyUserIDs   []int `json:"notify_user_ids,omitempty"`
	IsActive        *bool `json:"is_active,omitempty"`
}

// EscalationRecord is the dedup key: its existence means the task has already
// been escalated at this level, no matter how many times the sweep runs.
type EscalationRecord struct {
	ID              uuid.UUID `json:"id"`
	TaskID          uuid.UUID `json:"task_id"`
	EscalationLevel int       `json:"escalation_level"`
	NotifiedUserIDs []int     `json:"notified_user_ids"`
	CreatedAt       time.Time `json:"created_at"`
}
