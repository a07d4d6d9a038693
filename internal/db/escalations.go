package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/models"
)

const ruleColumns = `
	id, entity_type, days_overdue, escalation_level, notify_user_ids,
	is_active, created_at, updated_at`

func scanRule(row pgx.Row) (models.EscalationRule, error) {
	var r models.EscalationRule
	var userIDs []int32
	err := row.Scan(
		&r.ID, &r.EntityType, &r.DaysOverdue, &r.EscalationLevel, &userIDs,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return models.EscalationRule{}, err
	}
	r.NotifyUserIDs = toInts(userIDs)
	return r, nil
}

// ListActiveRules returns the active escalation rules for one entity type in
// ascending days-overdue order, which is the order the engine must evaluate
// them in.
func (d *DB) ListActiveRules(ctx context.Context, entityType models.TaskKind) ([]models.EscalationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM escalation_rules
		WHERE entity_type = $1 AND is_active
		ORDER BY days_overdue ASC, escalation_level ASC`
	rows, err := d.Pool.Query(ctx, query, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to list active rules for %s: %w", entityType, err)
	}
	defer rows.Close()

	var rules []models.EscalationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ListRules returns all escalation rules, active or not.
func (d *DB) ListRules(ctx context.Context) ([]models.EscalationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM escalation_rules ORDER BY entity_type, days_overdue`
	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.EscalationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// GetRule retrieves one escalation rule by ID.
func (d *DB) GetRule(ctx context.Context, id uuid.UUID) (models.EscalationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM escalation_rules WHERE id = $1`
	r, err := scanRule(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.EscalationRule{}, fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
		}
		return models.EscalationRule{}, fmt.Errorf("failed to get rule %s: %w", id, err)
	}
	return r, nil
}

// CreateRule inserts a new escalation rule.
func (d *DB) CreateRule(ctx context.Context, r *models.EscalationRule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
		INSERT INTO escalation_rules (
			id, entity_type, days_overdue, escalation_level, notify_user_ids,
			is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := d.Pool.QueryRow(ctx, query,
		r.ID, r.EntityType, r.DaysOverdue, r.EscalationLevel,
		toInt32s(r.NotifyUserIDs), r.IsActive,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule applies the non-nil fields of the update to an existing rule and
// returns the updated row.
func (d *DB) UpdateRule(ctx context.Context, id uuid.UUID, upd models.EscalationRuleUpdate) (models.EscalationRule, error) {
	query := `
		UPDATE escalation_rules
		SET days_overdue     = COALESCE($2, days_overdue),
		    escalation_level = COALESCE($3, escalation_level),
		    notify_user_ids  = COALESCE($4, notify_user_ids),
		    is_active        = COALESCE($5, is_active),
		    updated_at       = NOW()
		WHERE id = $1
		RETURNING ` + ruleColumns
	var userIDs []int32
	if upd.NotifyUserIDs != nil {
		userIDs = toInt32s(upd.NotifyUserIDs)
	}
	r, err := scanRule(d.Pool.QueryRow(ctx, query, id, upd.DaysOverdue, upd.EscalationLevel, userIDs, upd.IsActive))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.EscalationRule{}, fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
		}
		return models.EscalationRule{}, fmt.Errorf("failed to update rule %s: %w", id, err)
	}
	return r, nil
}

// DeleteRule removes an escalation rule.
func (d *DB) DeleteRule(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM escalation_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("rule %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// EscalationExists reports whether a task has already been escalated at the
// given level.
func (d *DB) EscalationExists(ctx context.Context, taskID uuid.UUID, level int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM escalation_records WHERE task_id = $1 AND escalation_level = $2)`
	if err := d.Pool.QueryRow(ctx, query, taskID, level).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check escalation record for task %s level %d: %w", taskID, level, err)
	}
	return exists, nil
}

// RecordEscalation writes the dedup record for (taskID, level). The insert is
// conditioned on the unique (task_id, escalation_level) index, so a
// concurrent sweep racing past the Exists check still creates at most one
// record; the return value reports whether this call won.
func (d *DB) RecordEscalation(ctx context.Context, taskID uuid.UUID, level int, userIDs []int) (bool, error) {
	query := `
		INSERT INTO escalation_records (id, task_id, escalation_level, notified_user_ids, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (task_id, escalation_level) DO NOTHING`
	result, err := d.Pool.Exec(ctx, query, uuid.New(), taskID, level, toInt32s(userIDs))
	if err != nil {
		return false, fmt.Errorf("failed to record escalation for task %s level %d: %w", taskID, level, err)
	}
	return result.RowsAffected() > 0, nil
}

// ListEscalationsByTask returns the escalation history of one task, oldest
// first (audit trail).
func (d *DB) ListEscalationsByTask(ctx context.Context, taskID uuid.UUID) ([]models.EscalationRecord, error) {
	query := `
		SELECT id, task_id, escalation_level, notified_user_ids, created_at
		FROM escalation_records
		WHERE task_id = $1
		ORDER BY escalation_level`
	rows, err := d.Pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalations for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var records []models.EscalationRecord
	for rows.Next() {
		var r models.EscalationRecord
		var userIDs []int32
		if err := rows.Scan(&r.ID, &r.TaskID, &r.EscalationLevel, &userIDs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan escalation record: %w", err)
		}
		r.NotifiedUserIDs = toInts(userIDs)
		records = append(records, r)
	}
	return records, rows.Err()
}

func toInts(in []int32) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}

func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}
