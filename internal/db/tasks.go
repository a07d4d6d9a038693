package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/models"
)

const taskColumns = `
	id, asset_id, kind, status, scheduled_date, completed_date, assignee_id,
	vendor_id, checklist, created_at, updated_at`

func scanTask(row pgx.Row) (models.MaintenanceTask, error) {
	var t models.MaintenanceTask
	var checklist []byte
	err := row.Scan(
		&t.ID, &t.AssetID, &t.Kind, &t.Status, &t.ScheduledDate,
		&t.CompletedDate, &t.AssigneeID, &t.VendorID, &checklist,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return models.MaintenanceTask{}, err
	}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &t.Checklist); err != nil {
			return models.MaintenanceTask{}, fmt.Errorf("failed to decode checklist: %w", err)
		}
	}
	return t, nil
}

// CreateTask inserts a new maintenance task. A zero ID is replaced with a
// fresh UUID.
func (d *DB) CreateTask(ctx context.Context, t *models.MaintenanceTask) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	checklist, err := json.Marshal(t.Checklist)
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	query := `
		INSERT INTO maintenance_tasks (
			id, asset_id, kind, status, scheduled_date, completed_date,
			assignee_id, vendor_id, checklist, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`
	err = d.Pool.QueryRow(ctx, query,
		t.ID, t.AssetID, t.Kind, t.Status, t.ScheduledDate, t.CompletedDate,
		t.AssigneeID, t.VendorID, checklist,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task for asset %s: %w", t.AssetID, err)
	}
	return nil
}

// GetTask retrieves a single task by ID.
func (d *DB) GetTask(ctx context.Context, id uuid.UUID) (models.MaintenanceTask, error) {
	query := `SELECT ` + taskColumns + ` FROM maintenance_tasks WHERE id = $1`
	t, err := scanTask(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.MaintenanceTask{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		return models.MaintenanceTask{}, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// FindActiveTask looks for an active task of the given kind for the asset
// whose scheduled date falls inside [periodStart, periodEnd). Returns nil when
// none exists; this is the duplicate guard for idempotent scheduling.
func (d *DB) FindActiveTask(ctx context.Context, assetID uuid.UUID, kind models.TaskKind, periodStart, periodEnd time.Time) (*models.MaintenanceTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM maintenance_tasks
		WHERE asset_id = $1 AND kind = $2
		  AND status = ANY($3)
		  AND scheduled_date >= $4 AND scheduled_date < $5
		LIMIT 1`
	t, err := scanTask(d.Pool.QueryRow(ctx, query, assetID, kind, statusStrings(models.ActiveStatuses()), periodStart, periodEnd))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active task for asset %s: %w", assetID, err)
	}
	return &t, nil
}

// GetLastTask returns the most recent task of the given kind for an asset, or
// nil when the asset has no history.
func (d *DB) GetLastTask(ctx context.Context, assetID uuid.UUID, kind models.TaskKind) (*models.MaintenanceTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM maintenance_tasks
		WHERE asset_id = $1 AND kind = $2 AND status <> 'cancelled'
		ORDER BY scheduled_date DESC
		LIMIT 1`
	t, err := scanTask(d.Pool.QueryRow(ctx, query, assetID, kind))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last task for asset %s: %w", assetID, err)
	}
	return &t, nil
}

// BulkTransitionStatus moves every task in one of the from-statuses whose
// scheduled date is before the cutoff into the to-status, as a single
// conditional update. Tasks already transitioned are not matched again, so
// overlapping sweeps are idempotent.
func (d *DB) BulkTransitionStatus(ctx context.Context, from []models.TaskStatus, to models.TaskStatus, cutoff time.Time) (int64, error) {
	query := `
		UPDATE maintenance_tasks
		SET status = $1, updated_at = NOW()
		WHERE status = ANY($2) AND scheduled_date < $3`
	result, err := d.Pool.Exec(ctx, query, to, statusStrings(from), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to transition tasks to %s: %w", to, err)
	}
	return result.RowsAffected(), nil
}

// ListOverdue returns all tasks currently in the Overdue state, optionally
// restricted to one kind.
func (d *DB) ListOverdue(ctx context.Context, kind *models.TaskKind) ([]models.MaintenanceTask, error) {
	query := `SELECT ` + taskColumns + ` FROM maintenance_tasks WHERE status = 'overdue'`
	args := []interface{}{}
	if kind != nil {
		args = append(args, *kind)
		query += " AND kind = $1"
	}
	query += " ORDER BY scheduled_date"

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.MaintenanceTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func statusStrings(statuses []models.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
