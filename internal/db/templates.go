package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/models"
)

const templateColumns = `
	id, kind, equipment_type, COALESCE(manufacturer, ''), frequency_months,
	skeleton, created_at, updated_at`

func scanTemplate(row pgx.Row) (models.MaintenanceTemplate, error) {
	var t models.MaintenanceTemplate
	var skeleton []byte
	err := row.Scan(
		&t.ID, &t.Kind, &t.EquipmentType, &t.Manufacturer, &t.FrequencyMonths,
		&skeleton, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return models.MaintenanceTemplate{}, err
	}
	if len(skeleton) > 0 {
		if err := json.Unmarshal(skeleton, &t.Skeleton); err != nil {
			return models.MaintenanceTemplate{}, fmt.Errorf("failed to decode checklist skeleton: %w", err)
		}
	}
	return t, nil
}

// FindTemplate looks up the template for an exact (kind, equipmentType,
// manufacturer) triple. Generic templates are stored with an empty
// manufacturer; the manufacturer-to-generic fallback is the caller's concern.
func (d *DB) FindTemplate(ctx context.Context, kind models.TaskKind, equipmentType, manufacturer string) (models.MaintenanceTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM maintenance_templates
		WHERE kind = $1 AND equipment_type = $2 AND COALESCE(manufacturer, '') = $3
		LIMIT 1`
	t, err := scanTemplate(d.Pool.QueryRow(ctx, query, kind, equipmentType, manufacturer))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.MaintenanceTemplate{}, models.ErrTemplateNotFound
		}
		return models.MaintenanceTemplate{}, fmt.Errorf("failed to find template for %s/%s: %w", equipmentType, manufacturer, err)
	}
	return t, nil
}

// GetTemplate retrieves a template by ID (manual scheduling path).
func (d *DB) GetTemplate(ctx context.Context, id uuid.UUID) (models.MaintenanceTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM maintenance_templates WHERE id = $1`
	t, err := scanTemplate(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.MaintenanceTemplate{}, models.ErrTemplateNotFound
		}
		return models.MaintenanceTemplate{}, fmt.Errorf("failed to get template %s: %w", id, err)
	}
	return t, nil
}
