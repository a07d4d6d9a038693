package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"maintenance-service/internal/models"
)

const assetColumns = `
	id, name, equipment_type, manufacturer, model_number, serial_number,
	location, status, purchase_date, next_pm_date, next_calibration_date,
	calibration_vendor_id, created_at, updated_at`

func scanAsset(row pgx.Row) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.ID, &a.Name, &a.EquipmentType, &a.Manufacturer, &a.ModelNumber,
		&a.SerialNumber, &a.Location, &a.Status, &a.PurchaseDate,
		&a.NextPMDate, &a.NextCalibrationDate, &a.CalibrationVendorID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// GetAsset retrieves a single asset by ID.
func (d *DB) GetAsset(ctx context.Context, id uuid.UUID) (models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Asset{}, fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
		}
		return models.Asset{}, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return a, nil
}

// ListAssets returns assets matching the filter. An empty filter returns all
// assets in active service.
func (d *DB) ListAssets(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE status <> 'retired'`
	args := []interface{}{}

	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		query += fmt.Sprintf(" AND id = ANY($%d)", len(args))
	}
	if filter.EquipmentType != "" {
		args = append(args, filter.EquipmentType)
		query += fmt.Sprintf(" AND equipment_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY name"

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// UpdateNextDueDate writes back the computed next-due date for one kind. The
// update touches only its own column so concurrent edits to other asset
// fields are never clobbered.
func (d *DB) UpdateNextDueDate(ctx context.Context, id uuid.UUID, kind models.TaskKind, date time.Time) error {
	column := "next_pm_date"
	if kind == models.KindCalibration {
		column = "next_calibration_date"
	}
	query := fmt.Sprintf(`UPDATE assets SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	result, err := d.Pool.Exec(ctx, query, id, date)
	if err != nil {
		return fmt.Errorf("failed to update %s for asset %s: %w", column, id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
	}
	return nil
}
