package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
)

// AssetStore is the slice of the asset directory the scheduler needs.
type AssetStore interface {
	GetAsset(ctx context.Context, id uuid.UUID) (models.Asset, error)
	ListAssets(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error)
	UpdateNextDueDate(ctx context.Context, id uuid.UUID, kind models.TaskKind, date time.Time) error
}

// TemplateStore resolves maintenance templates. FindTemplate is an exact
// (kind, equipmentType, manufacturer) lookup; the manufacturer-to-generic
// fallback lives in the scheduler.
type TemplateStore interface {
	FindTemplate(ctx context.Context, kind models.TaskKind, equipmentType, manufacturer string) (models.MaintenanceTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (models.MaintenanceTemplate, error)
}

// TaskStore is the slice of the task repository the scheduler writes through.
type TaskStore interface {
	CreateTask(ctx context.Context, t *models.MaintenanceTask) error
	GetTask(ctx context.Context, id uuid.UUID) (models.MaintenanceTask, error)
	GetLastTask(ctx context.Context, assetID uuid.UUID, kind models.TaskKind) (*models.MaintenanceTask, error)
	FindActiveTask(ctx context.Context, assetID uuid.UUID, kind models.TaskKind, periodStart, periodEnd time.Time) (*models.MaintenanceTask, error)
}

// Scheduler creates PM and calibration tasks from templates and history.
type Scheduler struct {
	assets    AssetStore
	templates TemplateStore
	tasks     TaskStore
	logger    *logging.Logger
	now       func() time.Time
}

// NewScheduler constructs a Scheduler. The clock defaults to time.Now and is
// injectable for tests.
func NewScheduler(assets AssetStore, templates TemplateStore, tasks TaskStore, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		assets:    assets,
		templates: templates,
		tasks:     tasks,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the scheduler's clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// SweepResult collects the per-asset outcomes of one scheduling sweep.
// Failures are isolated: one asset never aborts the batch.
type SweepResult struct {
	Created []models.MaintenanceTask `json:"created"`
	Skipped []string                 `json:"skipped,omitempty"`
	Errors  []string                 `json:"errors,omitempty"`
}

// ScheduleDue walks the assets in scope (all active assets, or the given
// subset) and creates the next PM and calibration task for each one that is
// missing an active task in the computed period. Repeated invocations within
// the same recurrence period create nothing.
func (s *Scheduler) ScheduleDue(ctx context.Context, assetIDs ...uuid.UUID) (SweepResult, error) {
	var result SweepResult

	assets, err := s.assets.ListAssets(ctx, models.AssetFilter{IDs: assetIDs})
	if err != nil {
		return result, fmt.Errorf("scheduling sweep: %w", err)
	}

	for _, asset := range assets {
		for _, kind := range []models.TaskKind{models.KindPM, models.KindCalibration} {
			task, err := s.scheduleAsset(ctx, asset, kind)
			switch {
			case errors.Is(err, models.ErrTemplateNotFound):
				s.logger.Warnf("No %s template for asset %s (%s/%s), skipping", kind, asset.ID, asset.EquipmentType, asset.Manufacturer)
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s: no template", asset.ID, kind))
			case err != nil:
				s.logger.Errorf("Failed to schedule %s for asset %s: %v", kind, asset.ID, err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", asset.ID, kind, err))
			case task == nil:
				result.Skipped = append(result.Skipped, fmt.Sprintf("%s/%s: already scheduled", asset.ID, kind))
			default:
				result.Created = append(result.Created, *task)
			}
		}
	}

	s.logger.Infof("Scheduling sweep: %d assets, %d created, %d skipped, %d errors",
		len(assets), len(result.Created), len(result.Skipped), len(result.Errors))
	return result, nil
}

// scheduleAsset runs the per-asset pipeline for one kind: resolve template,
// compute due date, duplicate-check, create. A nil task with nil error means
// the duplicate guard matched.
func (s *Scheduler) scheduleAsset(ctx context.Context, asset models.Asset, kind models.TaskKind) (*models.MaintenanceTask, error) {
	tpl, err := s.resolveTemplate(ctx, kind, asset.EquipmentType, asset.Manufacturer)
	if err != nil {
		return nil, err
	}

	last, err := s.tasks.GetLastTask(ctx, asset.ID, kind)
	if err != nil {
		return nil, err
	}
	dueDate := NextDue(asset, last, tpl, s.now())

	periodStart, periodEnd := monthWindow(dueDate)
	existing, err := s.tasks.FindActiveTask(ctx, asset.ID, kind, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	task := models.MaintenanceTask{
		AssetID:       asset.ID,
		Kind:          kind,
		Status:        models.StatusScheduled,
		ScheduledDate: dueDate,
		Checklist:     tpl.Materialize(),
	}
	if kind == models.KindCalibration {
		task.VendorID = asset.CalibrationVendorID
	}
	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return nil, err
	}
	if err := s.assets.UpdateNextDueDate(ctx, asset.ID, kind, dueDate); err != nil {
		return nil, err
	}
	return &task, nil
}

// ScheduleOne is the manual scheduling path: a single task at an explicit
// date, bypassing the due-date calculation and the duplicate guard (the human
// initiating it is assumed to intend it). The checklist is still materialized
// and the asset's next-due field still updated.
func (s *Scheduler) ScheduleOne(ctx context.Context, assetID uuid.UUID, kind models.TaskKind, date time.Time, assigneeID *int, templateID *uuid.UUID) (models.MaintenanceTask, error) {
	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return models.MaintenanceTask{}, err
	}

	var tpl models.MaintenanceTemplate
	if templateID != nil {
		tpl, err = s.templates.GetTemplate(ctx, *templateID)
	} else {
		tpl, err = s.resolveTemplate(ctx, kind, asset.EquipmentType, asset.Manufacturer)
	}
	if err != nil {
		return models.MaintenanceTask{}, err
	}

	task := models.MaintenanceTask{
		AssetID:       asset.ID,
		Kind:          kind,
		Status:        models.StatusScheduled,
		ScheduledDate: date,
		AssigneeID:    assigneeID,
		Checklist:     tpl.Materialize(),
	}
	if kind == models.KindCalibration {
		task.VendorID = asset.CalibrationVendorID
	}
	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return models.MaintenanceTask{}, err
	}
	if err := s.assets.UpdateNextDueDate(ctx, asset.ID, kind, date); err != nil {
		return models.MaintenanceTask{}, err
	}

	s.logger.Infof("Manually scheduled %s task %s for asset %s on %s", kind, task.ID, asset.ID, date.Format("2006-01-02"))
	return task, nil
}

// RescheduleAfterCompletion advances an asset's cycle once a task completes:
// the next-due date becomes completion date plus frequency, then the regular
// scheduling path runs for the asset.
func (s *Scheduler) RescheduleAfterCompletion(ctx context.Context, taskID uuid.UUID) (SweepResult, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return SweepResult{}, err
	}
	if task.CompletedDate == nil {
		return SweepResult{}, fmt.Errorf("task %s is not completed", taskID)
	}

	asset, err := s.assets.GetAsset(ctx, task.AssetID)
	if err != nil {
		return SweepResult{}, err
	}
	tpl, err := s.resolveTemplate(ctx, task.Kind, asset.EquipmentType, asset.Manufacturer)
	if err != nil {
		return SweepResult{}, err
	}

	nextDue := task.CompletedDate.AddDate(0, tpl.FrequencyMonths, 0)
	if err := s.assets.UpdateNextDueDate(ctx, asset.ID, task.Kind, nextDue); err != nil {
		return SweepResult{}, err
	}
	return s.ScheduleDue(ctx, asset.ID)
}

// resolveTemplate prefers the manufacturer-specific template and falls back
// to the generic one for the equipment type.
func (s *Scheduler) resolveTemplate(ctx context.Context, kind models.TaskKind, equipmentType, manufacturer string) (models.MaintenanceTemplate, error) {
	if manufacturer != "" {
		tpl, err := s.templates.FindTemplate(ctx, kind, equipmentType, manufacturer)
		if err == nil {
			return tpl, nil
		}
		if !errors.Is(err, models.ErrTemplateNotFound) {
			return models.MaintenanceTemplate{}, err
		}
	}
	return s.templates.FindTemplate(ctx, kind, equipmentType, "")
}
