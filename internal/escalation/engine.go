package escalation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
)

// TaskStore lists the tasks the engine evaluates.
type TaskStore interface {
	ListOverdue(ctx context.Context, kind *models.TaskKind) ([]models.MaintenanceTask, error)
}

// AssetStore resolves the asset a notification references.
type AssetStore interface {
	GetAsset(ctx context.Context, id uuid.UUID) (models.Asset, error)
}

// RuleStore lists active escalation rules for one entity type.
type RuleStore interface {
	ListActiveRules(ctx context.Context, entityType models.TaskKind) ([]models.EscalationRule, error)
}

// RecordStore is the dedup bookkeeping: existence of a record for
// (taskID, level) means that level has already fired for the task.
type RecordStore interface {
	EscalationExists(ctx context.Context, taskID uuid.UUID, level int) (bool, error)
	RecordEscalation(ctx context.Context, taskID uuid.UUID, level int, userIDs []int) (bool, error)
}

// Dispatcher delivers one notification. Delivery is best-effort; a dispatch
// failure never unwinds the dedup record.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// Engine matches overdue tasks against escalation rules and fires each
// (task, level) pair at most once.
type Engine struct {
	tasks      TaskStore
	assets     AssetStore
	rules      RuleStore
	records    RecordStore
	dispatcher Dispatcher
	logger     *logging.Logger
}

func NewEngine(tasks TaskStore, assets AssetStore, rules RuleStore, records RecordStore, dispatcher Dispatcher, logger *logging.Logger) *Engine {
	return &Engine{
		tasks:      tasks,
		assets:     assets,
		rules:      rules,
		records:    records,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Evaluate sweeps all Overdue tasks. For each task, rules of its kind are
// applied in ascending days-overdue order; every armed rule whose level has
// not fired yet creates a dedup record and one notification per configured
// recipient. Returns the newly created notifications. Per-task failures are
// isolated and collected into the log, never aborting the batch.
func (e *Engine) Evaluate(ctx context.Context, now time.Time) ([]models.Notification, error) {
	tasks, err := e.tasks.ListOverdue(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("escalation sweep: %w", err)
	}

	rulesByKind := map[models.TaskKind][]models.EscalationRule{}
	var created []models.Notification

	for _, task := range tasks {
		rules, ok := rulesByKind[task.Kind]
		if !ok {
			rules, err = e.rules.ListActiveRules(ctx, task.Kind)
			if err != nil {
				return created, fmt.Errorf("escalation sweep: load rules for %s: %w", task.Kind, err)
			}
			// Ascending days-overdue: as a task ages it accumulates a record
			// at every level it has crossed, never skipping one.
			sort.SliceStable(rules, func(i, j int) bool {
				return rules[i].DaysOverdue < rules[j].DaysOverdue
			})
			rulesByKind[task.Kind] = rules
		}

		notifications, err := e.evaluateTask(ctx, task, rules, now)
		if err != nil {
			e.logger.Errorf("Escalation failed for task %s: %v", task.ID, err)
			continue
		}
		created = append(created, notifications...)
	}

	e.logger.Infof("Escalation sweep: %d overdue tasks, %d notifications created", len(tasks), len(created))
	return created, nil
}

// evaluateTask applies every armed rule to one task.
func (e *Engine) evaluateTask(ctx context.Context, task models.MaintenanceTask, rules []models.EscalationRule, now time.Time) ([]models.Notification, error) {
	overdueDays := daysBetween(task.ScheduledDate, now)
	if overdueDays < 0 {
		return nil, nil
	}

	var asset *models.Asset
	var created []models.Notification

	for _, rule := range rules {
		if overdueDays < rule.DaysOverdue {
			break
		}

		exists, err := e.records.EscalationExists(ctx, task.ID, rule.EscalationLevel)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		// The record is the dedup guarantee and is written before any
		// dispatch attempt; it is conditioned on the (task, level) key so a
		// racing sweep fires at most once.
		won, err := e.records.RecordEscalation(ctx, task.ID, rule.EscalationLevel, rule.NotifyUserIDs)
		if err != nil {
			return created, err
		}
		if !won {
			continue
		}

		if asset == nil {
			a, err := e.assets.GetAsset(ctx, task.AssetID)
			if err != nil {
				return created, err
			}
			asset = &a
		}

		for _, userID := range rule.NotifyUserIDs {
			n := buildNotification(task, *asset, rule, overdueDays, userID)
			if err := e.dispatcher.Dispatch(ctx, n); err != nil {
				// Best-effort: the level already counts as fired.
				e.logger.Errorf("Dispatch failed for user %d, task %s level %d: %v", userID, task.ID, rule.EscalationLevel, err)
			}
			created = append(created, n)
		}
		e.logger.Infof("Escalated task %s to level %d (%d days overdue, %d recipients)",
			task.ID, rule.EscalationLevel, overdueDays, len(rule.NotifyUserIDs))
	}
	return created, nil
}

func buildNotification(task models.MaintenanceTask, asset models.Asset, rule models.EscalationRule, overdueDays, userID int) models.Notification {
	kindLabel := "Preventive maintenance"
	if task.Kind == models.KindCalibration {
		kindLabel = "Calibration"
	}
	title := fmt.Sprintf("%s overdue: %s", kindLabel, asset.Name)
	message := fmt.Sprintf(
		"%s for %s (%s, %s) is %d day(s) overdue.\nDue date: %s\nEscalation level: %d",
		kindLabel, asset.Name, asset.EquipmentType, asset.Location,
		overdueDays, task.ScheduledDate.Format("2006-01-02"), rule.EscalationLevel,
	)
	return models.Notification{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      title,
		Message:    message,
		EntityType: "maintenance_task",
		EntityID:   task.ID,
		Level:      rule.EscalationLevel,
		Status:     models.NotificationUnread,
	}
}

// daysBetween counts whole days from the start of a's day to the start of
// b's day, matching the overdue sweep's midnight cutoff.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start) / (24 * time.Hour))
}
