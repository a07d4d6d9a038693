package schedule

import (
	"time"

	"maintenance-service/internal/models"
)

// NextDue computes when the next task of tpl's kind is due for the asset.
// Priority order, first applicable wins:
//
//  1. an explicit next-due date already on the asset (written by a prior
//     scheduling run or a manual edit),
//  2. last task completed: completion date plus the template frequency,
//  3. last task not completed: its scheduled date plus the frequency (the
//     cycle does not wait for completion indefinitely),
//  4. no history: purchase date plus frequency, or now plus frequency when
//     the purchase date is unknown.
//
// Pure function; template resolution and its TemplateNotFound condition are
// the caller's concern.
func NextDue(asset models.Asset, last *models.MaintenanceTask, tpl models.MaintenanceTemplate, now time.Time) time.Time {
	if override := asset.NextDueFor(tpl.Kind); override != nil {
		return *override
	}
	if last != nil {
		if last.CompletedDate != nil {
			return last.CompletedDate.AddDate(0, tpl.FrequencyMonths, 0)
		}
		return last.ScheduledDate.AddDate(0, tpl.FrequencyMonths, 0)
	}
	if asset.PurchaseDate != nil {
		return asset.PurchaseDate.AddDate(0, tpl.FrequencyMonths, 0)
	}
	return now.AddDate(0, tpl.FrequencyMonths, 0)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// monthWindow returns the [start, end) calendar-month window containing t,
// the bucket used by the duplicate-scheduling guard.
func monthWindow(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
