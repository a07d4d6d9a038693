package schedule

import (
	"context"
	"fmt"
	"time"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
)

// TransitionStore is the conditional bulk update the overdue sweep runs on.
type TransitionStore interface {
	BulkTransitionStatus(ctx context.Context, from []models.TaskStatus, to models.TaskStatus, cutoff time.Time) (int64, error)
}

// OverdueDetector flips tasks past their due date into the Overdue state.
type OverdueDetector struct {
	tasks  TransitionStore
	logger *logging.Logger
}

func NewOverdueDetector(tasks TransitionStore, logger *logging.Logger) *OverdueDetector {
	return &OverdueDetector{tasks: tasks, logger: logger}
}

// SweepOverdue transitions every Scheduled or InProgress task whose scheduled
// date is before the start of today into Overdue. The whole sweep is one
// conditional update: tasks already Overdue are not matched, so running the
// sweep twice in a row (or from overlapping trigger invocations) produces the
// same end state as running it once. No notification is sent here; the
// escalation sweep reads the resulting state.
func (d *OverdueDetector) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	cutoff := startOfDay(now)
	n, err := d.tasks.BulkTransitionStatus(ctx,
		[]models.TaskStatus{models.StatusScheduled, models.StatusInProgress},
		models.StatusOverdue, cutoff)
	if err != nil {
		return 0, fmt.Errorf("overdue sweep: %w", err)
	}
	if n > 0 {
		d.logger.Infof("Overdue sweep: %d tasks transitioned (cutoff %s)", n, cutoff.Format("2006-01-02"))
	}
	return n, nil
}
