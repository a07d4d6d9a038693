package schedule

import (
	"context"
	"testing"
	"time"

	"maintenance-service/internal/models"
)

// fakeTransitions mimics the repository's conditional bulk update over an
// in-memory task list.
type fakeTransitions struct {
	tasks []models.MaintenanceTask
}

func (f *fakeTransitions) BulkTransitionStatus(_ context.Context, from []models.TaskStatus, to models.TaskStatus, cutoff time.Time) (int64, error) {
	var n int64
	for i := range f.tasks {
		matched := false
		for _, s := range from {
			if f.tasks[i].Status == s {
				matched = true
			}
		}
		if matched && f.tasks[i].ScheduledDate.Before(cutoff) {
			f.tasks[i].Status = to
			n++
		}
	}
	return n, nil
}

func (f *fakeTransitions) countOverdue() int {
	n := 0
	for _, t := range f.tasks {
		if t.Status == models.StatusOverdue {
			n++
		}
	}
	return n
}

func TestSweepOverdue(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.April, 10, 14, 30, 0, 0, time.UTC)
	store := &fakeTransitions{tasks: []models.MaintenanceTask{
		{Status: models.StatusScheduled, ScheduledDate: date(2024, time.April, 1)},
		{Status: models.StatusInProgress, ScheduledDate: date(2024, time.April, 5)},
		{Status: models.StatusScheduled, ScheduledDate: date(2024, time.April, 10)}, // due today, not yet overdue
		{Status: models.StatusScheduled, ScheduledDate: date(2024, time.April, 20)},
		{Status: models.StatusCompleted, ScheduledDate: date(2024, time.March, 1)},
		{Status: models.StatusCancelled, ScheduledDate: date(2024, time.March, 1)},
	}}

	d := NewOverdueDetector(store, newTestLogger(t))
	n, err := d.SweepOverdue(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if n != 2 {
		t.Fatalf("transitioned %d tasks, want 2", n)
	}
	if store.countOverdue() != 2 {
		t.Fatalf("%d tasks overdue, want 2", store.countOverdue())
	}

	// Second sweep is a no-op over the same state.
	n, err = d.SweepOverdue(context.Background(), now)
	if err != nil {
		t.Fatalf("second SweepOverdue: %v", err)
	}
	if n != 0 {
		t.Fatalf("second sweep transitioned %d tasks, want 0", n)
	}
	if store.countOverdue() != 2 {
		t.Fatalf("%d tasks overdue after second sweep, want 2", store.countOverdue())
	}
}

func TestSweepOverdueUsesStartOfDayCutoff(t *testing.T) {
	t.Parallel()
	// A task scheduled earlier today must not become overdue, even when the
	// sweep runs late in the evening.
	now := time.Date(2024, time.April, 10, 23, 50, 0, 0, time.UTC)
	store := &fakeTransitions{tasks: []models.MaintenanceTask{
		{Status: models.StatusScheduled, ScheduledDate: time.Date(2024, time.April, 10, 8, 0, 0, 0, time.UTC)},
	}}

	d := NewOverdueDetector(store, newTestLogger(t))
	n, err := d.SweepOverdue(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepOverdue: %v", err)
	}
	if n != 0 {
		t.Fatalf("transitioned %d tasks, want 0", n)
	}
}
