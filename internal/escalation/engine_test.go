package escalation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(t.TempDir(), "error")
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	t.Cleanup(logger.Close)
	return logger
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeTasks struct {
	tasks []models.MaintenanceTask
}

func (f *fakeTasks) ListOverdue(_ context.Context, kind *models.TaskKind) ([]models.MaintenanceTask, error) {
	var out []models.MaintenanceTask
	for _, t := range f.tasks {
		if t.Status != models.StatusOverdue {
			continue
		}
		if kind != nil && t.Kind != *kind {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type fakeAssets struct {
	assets map[uuid.UUID]models.Asset
}

func (f *fakeAssets) GetAsset(_ context.Context, id uuid.UUID) (models.Asset, error) {
	a, ok := f.assets[id]
	if !ok {
		return models.Asset{}, fmt.Errorf("asset %s: %w", id, models.ErrNotFound)
	}
	return a, nil
}

type fakeRules struct {
	rules []models.EscalationRule
}

func (f *fakeRules) ListActiveRules(_ context.Context, entityType models.TaskKind) ([]models.EscalationRule, error) {
	var out []models.EscalationRule
	for _, r := range f.rules {
		if r.IsActive && r.EntityType == entityType {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordKey struct {
	taskID uuid.UUID
	level  int
}

type fakeRecords struct {
	records map[recordKey][]int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[recordKey][]int)}
}

func (f *fakeRecords) EscalationExists(_ context.Context, taskID uuid.UUID, level int) (bool, error) {
	_, ok := f.records[recordKey{taskID, level}]
	return ok, nil
}

func (f *fakeRecords) RecordEscalation(_ context.Context, taskID uuid.UUID, level int, userIDs []int) (bool, error) {
	key := recordKey{taskID, level}
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = userIDs
	return true, nil
}

type fakeDispatcher struct {
	dispatched []models.Notification
	fail       bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	if f.fail {
		return errors.New("smtp unreachable")
	}
	f.dispatched = append(f.dispatched, n)
	return nil
}

func overdueTask(assetID uuid.UUID, scheduled time.Time) models.MaintenanceTask {
	return models.MaintenanceTask{
		ID:            uuid.New(),
		AssetID:       assetID,
		Kind:          models.KindPM,
		Status:        models.StatusOverdue,
		ScheduledDate: scheduled,
	}
}

func pmRule(days, level int, userIDs ...int) models.EscalationRule {
	return models.EscalationRule{
		ID:              uuid.New(),
		EntityType:      models.KindPM,
		DaysOverdue:     days,
		EscalationLevel: level,
		NotifyUserIDs:   userIDs,
		IsActive:        true,
	}
}

func newEngine(t *testing.T, tasks *fakeTasks, assets *fakeAssets, rules *fakeRules, records *fakeRecords, d *fakeDispatcher) *Engine {
	t.Helper()
	return NewEngine(tasks, assets, rules, records, d, newTestLogger(t))
}

func TestEvaluateFiresEveryCrossedLevelOnce(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	now := date(2024, time.April, 11)
	task := overdueTask(assetID, date(2024, time.April, 1)) // 10 days overdue

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{
		assetID: {ID: assetID, Name: "Defibrillator 3", EquipmentType: "defibrillator"},
	}}
	rules := &fakeRules{rules: []models.EscalationRule{
		pmRule(1, 1, 10),
		pmRule(3, 2, 20),
		pmRule(7, 3, 30),
	}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)
	created, err := e.Evaluate(context.Background(), now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d notifications, want 3 (levels 1, 2, 3)", len(created))
	}
	for _, level := range []int{1, 2, 3} {
		if _, ok := records.records[recordKey{task.ID, level}]; !ok {
			t.Fatalf("no escalation record for level %d", level)
		}
	}
	if len(dispatcher.dispatched) != 3 {
		t.Fatalf("dispatched %d notifications, want 3", len(dispatcher.dispatched))
	}

	// Re-running with the same clock creates nothing new.
	again, err := e.Evaluate(context.Background(), now)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second Evaluate created %d notifications, want 0", len(again))
	}

	// A later run still creates nothing: every level has fired.
	later, err := e.Evaluate(context.Background(), now.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("later Evaluate: %v", err)
	}
	if len(later) != 0 {
		t.Fatalf("later Evaluate created %d notifications, want 0", len(later))
	}
}

func TestEvaluateOnlyArmsCrossedThresholds(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	task := overdueTask(assetID, date(2024, time.April, 1))

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID, Name: "Monitor"}}}
	rules := &fakeRules{rules: []models.EscalationRule{
		pmRule(1, 1, 10),
		pmRule(3, 2, 20),
		pmRule(7, 3, 30),
	}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)

	// 2 days overdue: only the 1-day rule is armed.
	created, err := e.Evaluate(context.Background(), date(2024, time.April, 3))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(created))
	}
	if created[0].Level != 1 {
		t.Fatalf("fired level %d, want 1", created[0].Level)
	}

	// 4 days overdue: the 3-day rule newly crosses, the 1-day one stays fired.
	created, err = e.Evaluate(context.Background(), date(2024, time.April, 5))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 1 || created[0].Level != 2 {
		t.Fatalf("want exactly one new level-2 notification, got %v", created)
	}
}

func TestEvaluateNotifiesEveryConfiguredUser(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	task := overdueTask(assetID, date(2024, time.April, 1))

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID, Name: "Monitor"}}}
	rules := &fakeRules{rules: []models.EscalationRule{pmRule(1, 1, 10, 20, 30)}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)
	created, err := e.Evaluate(context.Background(), date(2024, time.April, 5))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d notifications, want one per recipient", len(created))
	}
	seen := map[int]bool{}
	for _, n := range created {
		seen[n.UserID] = true
		if n.EntityID != task.ID {
			t.Fatalf("notification references %s, want task %s", n.EntityID, task.ID)
		}
	}
	if !seen[10] || !seen[20] || !seen[30] {
		t.Fatalf("recipients = %v, want users 10, 20, 30", seen)
	}
}

func TestEvaluateDispatchFailureDoesNotUnwindDedup(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	task := overdueTask(assetID, date(2024, time.April, 1))

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID, Name: "Monitor"}}}
	rules := &fakeRules{rules: []models.EscalationRule{pmRule(1, 1, 10)}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{fail: true}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)
	if _, err := e.Evaluate(context.Background(), date(2024, time.April, 5)); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, ok := records.records[recordKey{task.ID, 1}]; !ok {
		t.Fatal("dedup record missing after dispatch failure")
	}

	// Delivery is not re-attempted on the next sweep; the level has fired.
	dispatcher.fail = false
	created, err := e.Evaluate(context.Background(), date(2024, time.April, 6))
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("second Evaluate re-fired a delivered level: %v", created)
	}
}

func TestEvaluateIgnoresRulesOfOtherKinds(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	task := overdueTask(assetID, date(2024, time.April, 1)) // a PM task

	calRule := models.EscalationRule{
		ID:              uuid.New(),
		EntityType:      models.KindCalibration,
		DaysOverdue:     1,
		EscalationLevel: 1,
		NotifyUserIDs:   []int{10},
		IsActive:        true,
	}
	inactive := pmRule(1, 1, 10)
	inactive.IsActive = false

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID}}}
	rules := &fakeRules{rules: []models.EscalationRule{calRule, inactive}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)
	created, err := e.Evaluate(context.Background(), date(2024, time.April, 10))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created %d notifications, want 0 (no matching active rules)", len(created))
	}
}

func TestEvaluateSkipsTasksNotYetOverdueByDays(t *testing.T) {
	t.Parallel()
	assetID := uuid.New()
	// Overdue status but scheduled today relative to the sweep clock; a
	// 0-day rule arms, a 1-day rule does not.
	task := overdueTask(assetID, date(2024, time.April, 5))

	tasks := &fakeTasks{tasks: []models.MaintenanceTask{task}}
	assets := &fakeAssets{assets: map[uuid.UUID]models.Asset{assetID: {ID: assetID}}}
	rules := &fakeRules{rules: []models.EscalationRule{
		pmRule(0, 1, 10),
		pmRule(1, 2, 20),
	}}
	records := newFakeRecords()
	dispatcher := &fakeDispatcher{}

	e := newEngine(t, tasks, assets, rules, records, dispatcher)
	created, err := e.Evaluate(context.Background(), date(2024, time.April, 5))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(created) != 1 || created[0].Level != 1 {
		t.Fatalf("want only the 0-day rule to fire, got %v", created)
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a, b time.Time
		want int
	}{
		{date(2024, time.April, 1), date(2024, time.April, 11), 10},
		{date(2024, time.April, 1), date(2024, time.April, 1), 0},
		{time.Date(2024, time.April, 1, 23, 0, 0, 0, time.UTC), time.Date(2024, time.April, 2, 1, 0, 0, 0, time.UTC), 1},
		{date(2024, time.April, 2), date(2024, time.April, 1), -1},
	}
	for _, tt := range tests {
		if got := daysBetween(tt.a, tt.b); got != tt.want {
			t.Fatalf("daysBetween(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
