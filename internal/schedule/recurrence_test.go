package schedule

import (
	"testing"
	"time"

	"maintenance-service/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestNextDue(t *testing.T) {
	t.Parallel()
	now := date(2024, time.March, 10)

	tests := []struct {
		name string
		tpl  models.MaintenanceTemplate
		a    models.Asset
		last *models.MaintenanceTask
		want time.Time
	}{
		{
			name: "completed prior task",
			tpl:  models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 6},
			a:    models.Asset{},
			last: &models.MaintenanceTask{
				ScheduledDate: date(2024, time.January, 1),
				CompletedDate: datePtr(2024, time.January, 15),
			},
			want: date(2024, time.July, 15),
		},
		{
			name: "uncompleted prior task advances from its scheduled date",
			tpl:  models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 3},
			a:    models.Asset{},
			last: &models.MaintenanceTask{ScheduledDate: date(2024, time.February, 1)},
			want: date(2024, time.May, 1),
		},
		{
			name: "first task from purchase date",
			tpl:  models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 12},
			a:    models.Asset{PurchaseDate: datePtr(2023, time.January, 15)},
			want: date(2024, time.January, 15),
		},
		{
			name: "first task without purchase date falls back to now",
			tpl:  models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 2},
			a:    models.Asset{},
			want: date(2024, time.May, 10),
		},
		{
			name: "explicit next-due override wins over history",
			tpl:  models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 6},
			a:    models.Asset{NextPMDate: datePtr(2024, time.June, 1)},
			last: &models.MaintenanceTask{
				ScheduledDate: date(2024, time.January, 1),
				CompletedDate: datePtr(2024, time.January, 15),
			},
			want: date(2024, time.June, 1),
		},
		{
			name: "calibration override is independent of the PM one",
			tpl:  models.MaintenanceTemplate{Kind: models.KindCalibration, FrequencyMonths: 12},
			a: models.Asset{
				NextPMDate:   datePtr(2024, time.June, 1),
				PurchaseDate: datePtr(2023, time.April, 20),
			},
			want: date(2024, time.April, 20),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(tt.a, tt.last, tt.tpl, now)
			if !got.Equal(tt.want) {
				t.Fatalf("NextDue = %s, want %s", got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextDueIsStrictlyAfterBase(t *testing.T) {
	t.Parallel()
	tpl := models.MaintenanceTemplate{Kind: models.KindPM, FrequencyMonths: 1}
	last := &models.MaintenanceTask{
		ScheduledDate: date(2024, time.January, 31),
		CompletedDate: datePtr(2024, time.January, 31),
	}
	got := NextDue(models.Asset{}, last, tpl, date(2024, time.February, 1))
	if !got.After(*last.CompletedDate) {
		t.Fatalf("next due %s is not after completion %s", got, last.CompletedDate)
	}
}

func TestMonthWindow(t *testing.T) {
	t.Parallel()
	start, end := monthWindow(date(2024, time.April, 17))
	if !start.Equal(date(2024, time.April, 1)) {
		t.Fatalf("start = %s, want 2024-04-01", start.Format("2006-01-02"))
	}
	if !end.Equal(date(2024, time.May, 1)) {
		t.Fatalf("end = %s, want 2024-05-01", end.Format("2006-01-02"))
	}
}

func TestStartOfDay(t *testing.T) {
	t.Parallel()
	got := startOfDay(time.Date(2024, time.April, 17, 15, 42, 7, 0, time.UTC))
	if !got.Equal(date(2024, time.April, 17)) {
		t.Fatalf("startOfDay = %s, want 2024-04-17T00:00:00Z", got)
	}
}
