package trigger

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"maintenance-service/internal/config"
	"maintenance-service/internal/escalation"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/schedule"
)

// Trigger drives the three sweeps on independent cron cadences. Every sweep
// is idempotent, so overlapping invocations (a slow sweep still running when
// the next tick fires) are tolerated without any cross-tick locking.
type Trigger struct {
	cron      *cron.Cron
	scheduler *schedule.Scheduler
	detector  *schedule.OverdueDetector
	engine    *escalation.Engine
	logger    *logging.Logger
}

func New(cfg config.Config, scheduler *schedule.Scheduler, detector *schedule.OverdueDetector, engine *escalation.Engine, logger *logging.Logger) (*Trigger, error) {
	t := &Trigger{
		cron:      cron.New(),
		scheduler: scheduler,
		detector:  detector,
		engine:    engine,
		logger:    logger,
	}

	if _, err := t.cron.AddFunc(cfg.Sweeps.ScheduleSpec, t.runSchedule); err != nil {
		return nil, err
	}
	if _, err := t.cron.AddFunc(cfg.Sweeps.OverdueSpec, t.runOverdue); err != nil {
		return nil, err
	}
	if _, err := t.cron.AddFunc(cfg.Sweeps.EscalationSpec, t.runEscalation); err != nil {
		return nil, err
	}
	return t, nil
}

// Start begins firing the sweeps on their cadences.
func (t *Trigger) Start() {
	t.cron.Start()
	t.logger.Infof("Sweep trigger started")
}

// Stop halts the cadence and waits for running sweeps to finish.
func (t *Trigger) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.logger.Infof("Sweep trigger stopped")
}

func (t *Trigger) runSchedule() {
	if _, err := t.scheduler.ScheduleDue(context.Background()); err != nil {
		t.logger.Errorf("Scheduling sweep failed: %v", err)
	}
}

func (t *Trigger) runOverdue() {
	if _, err := t.detector.SweepOverdue(context.Background(), time.Now()); err != nil {
		t.logger.Errorf("Overdue sweep failed: %v", err)
	}
}

func (t *Trigger) runEscalation() {
	if _, err := t.engine.Evaluate(context.Background(), time.Now()); err != nil {
		t.logger.Errorf("Escalation sweep failed: %v", err)
	}
}
