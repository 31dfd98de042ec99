/*
scheduler.go - Automated expiry scheduler

PURPOSE:
  Periodically runs the expiry sweep so returnable allocations older than
  the engine's MaxAge are marked consumed without anyone having to open a
  page first.

DESIGN:
  - robfig/cron drives the schedule (default "@every 1h")
  - Overlapping runs are skipped, not queued
  - Each run is recorded (running -> completed|failed) for audit and UI display
  - The sweep itself is idempotent, so a re-run after a crash is harmless

USAGE:
  scheduler := NewExpiryScheduler(engine, store, metrics)
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - inventory/expiry.go: Sweep
  - handlers.go: RunExpiry endpoint (manual trigger)
*/
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/edifice/resource-engine/inventory"
	"github.com/edifice/resource-engine/logutils"
)

// DefaultExpirySchedule is the cron spec used when none is configured.
const DefaultExpirySchedule = "@every 1h"

// ErrSweepInProgress is returned by RunNow while another run is active.
var ErrSweepInProgress = errors.New("expiry sweep already running")

type ExpiryScheduler struct {
	Engine   *inventory.Engine
	Runs     inventory.SweepLog
	Metrics  *Metrics
	Schedule string
	Enabled  bool

	cron    *cron.Cron
	entry   cron.EntryID
	running sync.Mutex
	mu      sync.Mutex
	log     *logrus.Entry
}

// NewExpiryScheduler creates a scheduler. runs and metrics may be nil.
func NewExpiryScheduler(engine *inventory.Engine, runs inventory.SweepLog, metrics *Metrics) *ExpiryScheduler {
	return &ExpiryScheduler{
		Engine:   engine,
		Runs:     runs,
		Metrics:  metrics,
		Schedule: DefaultExpirySchedule,
		Enabled:  true,
		log:      logutils.Component("expiry-scheduler"),
	}
}

// Start registers the sweep with cron and starts it. An invalid schedule is
// returned as an error.
func (es *ExpiryScheduler) Start() error {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled {
		es.log.Info("disabled, not starting")
		return nil
	}
	if es.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	entry, err := c.AddFunc(es.Schedule, func() {
		if _, err := es.RunNow(context.Background()); err != nil && !errors.Is(err, ErrSweepInProgress) {
			es.log.WithError(err).Warn("scheduled sweep failed")
		}
	})
	if err != nil {
		return err
	}
	es.cron, es.entry = c, entry
	c.Start()

	es.log.WithField("schedule", es.Schedule).Info("started")
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (es *ExpiryScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.cron == nil {
		return
	}
	<-es.cron.Stop().Done()
	es.cron = nil
	es.log.Info("stopped")
}

// NextRun returns when the next scheduled sweep will occur, or zero when
// the scheduler is not running.
func (es *ExpiryScheduler) NextRun() time.Time {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.cron == nil {
		return time.Time{}
	}
	return es.cron.Entry(es.entry).Next
}

// RunNow sweeps immediately and records the run.
func (es *ExpiryScheduler) RunNow(ctx context.Context) (inventory.SweepRun, error) {
	if !es.running.TryLock() {
		return inventory.SweepRun{}, ErrSweepInProgress
	}
	defer es.running.Unlock()

	now := es.Engine.Now()
	run := inventory.SweepRun{
		ID:        uuid.NewString(),
		Status:    inventory.SweepRunning,
		Cutoff:    now.Add(-es.Engine.MaxAge),
		StartedAt: now,
	}
	es.save(ctx, run)

	res, err := es.Engine.Sweep(ctx, now)

	completed := es.Engine.Now()
	run.Cutoff = res.Cutoff
	run.Scanned = res.Scanned
	run.Expired = len(res.Expired)
	run.CompletedAt = &completed
	run.Status = inventory.SweepCompleted
	if err != nil {
		run.Status = inventory.SweepFailed
		run.Error = err.Error()
	}
	es.save(ctx, run)

	if es.Metrics != nil {
		es.Metrics.observeSweep(run.Expired, err)
	}
	return run, err
}

func (es *ExpiryScheduler) save(ctx context.Context, run inventory.SweepRun) {
	if es.Runs == nil {
		return
	}
	if err := es.Runs.SaveSweepRun(ctx, run); err != nil {
		es.log.WithError(err).WithField("run", run.ID).Warn("failed to record sweep run")
	}
}
