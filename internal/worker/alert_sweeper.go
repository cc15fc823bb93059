package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

// AlertSweeper recomputes the current-month alerts of every owner holding a
// budget that month. It is the backup for ledger events the consumer missed
// while the worker was down or the broker unreachable.
type AlertSweeper struct {
	owners   store.OwnerLister
	alerts   services.AlertSource
	notifier services.Notifier
	loc      *time.Location
	interval time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// SweepResult summarises one pass.
type SweepResult struct {
	Owners   int
	Notified int
	Errors   int
}

func NewAlertSweeper(owners store.OwnerLister, alerts services.AlertSource, notifier services.Notifier, loc *time.Location, interval time.Duration, logger *log.Logger) *AlertSweeper {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertSweeper{
		owners:   owners,
		alerts:   alerts,
		notifier: notifier,
		loc:      loc,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// WithClock replaces the time source that picks the current month.
func (w *AlertSweeper) WithClock(now func() time.Time) *AlertSweeper {
	w.now = now
	return w
}

// Sweep runs one pass. A failure for one owner is logged and counted; only
// failing to enumerate owners aborts the pass.
func (w *AlertSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	p := core.DefaultPeriod(w.now(), w.loc)
	owners, err := w.owners.BudgetOwners(ctx, p.Month(), p.Year())
	if err != nil {
		return SweepResult{}, fmt.Errorf("list budget owners: %w", err)
	}

	res := SweepResult{Owners: len(owners)}
	for _, owner := range owners {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		alerts, err := w.alerts.Alerts(ctx, owner)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to compute alerts", log.FieldOwner, owner, log.FieldError, err)
			res.Errors++
			continue
		}
		if len(alerts) == 0 {
			continue
		}
		if err := w.notifier.Notify(ctx, owner, alerts); err != nil {
			w.logger.ErrorContext(ctx, "Failed to notify", log.FieldOwner, owner, log.FieldError, err)
			res.Errors++
			continue
		}
		res.Notified++
	}

	w.logger.InfoContext(ctx, "Alert sweep completed",
		log.FieldMonth, p.Month(),
		log.FieldYear, p.Year(),
		"owners", res.Owners,
		"notified", res.Notified,
		"errors", res.Errors)
	return res, nil
}

// Run sweeps once at startup, then every interval until ctx ends. A
// non-positive interval means startup only.
func (w *AlertSweeper) Run(ctx context.Context) {
	if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Startup alert sweep failed", log.FieldError, err)
	}
	if w.interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic alert sweep failed", log.FieldError, err)
			}
		}
	}
}
