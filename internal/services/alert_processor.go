package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// EventConsumer delivers ledger events until ctx ends. *amqp.Client
// implements it.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// AlertSource computes the current-month alerts of an owner.
type AlertSource interface {
	Alerts(ctx context.Context, owner string) ([]analytics.Alert, error)
}

// Notifier receives the alerts recomputed after a ledger change.
type Notifier interface {
	Notify(ctx context.Context, owner string, alerts []analytics.Alert) error
}

// LogNotifier writes one log line per alert.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentWorker)}
}

func (n *LogNotifier) Notify(ctx context.Context, owner string, alerts []analytics.Alert) error {
	for _, a := range alerts {
		level := slog.LevelWarn
		if a.Severity == analytics.SeverityDanger {
			level = slog.LevelError
		}
		n.logger.LogContext(ctx, level, "Budget alert",
			log.FieldOwner, owner,
			log.FieldOperation, log.OpNotify,
			log.FieldSeverity, string(a.Severity),
			log.FieldCategory, a.Category,
			log.FieldPercentage, a.Percentage,
			"message", a.Message)
	}
	return nil
}

// AlertProcessorConfig holds configuration for the alert processor
type AlertProcessorConfig struct {
	// RetryInterval is how long to wait before consuming again after the
	// consumer failed (default: 5s)
	RetryInterval time.Duration
}

// DefaultAlertProcessorConfig returns sensible defaults
func DefaultAlertProcessorConfig() AlertProcessorConfig {
	return AlertProcessorConfig{RetryInterval: 5 * time.Second}
}

// AlertProcessor turns expense events into budget alert notifications.
type AlertProcessor struct {
	consumer EventConsumer
	alerts   AlertSource
	notifier Notifier
	config   AlertProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAlertProcessor(consumer EventConsumer, alerts AlertSource, notifier Notifier, config AlertProcessorConfig) *AlertProcessor {
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultAlertProcessorConfig().RetryInterval
	}
	return &AlertProcessor{
		consumer: consumer,
		alerts:   alerts,
		notifier: notifier,
		config:   config,
	}
}

// Handle recomputes the owner's alerts for one event. Income events are
// ignored since they never move spending.
func (p *AlertProcessor) Handle(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.Kind != core.Expense.String() {
		return nil
	}
	alerts, err := p.alerts.Alerts(ctx, ev.Owner)
	if err != nil {
		return fmt.Errorf("compute alerts for %s: %w", ev.Owner, err)
	}
	if len(alerts) == 0 {
		return nil
	}
	if err := p.notifier.Notify(ctx, ev.Owner, alerts); err != nil {
		return fmt.Errorf("notify %s: %w", ev.Owner, err)
	}
	return nil
}

// Start begins consuming. Returns an error if already running.
func (p *AlertProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("alert processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Alert processor started", "retry_interval", p.config.RetryInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion. Concurrent
// callers all wait on the same run.
func (p *AlertProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	done := p.doneCh
	p.mu.Unlock()

	select {
	case <-done:
		slog.InfoContext(ctx, "Alert processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Alert processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *AlertProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *AlertProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-consumeCtx.Done():
		}
	}()

	for {
		err := p.consumer.ConsumeLedgerEvents(consumeCtx, p.Handle)
		if consumeCtx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "Ledger event consumption failed", "error", err)
		}

		timer := time.NewTimer(p.config.RetryInterval)
		select {
		case <-consumeCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
