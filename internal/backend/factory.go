package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/storage"
)

// DefaultFactory opens stores and dials the broker.
type DefaultFactory struct {
	logger *slog.Logger
	dial   func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial:   amqp.NewClient,
	}
}

// CreateBackend opens the configured store. A broker that cannot be reached
// is logged and left out.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		s   store.Store
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		s, err = f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		s = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	events := f.connectEvents(ctx, config)
	owners, _ := s.(store.OwnerLister)
	return &Result{
		Store:  s,
		Owners: owners,
		Events: events,
		Cleanup: func() error {
			var errs []error
			if events != nil {
				errs = append(errs, events.Close())
			}
			errs = append(errs, s.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (store.Store, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())
	return repo, nil
}

// connectEvents returns nil when AMQP is off or unreachable; the API keeps
// serving without events.
func (f *DefaultFactory) connectEvents(ctx context.Context, config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
