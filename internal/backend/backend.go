// Package backend assembles the store and the optional event client a binary
// runs on.
package backend

import (
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	"fintrack/internal/store"
)

type Kind string

const (
	SQLiteBackend Kind = "sqlite"
	MemoryBackend Kind = "memory"
)

func (k Kind) IsValid() bool {
	return k == SQLiteBackend || k == MemoryBackend
}

// Config selects the store and where ledger events go.
type Config struct {
	Type         Kind
	SQLiteDBPath string

	// AMQPURL empty disables events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig picks the backend fields out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Type:         Kind(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return errors.New("sqlite backend needs a database path")
	}
	return nil
}

// Result is what a binary wires its services to.
type Result struct {
	Store store.Store

	// Owners is set when Store can enumerate budget owners.
	Owners store.OwnerLister

	// Events is nil when AMQP is not configured or unreachable.
	Events *amqp.Client

	// Cleanup closes Events, then Store.
	Cleanup func() error
}
