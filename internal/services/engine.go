// Package services holds the use cases behind the HTTP API, the worker and
// the report CLI. Every method takes the already authenticated owner; the
// services never derive identity themselves.
package services

import (
	"fmt"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/store"
)

// EngineFactory builds owner-bound analytics engines over one backend.
type EngineFactory struct {
	ledger   store.LedgerStore
	budgets  store.BudgetStore
	strategy ledger.Strategy
	opts     analytics.Options
}

func NewEngineFactory(l store.LedgerStore, b store.BudgetStore, strategy ledger.Strategy, opts analytics.Options) *EngineFactory {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &EngineFactory{ledger: l, budgets: b, strategy: strategy, opts: opts}
}

// For returns an engine scoped to owner.
func (f *EngineFactory) For(owner string) (*analytics.Engine, error) {
	q, err := ledger.New(f.strategy, f.ledger, owner)
	if err != nil {
		return nil, fmt.Errorf("build ledger view: %w", err)
	}
	return analytics.NewEngine(q, ledger.NewBudgets(f.budgets, owner), f.opts), nil
}

// Querier returns the owner-bound ledger view.
func (f *EngineFactory) Querier(owner string) (ledger.Querier, error) {
	return ledger.New(f.strategy, f.ledger, owner)
}

func (f *EngineFactory) Location() *time.Location {
	return f.opts.Location
}

// authorize separates "missing" from "someone else's".
func authorize(owner, resourceOwner string) error {
	if resourceOwner != owner {
		return core.ErrForbidden
	}
	return nil
}

func requireOwner(owner string) error {
	if owner == "" {
		return core.ErrMissingOwner
	}
	return nil
}
