// Package store declares the persistence ports the engine and services
// depend on. Adapters live in store/memory and storage.
package store

import (
	"context"
	"time"

	"fintrack/internal/core"
)

type (
	// TransactionQuery carries the predicates an adapter may push down.
	// Zero values mean "unconstrained". From and To are inclusive.
	// Adapters are free to ignore any predicate except the owner.
	TransactionQuery struct {
		Kind     core.Kind
		Category string
		From     time.Time
		To       time.Time
	}

	// BudgetQuery selects budgets of one owner. Zero Month or Year matches any.
	BudgetQuery struct {
		Category string
		Month    int
		Year     int
	}
)

// LedgerStore persists transactions.
type LedgerStore interface {
	QueryTransactions(ctx context.Context, owner string, q TransactionQuery) ([]core.Transaction, error)
	// GetTransaction is not owner scoped so callers can tell not-found from forbidden.
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// BudgetStore persists budgets.
type BudgetStore interface {
	QueryBudgets(ctx context.Context, owner string, q BudgetQuery) ([]core.Budget, error)
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	InsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
	// UpsertBudget creates the budget or replaces the amount of the one
	// occupying the same (owner, category, month, year) slot.
	UpsertBudget(ctx context.Context, b core.Budget) (stored core.Budget, created bool, err error)
}

// OwnerLister enumerates the owners holding at least one budget for
// month/year, sorted. Both adapters implement it; it stays optional so the
// request path never depends on cross-owner reads.
type OwnerLister interface {
	BudgetOwners(ctx context.Context, month, year int) ([]string, error)
}

// Store is the full persistence surface of a backend.
type Store interface {
	LedgerStore
	BudgetStore
	Close() error
}

// Matches reports whether tx satisfies every predicate of q.
func (q TransactionQuery) Matches(tx core.Transaction) bool {
	if q.Kind != "" && tx.Kind != q.Kind {
		return false
	}
	if q.Category != "" && tx.Category != q.Category {
		return false
	}
	if !q.From.IsZero() && tx.OccurredAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && tx.OccurredAt.After(q.To) {
		return false
	}
	return true
}

// Matches reports whether b satisfies every predicate of q.
func (q BudgetQuery) Matches(b core.Budget) bool {
	if q.Category != "" && b.Category != q.Category {
		return false
	}
	if q.Month != 0 && b.Month != q.Month {
		return false
	}
	if q.Year != 0 && b.Year != q.Year {
		return false
	}
	return true
}
