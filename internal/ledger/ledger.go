// Package ledger is the owner-bound query layer over a store.LedgerStore.
//
// Two strategies exist. Scan fetches the owner's whole ledger and filters in
// memory; Pushdown hands every predicate to the store. Both re-apply the full
// filter to whatever the store returns, so they select the same transactions
// whatever the adapter honours. Result order is unspecified.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const (
	StrategyPushdown Strategy = "pushdown"
	StrategyScan     Strategy = "scan"
)

// Strategy names a Querier implementation.
type Strategy string

// ParseStrategy accepts "pushdown" (the default for "") or "scan".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyPushdown:
		return StrategyPushdown, nil
	case StrategyScan:
		return StrategyScan, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownStrategy, s)
	}
}

// Filter constrains a fetch. Zero fields are unconstrained, and so is a zero
// Start or End of Period.
type Filter struct {
	Kind     core.Kind
	Category string
	Period   *core.Period
}

// ForPeriod returns a filter selecting every transaction inside p.
func ForPeriod(p core.Period) Filter {
	return Filter{Period: &p}
}

func (f Filter) matches(tx core.Transaction) bool {
	if f.Kind != "" && tx.Kind != f.Kind {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Period != nil {
		if !f.Period.Start.IsZero() && tx.OccurredAt.Before(f.Period.Start) {
			return false
		}
		if !f.Period.End.IsZero() && tx.OccurredAt.After(f.Period.End) {
			return false
		}
	}
	return true
}

func (f Filter) query() store.TransactionQuery {
	q := store.TransactionQuery{Kind: f.Kind, Category: f.Category}
	if f.Period != nil {
		q.From, q.To = f.Period.Start, f.Period.End
	}
	return q
}

// Querier fetches the transactions of the owner it was built for.
type Querier interface {
	Fetch(ctx context.Context, f Filter) ([]core.Transaction, error)
}

// New builds the Querier for strategy, bound to owner.
func New(strategy Strategy, s store.LedgerStore, owner string) (Querier, error) {
	if owner == "" {
		return nil, core.ErrMissingOwner
	}
	switch strategy {
	case StrategyPushdown:
		return NewPushdown(s, owner), nil
	case StrategyScan:
		return NewScan(s, owner), nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownStrategy, strategy)
	}
}

type Scan struct {
	store store.LedgerStore
	owner string
}

func NewScan(s store.LedgerStore, owner string) *Scan {
	return &Scan{store: s, owner: owner}
}

func (s *Scan) Fetch(ctx context.Context, f Filter) ([]core.Transaction, error) {
	all, err := s.store.QueryTransactions(ctx, s.owner, store.TransactionQuery{})
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return refine(all, s.owner, f), nil
}

type Pushdown struct {
	store store.LedgerStore
	owner string
}

func NewPushdown(s store.LedgerStore, owner string) *Pushdown {
	return &Pushdown{store: s, owner: owner}
}

func (p *Pushdown) Fetch(ctx context.Context, f Filter) ([]core.Transaction, error) {
	candidates, err := p.store.QueryTransactions(ctx, p.owner, f.query())
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	return refine(candidates, p.owner, f), nil
}

// refine filters in place; the input slice is owned by the caller's request.
func refine(txs []core.Transaction, owner string, f Filter) []core.Transaction {
	out := txs[:0]
	for _, tx := range txs {
		if tx.Owner == owner && f.matches(tx) {
			out = append(out, tx)
		}
	}
	return out
}
