package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	DefaultTrendMonths      = 6
	DefaultRecentLimit      = 5
	DefaultTrendConcurrency = 3
)

// BudgetReader is the owner-bound budget view the engine reads from.
type BudgetReader interface {
	ForMonth(ctx context.Context, month, year int) ([]core.Budget, error)
}

type Options struct {
	Location         *time.Location
	TrendConcurrency int
	Messages         *MessageFormatter
}

// Engine computes the dashboard views of one owner. Build one per request.
type Engine struct {
	ledger  ledger.Querier
	budgets BudgetReader
	opts    Options
}

func NewEngine(q ledger.Querier, b BudgetReader, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TrendConcurrency <= 0 {
		opts.TrendConcurrency = DefaultTrendConcurrency
	}
	if opts.Messages == nil {
		opts.Messages = DefaultMessageFormatter()
	}
	return &Engine{ledger: q, budgets: b, opts: opts}
}

// Location is the fixed time reference of every period the engine builds.
func (e *Engine) Location() *time.Location {
	return e.opts.Location
}

type Summary struct {
	Period core.Period
	Totals
}

// Summary aggregates every transaction inside p.
func (e *Engine) Summary(ctx context.Context, p core.Period) (Summary, error) {
	txs, err := e.ledger.Fetch(ctx, ledger.ForPeriod(p))
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}
	return Summary{Period: p, Totals: Aggregate(txs)}, nil
}

type TrendPoint struct {
	Period  core.Period
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Trend returns one point per month of the trailing window ending at ref,
// oldest first. Months are fetched concurrently, at most
// Options.TrendConcurrency at a time.
func (e *Engine) Trend(ctx context.Context, months int, ref time.Time) ([]TrendPoint, error) {
	periods := core.TrailingPeriods(months, ref, e.opts.Location)
	points := make([]TrendPoint, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.TrendConcurrency)
	for i, p := range periods {
		g.Go(func() error {
			txs, err := e.ledger.Fetch(gctx, ledger.ForPeriod(p))
			if err != nil {
				return fmt.Errorf("trend %04d-%02d: %w", p.Year(), p.Month(), err)
			}
			t := Aggregate(txs)
			// Each goroutine owns its slot; order does not depend on completion.
			points[i] = TrendPoint{Period: p, Income: t.Income, Expense: t.Expense, Balance: t.Balance()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Recent returns the newest transactions first, at most limit of them.
// A non-positive limit means DefaultRecentLimit.
func (e *Engine) Recent(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	txs, err := e.ledger.Fetch(ctx, ledger.Filter{})
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	SortNewestFirst(txs)
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// Tracking compares the budgets of month/year with that month's spending.
func (e *Engine) Tracking(ctx context.Context, month, year int) ([]TrackingRecord, error) {
	if err := core.ValidateMonthYear(month, year); err != nil {
		return nil, err
	}
	budgets, expenses, err := e.monthSpend(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("tracking: %w", err)
	}
	return Track(budgets, expenses), nil
}

// Alerts evaluates the budgets of the month containing now.
func (e *Engine) Alerts(ctx context.Context, now time.Time) ([]Alert, error) {
	current := core.DefaultPeriod(now, e.opts.Location)
	budgets, err := e.budgets.ForMonth(ctx, current.Month(), current.Year())
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}
	if len(budgets) == 0 {
		return []Alert{}, nil
	}
	txs, err := e.ledger.Fetch(ctx, ledger.Filter{Kind: core.Expense, Period: &current})
	if err != nil {
		return nil, fmt.Errorf("alerts: %w", err)
	}
	return Alerts(budgets, Aggregate(txs).ExpenseByCategory, e.opts.Messages), nil
}

// Stats reduces the owner's whole ledger relative to now.
func (e *Engine) Stats(ctx context.Context, now time.Time) (Statistics, error) {
	txs, err := e.ledger.Fetch(ctx, ledger.Filter{})
	if err != nil {
		return Statistics{}, fmt.Errorf("stats: %w", err)
	}
	return Stats(txs, now, e.opts.Location), nil
}

func (e *Engine) monthSpend(ctx context.Context, month, year int) ([]core.Budget, map[string]decimal.Decimal, error) {
	p := core.MonthPeriod(month, year, e.opts.Location)
	budgets, err := e.budgets.ForMonth(ctx, month, year)
	if err != nil {
		return nil, nil, err
	}
	txs, err := e.ledger.Fetch(ctx, ledger.Filter{Kind: core.Expense, Period: &p})
	if err != nil {
		return nil, nil, err
	}
	return budgets, Aggregate(txs).ExpenseByCategory, nil
}

// SortNewestFirst orders by occurredAt descending, then createdAt, then id,
// so equal timestamps sort the same way on every backend.
func SortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
