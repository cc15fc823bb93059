package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
	StatusNoBudget Status = "no_budget"
)

var (
	warningThreshold = decimal.NewFromInt(80)
	fullThreshold    = decimal.NewFromInt(100)
)

// Status classifies a tracking record.
type Status string

// TrackingRecord compares budgeted and actual spend for one category.
// BudgetID is empty for synthesized no_budget records.
type TrackingRecord struct {
	BudgetID   string
	Category   string
	Budgeted   decimal.Decimal
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Percentage int64
	Status     Status
}

// classify applies the thresholds to the unrounded percentage.
func classify(pct decimal.Decimal) Status {
	switch {
	case pct.GreaterThan(fullThreshold):
		return StatusExceeded
	case pct.GreaterThan(warningThreshold):
		return StatusWarning
	default:
		return StatusOK
	}
}

// Track joins budgets, already scoped to one period, with that period's
// expense rollup. One record per budget in input order, then one no_budget
// record per spending category without a budget, sorted by name.
func Track(budgets []core.Budget, expenseByCategory map[string]decimal.Decimal) []TrackingRecord {
	records := make([]TrackingRecord, 0, len(budgets)+len(expenseByCategory))
	budgeted := make(map[string]struct{}, len(budgets))

	for _, b := range budgets {
		budgeted[b.Category] = struct{}{}
		spent := expenseByCategory[b.Category]
		pct := core.Percent(spent, b.Amount)
		records = append(records, TrackingRecord{
			BudgetID:   b.ID,
			Category:   b.Category,
			Budgeted:   b.Amount,
			Spent:      spent,
			Remaining:  b.Amount.Sub(spent),
			Percentage: core.RoundHalfUp(pct),
			Status:     classify(pct),
		})
	}

	unbudgeted := make([]string, 0)
	for category := range expenseByCategory {
		if _, ok := budgeted[category]; !ok {
			unbudgeted = append(unbudgeted, category)
		}
	}
	sort.Strings(unbudgeted)

	for _, category := range unbudgeted {
		spent := expenseByCategory[category]
		records = append(records, TrackingRecord{
			Category:   category,
			Budgeted:   decimal.Zero,
			Spent:      spent,
			Remaining:  spent.Neg(),
			Percentage: 100,
			Status:     StatusNoBudget,
		})
	}
	return records
}
