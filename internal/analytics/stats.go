package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Statistics summarises an owner's whole ledger.
type Statistics struct {
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	TotalSavings      decimal.Decimal
	TransactionCount  int
	MonthsTracked     int
	AvgMonthlySavings int64
	SavingsRate       int64
	FirstActivity     time.Time // zero for an empty ledger
}

// Stats reduces the unfiltered ledger. monthsTracked counts calendar months
// from the earliest occurredAt to now inclusive, never less than one.
func Stats(txs []core.Transaction, now time.Time, loc *time.Location) Statistics {
	totals := Aggregate(txs)
	s := Statistics{
		TotalIncome:      totals.Income,
		TotalExpense:     totals.Expense,
		TotalSavings:     totals.Balance(),
		TransactionCount: len(txs),
		MonthsTracked:    1,
	}

	for _, tx := range txs {
		if s.FirstActivity.IsZero() || tx.OccurredAt.Before(s.FirstActivity) {
			s.FirstActivity = tx.OccurredAt
		}
	}
	if !s.FirstActivity.IsZero() {
		s.MonthsTracked = max(1, core.MonthsBetween(s.FirstActivity, now, loc))
	}

	s.AvgMonthlySavings = core.RoundHalfUp(s.TotalSavings.Div(decimal.NewFromInt(int64(s.MonthsTracked))))
	if s.TotalIncome.IsPositive() {
		s.SavingsRate = core.RoundHalfUp(core.Percent(s.TotalSavings, s.TotalIncome))
	}
	return s
}
