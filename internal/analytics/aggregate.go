// Package analytics turns fetched transactions and budgets into the derived
// views of the dashboard: period totals, budget tracking, alerts, trends and
// lifetime statistics. Everything here is request scoped and holds no state
// between calls.
package analytics

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Totals is the rollup of a set of transactions.
type Totals struct {
	Income            decimal.Decimal
	Expense           decimal.Decimal
	IncomeByCategory  map[string]decimal.Decimal
	ExpenseByCategory map[string]decimal.Decimal
	Count             int
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// Aggregate sums amounts by kind and by (kind, category). Transactions of an
// unknown kind are counted but contribute to neither side.
func Aggregate(txs []core.Transaction) Totals {
	t := Totals{
		Income:            decimal.Zero,
		Expense:           decimal.Zero,
		IncomeByCategory:  make(map[string]decimal.Decimal),
		ExpenseByCategory: make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		t.Count++
		switch tx.Kind {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
			t.IncomeByCategory[tx.Category] = t.IncomeByCategory[tx.Category].Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
			t.ExpenseByCategory[tx.Category] = t.ExpenseByCategory[tx.Category].Add(tx.Amount)
		}
	}
	return t
}
