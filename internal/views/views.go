// Package views holds the JSON shapes shared by the HTTP API and the report
// CLI. Amounts leave the process as JSON numbers, instants as RFC 3339.
package views

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

type Transaction struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

type Budget struct {
	ID        string  `json:"id"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	Month     int     `json:"month"`
	Year      int     `json:"year"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

type Tracking struct {
	ID         string  `json:"id,omitempty"`
	Category   string  `json:"category"`
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
	Remaining  float64 `json:"remaining"`
	Percentage int64   `json:"percentage"`
	Status     string  `json:"status"`
}

type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Summary struct {
	Period           Period    `json:"period"`
	TotalIncome      float64   `json:"totalIncome"`
	TotalExpense     float64   `json:"totalExpense"`
	Balance          float64   `json:"balance"`
	TransactionCount int       `json:"transactionCount"`
	Breakdown        Breakdown `json:"breakdown"`
}

type Breakdown struct {
	ExpensesByCategory map[string]float64 `json:"expensesByCategory"`
	IncomesByCategory  map[string]float64 `json:"incomesByCategory"`
}

type TrendPoint struct {
	Month   int     `json:"month"`
	Year    int     `json:"year"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

type Alert struct {
	Severity   string  `json:"severity"`
	Category   string  `json:"category"`
	Message    string  `json:"message"`
	Percentage int64   `json:"percentage"`
	Spent      float64 `json:"spent"`
	Budgeted   float64 `json:"budgeted"`
}

type Stats struct {
	TotalIncome       float64 `json:"totalIncome"`
	TotalExpense      float64 `json:"totalExpense"`
	TotalSavings      float64 `json:"totalSavings"`
	TransactionCount  int     `json:"transactionCount"`
	MonthsTracked     int     `json:"monthsTracked"`
	AvgMonthlySavings int64   `json:"avgMonthlySavings"`
	SavingsRate       int64   `json:"savingsRate"`
	FirstActivity     string  `json:"firstActivity,omitempty"`
}

type Categories struct {
	UserCategories    []string            `json:"userCategories"`
	DefaultCategories map[string][]string `json:"defaultCategories"`
}

func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func amounts(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = amount(v)
	}
	return out
}

func NewTransaction(tx core.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID,
		Type:        tx.Kind.String(),
		Amount:      amount(tx.Amount),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        timestamp(tx.OccurredAt),
		CreatedAt:   timestamp(tx.CreatedAt),
		UpdatedAt:   timestamp(tx.UpdatedAt),
	}
}

func NewTransactions(txs []core.Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransaction(tx))
	}
	return out
}

func NewBudget(b core.Budget) Budget {
	return Budget{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    amount(b.Amount),
		Month:     b.Month,
		Year:      b.Year,
		CreatedAt: timestamp(b.CreatedAt),
		UpdatedAt: timestamp(b.UpdatedAt),
	}
}

func NewBudgets(bs []core.Budget) []Budget {
	out := make([]Budget, 0, len(bs))
	for _, b := range bs {
		out = append(out, NewBudget(b))
	}
	return out
}

func NewTracking(records []analytics.TrackingRecord) []Tracking {
	out := make([]Tracking, 0, len(records))
	for _, r := range records {
		out = append(out, Tracking{
			ID:         r.BudgetID,
			Category:   r.Category,
			Budgeted:   amount(r.Budgeted),
			Spent:      amount(r.Spent),
			Remaining:  amount(r.Remaining),
			Percentage: r.Percentage,
			Status:     string(r.Status),
		})
	}
	return out
}

func NewSummary(s analytics.Summary) Summary {
	return Summary{
		Period: Period{
			Start: timestamp(s.Period.Start),
			End:   timestamp(s.Period.End),
		},
		TotalIncome:      amount(s.Income),
		TotalExpense:     amount(s.Expense),
		Balance:          amount(s.Balance()),
		TransactionCount: s.Count,
		Breakdown: Breakdown{
			ExpensesByCategory: amounts(s.ExpenseByCategory),
			IncomesByCategory:  amounts(s.IncomeByCategory),
		},
	}
}

func NewTrend(points []analytics.TrendPoint) []TrendPoint {
	out := make([]TrendPoint, 0, len(points))
	for _, p := range points {
		out = append(out, TrendPoint{
			Month:   p.Period.Month(),
			Year:    p.Period.Year(),
			Income:  amount(p.Income),
			Expense: amount(p.Expense),
			Balance: amount(p.Balance),
		})
	}
	return out
}

func NewAlerts(alerts []analytics.Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, Alert{
			Severity:   string(a.Severity),
			Category:   a.Category,
			Message:    a.Message,
			Percentage: a.Percentage,
			Spent:      amount(a.Spent),
			Budgeted:   amount(a.Budgeted),
		})
	}
	return out
}

func NewStats(s analytics.Statistics) Stats {
	return Stats{
		TotalIncome:       amount(s.TotalIncome),
		TotalExpense:      amount(s.TotalExpense),
		TotalSavings:      amount(s.TotalSavings),
		TransactionCount:  s.TransactionCount,
		MonthsTracked:     s.MonthsTracked,
		AvgMonthlySavings: s.AvgMonthlySavings,
		SavingsRate:       s.SavingsRate,
		FirstActivity:     timestamp(s.FirstActivity),
	}
}

func NewCategories(c services.Categories) Categories {
	defaults := make(map[string][]string, len(c.Defaults))
	for kind, cats := range c.Defaults {
		defaults[kind.String()] = cats
	}
	return Categories{UserCategories: c.User, DefaultCategories: defaults}
}
