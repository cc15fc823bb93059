package views

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

func TestNewSummary(t *testing.T) {
	p := core.MonthPeriod(3, 2025, time.UTC)
	s := analytics.Summary{
		Period: p,
		Totals: analytics.Totals{
			Income:            decimal.NewFromInt(1000),
			Expense:           decimal.RequireFromString("250.5"),
			IncomeByCategory:  map[string]decimal.Decimal{"Salary": decimal.NewFromInt(1000)},
			ExpenseByCategory: map[string]decimal.Decimal{"Food": decimal.RequireFromString("250.5")},
			Count:             2,
		},
	}

	v := NewSummary(s)
	assert.Equal(t, "2025-03-01T00:00:00Z", v.Period.Start)
	assert.Equal(t, "2025-03-31T23:59:59.999999999Z", v.Period.End)
	assert.Equal(t, 1000.0, v.TotalIncome)
	assert.Equal(t, 250.5, v.TotalExpense)
	assert.Equal(t, 749.5, v.Balance)
	assert.Equal(t, 2, v.TransactionCount)
	assert.Equal(t, map[string]float64{"Food": 250.5}, v.Breakdown.ExpensesByCategory)
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	for name, v := range map[string]any{
		"transactions": NewTransactions(nil),
		"budgets":      NewBudgets(nil),
		"tracking":     NewTracking(nil),
		"trend":        NewTrend(nil),
		"alerts":       NewAlerts(nil),
	} {
		b, err := json.Marshal(v)
		require.NoError(t, err, name)
		assert.Equal(t, "[]", string(b), name)
	}
}

func TestNewStatsOmitsFirstActivityWhenEmpty(t *testing.T) {
	b, err := json.Marshal(NewStats(analytics.Statistics{MonthsTracked: 1}))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "firstActivity")
	assert.Contains(t, string(b), `"monthsTracked":1`)
}

func TestNewAlerts(t *testing.T) {
	got := NewAlerts([]analytics.Alert{{
		Severity:   analytics.SeverityDanger,
		Category:   "Food",
		Percentage: 130,
		Spent:      decimal.NewFromInt(130),
		Budgeted:   decimal.NewFromInt(100),
		Message:    "over",
	}})
	require.Len(t, got, 1)
	assert.Equal(t, Alert{Severity: "danger", Category: "Food", Message: "over", Percentage: 130, Spent: 130, Budgeted: 100}, got[0])
}

func TestTrackingAndAlertWireNames(t *testing.T) {
	tracking := NewTracking([]analytics.TrackingRecord{
		{Category: "Food", Budgeted: decimal.NewFromInt(200), Spent: decimal.NewFromInt(250), Remaining: decimal.NewFromInt(-50), Percentage: 125, Status: analytics.StatusExceeded},
		{Category: "Transport", Budgeted: decimal.Zero, Spent: decimal.NewFromInt(50), Remaining: decimal.NewFromInt(-50), Percentage: 100, Status: analytics.StatusNoBudget},
	})
	b, err := json.Marshal(tracking)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"category":"Food","budgeted":200,"spent":250,"remaining":-50,"percentage":125,"status":"exceeded"},
		{"category":"Transport","budgeted":0,"spent":50,"remaining":-50,"percentage":100,"status":"no_budget"}
	]`, string(b))

	alerts := NewAlerts([]analytics.Alert{{
		Severity:   analytics.SeverityDanger,
		Category:   "Food",
		Percentage: 125,
		Spent:      decimal.NewFromInt(250),
		Budgeted:   decimal.NewFromInt(200),
		Message:    "over",
	}})
	b, err = json.Marshal(alerts)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"severity":"danger","category":"Food","message":"over","percentage":125,"spent":250,"budgeted":200}]`, string(b))

	b, err = json.Marshal(NewSummary(analytics.Summary{Period: core.MonthPeriod(3, 2025, time.UTC)}))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(b, &summary))
	period := summary["period"].(map[string]any)
	assert.Equal(t, "2025-03-01T00:00:00Z", period["start"])
	assert.Contains(t, period, "end")
	assert.NotContains(t, period, "startDate")
}
