package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	txs := []core.Transaction{
		{Owner: "alice", Kind: core.Income, Amount: decimal.NewFromInt(2000), Category: "Salary", OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		{Owner: "alice", Kind: core.Expense, Amount: decimal.NewFromInt(450), Category: "Food", OccurredAt: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)},
		{Owner: "alice", Kind: core.Expense, Amount: decimal.NewFromInt(300), Category: "Rent", OccurredAt: time.Date(2025, 2, 4, 9, 0, 0, 0, time.UTC)},
		{Owner: "bob", Kind: core.Expense, Amount: decimal.NewFromInt(999), Category: "Food", OccurredAt: time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)},
	}
	for _, tx := range txs {
		_, err := s.InsertTransaction(ctx, tx)
		require.NoError(t, err)
	}
	_, err := s.InsertBudget(ctx, core.Budget{Owner: "alice", Category: "Food", Amount: decimal.NewFromInt(500), Month: 3, Year: 2025})
	require.NoError(t, err)
	return s
}

type result struct {
	status subcommands.ExitStatus
	out    string
	err    string
}

func execute(t *testing.T, open Opener, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &App{Open: open, Location: time.UTC, Out: &out, Err: &errOut}

	fs := flag.NewFlagSet("fintrack-report", flag.ContinueOnError)
	fs.SetOutput(&errOut)
	c := subcommands.NewCommander(fs, "fintrack-report")
	Register(c, app)
	require.NoError(t, fs.Parse(args))

	status := c.Execute(context.Background())
	return result{status: status, out: out.String(), err: errOut.String()}
}

func memoryOpener(s *memory.Store) Opener {
	return func(context.Context) (*services.DashboardService, func() error, error) {
		engines := services.NewEngineFactory(s, s, ledger.StrategyScan, analytics.Options{Location: time.UTC})
		dash := services.NewDashboardService(engines, nil, nil).WithClock(func() time.Time { return fixedNow })
		return dash, func() error { return nil }, nil
	}
}

func TestSummaryCommand(t *testing.T) {
	res := execute(t, memoryOpener(seededStore(t)), "summary", "-owner", "alice")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)

	var got struct {
		TotalIncome      float64 `json:"totalIncome"`
		TotalExpense     float64 `json:"totalExpense"`
		Balance          float64 `json:"balance"`
		TransactionCount int     `json:"transactionCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	assert.Equal(t, 2000.0, got.TotalIncome)
	assert.Equal(t, 450.0, got.TotalExpense)
	assert.Equal(t, 1550.0, got.Balance)
	assert.Equal(t, 2, got.TransactionCount)
}

func TestSummaryCommandExplicitMonth(t *testing.T) {
	res := execute(t, memoryOpener(seededStore(t)), "summary", "-owner", "alice", "-month", "2", "-year", "2025")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)
	assert.Contains(t, res.out, `"totalExpense": 300`)
}

func TestTrendCommand(t *testing.T) {
	res := execute(t, memoryOpener(seededStore(t)), "trend", "-owner", "alice", "-months", "2")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)

	var got struct {
		Data []struct {
			Month   int     `json:"month"`
			Expense float64 `json:"expense"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.out), &got))
	require.Len(t, got.Data, 2)
	assert.Equal(t, 2, got.Data[0].Month)
	assert.Equal(t, 300.0, got.Data[0].Expense)
	assert.Equal(t, 3, got.Data[1].Month)
	assert.Equal(t, 450.0, got.Data[1].Expense)
}

func TestAlertsAndTrackingCommands(t *testing.T) {
	open := memoryOpener(seededStore(t))

	res := execute(t, open, "alerts", "-owner", "alice")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)
	assert.Contains(t, res.out, `"severity": "warning"`)
	assert.Contains(t, res.out, `"percentage": 90`)

	res = execute(t, open, "tracking", "-owner", "alice", "-month", "3", "-year", "2025")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)
	assert.Contains(t, res.out, `"status": "warning"`)
	assert.Contains(t, res.out, `"remaining": 50`)
	assert.Contains(t, res.out, `"budgeted": 500`)
}

func TestStatsCommandIsolatesOwners(t *testing.T) {
	res := execute(t, memoryOpener(seededStore(t)), "stats", "-owner", "bob")
	require.Equal(t, subcommands.ExitSuccess, res.status, res.err)
	assert.Contains(t, res.out, `"totalExpense": 999`)
	assert.Contains(t, res.out, `"totalIncome": 0`)
}

func TestCommandErrors(t *testing.T) {
	open := memoryOpener(seededStore(t))
	tests := []struct {
		name   string
		open   Opener
		args   []string
		status subcommands.ExitStatus
		errMsg string
	}{
		{"missing owner", open, []string{"summary"}, subcommands.ExitUsageError, "-owner is required"},
		{"month without year", open, []string{"tracking", "-owner", "alice", "-month", "3"}, subcommands.ExitUsageError, "month and year"},
		{"month out of range", open, []string{"summary", "-owner", "alice", "-month", "13", "-year", "2025"}, subcommands.ExitUsageError, "month"},
		{"bad window", open, []string{"trend", "-owner", "alice", "-months", "0"}, subcommands.ExitUsageError, "months"},
		{
			"open fails",
			func(context.Context) (*services.DashboardService, func() error, error) {
				return nil, nil, errors.New("unable to open database")
			},
			[]string{"stats", "-owner", "alice"},
			subcommands.ExitFailure,
			"unable to open database",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, tt.open, tt.args...)
			assert.Equal(t, tt.status, res.status)
			assert.Contains(t, res.err, tt.errMsg)
			assert.Empty(t, res.out)
		})
	}
}
