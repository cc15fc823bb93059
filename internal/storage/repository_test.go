package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func tx(owner string, kind core.Kind, amount string, category string, at time.Time) core.Transaction {
	return core.Transaction{
		Owner:      owner,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		Category:   category,
		OccurredAt: at,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	first, err := Migrate(path)
	require.NoError(t, err)
	second, err := Migrate(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
	assert.Equal(t, first, second)

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	assert.Equal(t, uint(1), repo.SchemaVersion())
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 15, 9, 30, 0, 123, time.UTC)

	in := tx("alice", core.Expense, "12.34", "Food", at)
	in.Description = "groceries"
	saved, err := repo.InsertTransaction(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := repo.GetTransaction(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, core.Expense, got.Kind)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, "groceries", got.Description)
	assert.True(t, got.OccurredAt.Equal(at))

	got.Amount = decimal.NewFromInt(20)
	got.Category = "Transport"
	_, err = repo.UpdateTransaction(ctx, got)
	require.NoError(t, err)

	again, err := repo.GetTransaction(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transport", again.Category)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(20)))

	require.NoError(t, repo.DeleteTransaction(ctx, saved.ID))
	_, err = repo.GetTransaction(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, saved.ID), core.ErrNotFound)
}

func TestQueryTransactionsPushesDownEveryPredicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	march := core.MonthPeriod(3, 2025, time.UTC)

	for _, in := range []core.Transaction{
		tx("alice", core.Expense, "10", "Food", march.Start),
		tx("alice", core.Expense, "20", "Food", march.End),
		tx("alice", core.Expense, "30", "Food", march.End.Add(time.Nanosecond)),
		tx("alice", core.Expense, "40", "Rent", march.Start),
		tx("alice", core.Income, "50", "Food", march.Start),
		tx("bob", core.Expense, "60", "Food", march.Start),
	} {
		_, err := repo.InsertTransaction(ctx, in)
		require.NoError(t, err)
	}

	got, err := repo.QueryTransactions(ctx, "alice", store.TransactionQuery{
		Kind:     core.Expense,
		Category: "Food",
		From:     march.Start,
		To:       march.End,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	total := decimal.Zero
	for _, item := range got {
		total = total.Add(item.Amount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(30)))

	all, err := repo.QueryTransactions(ctx, "alice", store.TransactionQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestInsertBudgetEnforcesCompoundKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	b := core.Budget{Owner: "alice", Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025}

	_, err := repo.InsertBudget(ctx, b)
	require.NoError(t, err)

	_, err = repo.InsertBudget(ctx, b)
	assert.ErrorIs(t, err, core.ErrDuplicateBudget)

	// Other owner, other month: independent slots.
	other := b
	other.Owner = "bob"
	_, err = repo.InsertBudget(ctx, other)
	require.NoError(t, err)
	other = b
	other.Month = 4
	_, err = repo.InsertBudget(ctx, other)
	require.NoError(t, err)

	got, err := repo.QueryBudgets(ctx, "alice", store.BudgetQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpsertBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	b := core.Budget{Owner: "alice", Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025}

	first, created, err := repo.UpsertBudget(ctx, b)
	require.NoError(t, err)
	assert.True(t, created)

	b.Amount = decimal.NewFromInt(350)
	second, created, err := repo.UpsertBudget(ctx, b)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(350)))

	got, err := repo.QueryBudgets(ctx, "alice", store.BudgetQuery{Month: 3, Year: 2025, Category: "Food"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(350)))
}

func TestBudgetOwners(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, b := range []core.Budget{
		{Owner: "carol", Category: "Food", Amount: decimal.NewFromInt(1), Month: 3, Year: 2025},
		{Owner: "alice", Category: "Food", Amount: decimal.NewFromInt(1), Month: 3, Year: 2025},
		{Owner: "alice", Category: "Rent", Amount: decimal.NewFromInt(1), Month: 3, Year: 2025},
		{Owner: "bob", Category: "Food", Amount: decimal.NewFromInt(1), Month: 4, Year: 2025},
	} {
		_, err := repo.InsertBudget(ctx, b)
		require.NoError(t, err)
	}

	owners, err := repo.BudgetOwners(ctx, 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, owners)

	owners, err = repo.BudgetOwners(ctx, 5, 2025)
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestBudgetUpdateAndDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	b, err := repo.InsertBudget(ctx, core.Budget{Owner: "alice", Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025})
	require.NoError(t, err)

	b.Amount = decimal.NewFromInt(250)
	_, err = repo.UpdateBudget(ctx, b)
	require.NoError(t, err)

	got, err := repo.GetBudget(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(250)))

	require.NoError(t, repo.DeleteBudget(ctx, b.ID))
	_, err = repo.GetBudget(ctx, b.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.UpdateBudget(ctx, b)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClosedDatabaseSurfacesStoreError(t *testing.T) {
	repo := newTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.QueryTransactions(context.Background(), "alice", store.TransactionQuery{})
	assert.ErrorIs(t, err, core.ErrStore)
}
