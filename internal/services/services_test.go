package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/storage"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

var fixedNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type fixture struct {
	store     store.Store
	dashboard *DashboardService
	txs       *TransactionService
	budgets   *BudgetService
	summaries *cache.LRUCache[analytics.Summary]
}

func newFixture(t *testing.T, s store.Store, opts ...TransactionOption) *fixture {
	t.Helper()
	engines := NewEngineFactory(s, s, ledger.StrategyPushdown, analytics.Options{Location: time.UTC})
	summaries := cache.NewLRUCache[analytics.Summary](10, time.Minute)
	dashboard := NewDashboardService(engines, summaries, nil).WithClock(clock)
	opts = append([]TransactionOption{WithTransactionClock(clock), WithInvalidator(dashboard)}, opts...)
	return &fixture{
		store:     s,
		dashboard: dashboard,
		txs:       NewTransactionService(s, engines, opts...),
		budgets:   NewBudgetService(s, dashboard, nil),
		summaries: summaries,
	}
}

func newSQLite(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func expenseInput(amount int64, category string, at time.Time) TransactionInput {
	return TransactionInput{Kind: core.Expense, Amount: decimal.NewFromInt(amount), Category: category, OccurredAt: at}
}

func TestTransactionCreatePublishes(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishLedgerEvent", mock.Anything, mock.MatchedBy(func(ev *amqp.LedgerEvent) bool {
		return ev.Owner == "alice" && ev.Op == amqp.OpCreated && ev.Kind == "expense" && ev.Category == "Transport"
	})).Return(nil).Once()

	f := newFixture(t, memory.New(), WithPublisher(pub))
	tx, err := f.txs.Create(context.Background(), "alice", TransactionInput{
		Kind:     core.Expense,
		Amount:   decimal.NewFromInt(1500),
		Category: "  Transport ",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, "Transport", tx.Category)
	assert.Equal(t, fixedNow, tx.OccurredAt)
	pub.AssertExpectations(t)
}

func TestTransactionCreatePublishFailureIsNotFatal(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("PublishLedgerEvent", mock.Anything, mock.Anything).Return(amqp.ErrCircuitOpen)

	f := newFixture(t, memory.New(), WithPublisher(pub))
	_, err := f.txs.Create(context.Background(), "alice", expenseInput(10, "Food", fixedNow))
	require.NoError(t, err)
	pub.AssertNumberOfCalls(t, "PublishLedgerEvent", 1)
}

func TestTransactionCreateValidation(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	_, err := f.txs.Create(ctx, "", expenseInput(10, "Food", fixedNow))
	assert.ErrorIs(t, err, core.ErrMissingOwner)

	_, err = f.txs.Create(ctx, "alice", expenseInput(0, "Food", fixedNow))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.txs.Create(ctx, "alice", TransactionInput{Kind: "gift", Amount: decimal.NewFromInt(1), Category: "Food"})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTransactionNotFoundVersusForbidden(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	tx, err := f.txs.Create(ctx, "alice", expenseInput(10, "Food", fixedNow))
	require.NoError(t, err)

	_, err = f.txs.Get(ctx, "bob", tx.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = f.txs.Get(ctx, "bob", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.txs.Delete(ctx, "bob", tx.ID), core.ErrForbidden)
	amount := decimal.NewFromInt(5)
	_, err = f.txs.Update(ctx, "bob", tx.ID, TransactionPatch{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrForbidden)

	require.NoError(t, f.txs.Delete(ctx, "alice", tx.ID))
	assert.ErrorIs(t, f.txs.Delete(ctx, "alice", tx.ID), core.ErrNotFound)
}

func TestTransactionUpdatePatchesOnlyGivenFields(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	tx, err := f.txs.Create(ctx, "alice", TransactionInput{
		Kind:        core.Expense,
		Amount:      decimal.NewFromInt(10),
		Category:    "Food",
		Description: "lunch",
		OccurredAt:  fixedNow,
	})
	require.NoError(t, err)

	amount := decimal.NewFromInt(25)
	updated, err := f.txs.Update(ctx, "alice", tx.ID, TransactionPatch{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "Food", updated.Category)
	assert.Equal(t, "lunch", updated.Description)
	assert.Equal(t, core.Expense, updated.Kind)

	empty := " "
	_, err = f.txs.Update(ctx, "alice", tx.ID, TransactionPatch{Category: &empty})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTransactionWritesInvalidateSummary(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()

	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	tx, err := f.txs.Create(ctx, "alice", expenseInput(100, "Food", fixedNow))
	require.NoError(t, err)

	s, err := f.dashboard.Summary(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.True(t, s.Expense.Equal(decimal.NewFromInt(100)))
	_, cached := f.summaries.Get(summaryKey("alice", 2025, 3))
	require.True(t, cached)

	_, err = f.dashboard.Summary(ctx, "alice", 2, 2025)
	require.NoError(t, err)

	// Moving the entry to February touches both months.
	_, err = f.txs.Update(ctx, "alice", tx.ID, TransactionPatch{OccurredAt: &feb})
	require.NoError(t, err)
	_, cached = f.summaries.Get(summaryKey("alice", 2025, 3))
	assert.False(t, cached)
	_, cached = f.summaries.Get(summaryKey("alice", 2025, 2))
	assert.False(t, cached)

	march, err := f.dashboard.Summary(ctx, "alice", 3, 2025)
	require.NoError(t, err)
	assert.True(t, march.Expense.IsZero())
	february, err := f.dashboard.Summary(ctx, "alice", 2, 2025)
	require.NoError(t, err)
	assert.True(t, february.Expense.Equal(decimal.NewFromInt(100)))
}

func TestSummaryRejectsHalfPeriod(t *testing.T) {
	f := newFixture(t, memory.New())
	_, err := f.dashboard.Summary(context.Background(), "alice", 3, 0)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = f.dashboard.Summary(context.Background(), "alice", 13, 2025)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTransactionList(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		_, err := f.txs.Create(ctx, "alice", expenseInput(int64(i+1), "Food", fixedNow.Add(-time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := f.txs.Create(ctx, "alice", TransactionInput{Kind: core.Income, Amount: decimal.NewFromInt(1000), Category: "Salaire", OccurredAt: fixedNow})
	require.NoError(t, err)
	_, err = f.txs.Create(ctx, "bob", expenseInput(5, "Food", fixedNow))
	require.NoError(t, err)

	all, err := f.txs.List(ctx, "alice", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, DefaultListLimit)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].OccurredAt.After(all[i-1].OccurredAt), "not newest first at %d", i)
	}

	incomes, err := f.txs.List(ctx, "alice", ListOptions{Kind: core.Income})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, "Salaire", incomes[0].Category)

	window, err := f.txs.List(ctx, "alice", ListOptions{
		Kind:  core.Expense,
		From:  fixedNow.Add(-2 * time.Hour),
		To:    fixedNow,
		Limit: 100,
	})
	require.NoError(t, err)
	assert.Len(t, window, 3)

	_, err = f.txs.List(ctx, "alice", ListOptions{From: fixedNow, To: fixedNow.Add(-time.Hour)})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategories(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	for _, c := range []string{"Transport", "Alimentation", "Transport"} {
		_, err := f.txs.Create(ctx, "alice", expenseInput(1, c, fixedNow))
		require.NoError(t, err)
	}
	_, err := f.txs.Create(ctx, "bob", expenseInput(1, "Secret", fixedNow))
	require.NoError(t, err)

	got, err := f.txs.Categories(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alimentation", "Transport"}, got.User)
	assert.Contains(t, got.Defaults[core.Income], "Salaire")
	assert.Contains(t, got.Defaults[core.Expense], "Autres dépenses")
}

func TestBudgetCreateDuplicate(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	in := BudgetInput{Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025}

	_, err := f.budgets.Create(ctx, "alice", in)
	require.NoError(t, err)
	_, err = f.budgets.Create(ctx, "alice", in)
	assert.ErrorIs(t, err, core.ErrDuplicateBudget)

	// Another owner, or another month, is a different slot.
	_, err = f.budgets.Create(ctx, "bob", in)
	assert.NoError(t, err)
	in.Month = 4
	_, err = f.budgets.Create(ctx, "alice", in)
	assert.NoError(t, err)

	march, err := f.budgets.List(ctx, "alice", 3, 2025)
	require.NoError(t, err)
	assert.Len(t, march, 1)
	all, err := f.budgets.List(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBudgetUpsert(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	in := BudgetInput{Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025}

	first, created, err := f.budgets.Upsert(ctx, "alice", in)
	require.NoError(t, err)
	assert.True(t, created)

	in.Amount = decimal.NewFromInt(350)
	second, created, err := f.budgets.Upsert(ctx, "alice", in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Amount.Equal(in.Amount))

	list, err := f.budgets.List(ctx, "alice", 3, 2025)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBudgetUpdateAndDeleteOwnership(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	b, err := f.budgets.Create(ctx, "alice", BudgetInput{Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025})
	require.NoError(t, err)

	_, err = f.budgets.UpdateAmount(ctx, "bob", b.ID, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = f.budgets.UpdateAmount(ctx, "alice", "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = f.budgets.UpdateAmount(ctx, "alice", b.ID, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrValidation)

	updated, err := f.budgets.UpdateAmount(ctx, "alice", b.ID, decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(300)))

	assert.ErrorIs(t, f.budgets.Delete(ctx, "bob", b.ID), core.ErrForbidden)
	require.NoError(t, f.budgets.Delete(ctx, "alice", b.ID))
	assert.ErrorIs(t, f.budgets.Delete(ctx, "alice", b.ID), core.ErrNotFound)
}

func TestBudgetTracking(t *testing.T) {
	f := newFixture(t, memory.New())
	ctx := context.Background()
	_, err := f.budgets.Create(ctx, "alice", BudgetInput{Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025})
	require.NoError(t, err)
	_, err = f.txs.Create(ctx, "alice", expenseInput(170, "Food", fixedNow))
	require.NoError(t, err)

	records, err := f.budgets.Tracking(ctx, "alice", 3, 2025)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, analytics.StatusWarning, records[0].Status)
	assert.Equal(t, int64(85), records[0].Percentage)

	_, err = f.budgets.Tracking(ctx, "alice", 0, 2025)
	assert.ErrorIs(t, err, core.ErrValidation)
}

// gatedBudgets holds every QueryBudgets caller until n of them have looked,
// forcing the check-then-act interleaving.
type gatedBudgets struct {
	store.Store
	arrived sync.WaitGroup
}

func newGatedBudgets(s store.Store, n int) *gatedBudgets {
	g := &gatedBudgets{Store: s}
	g.arrived.Add(n)
	return g
}

func (g *gatedBudgets) QueryBudgets(ctx context.Context, owner string, q store.BudgetQuery) ([]core.Budget, error) {
	out, err := g.Store.QueryBudgets(ctx, owner, q)
	g.arrived.Done()
	g.arrived.Wait()
	return out, err
}

func createConcurrently(t *testing.T, svc *BudgetService) []error {
	t.Helper()
	in := BudgetInput{Category: "Food", Amount: decimal.NewFromInt(200), Month: 3, Year: 2025}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), "alice", in)
		}()
	}
	wg.Wait()
	return errs
}

func TestBudgetCreateRaceOnMemoryStore(t *testing.T) {
	mem := memory.New()
	svc := NewBudgetService(newGatedBudgets(mem, 2), nil, nil)

	errs := createConcurrently(t, svc)
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both callers saw an empty slot; the memory store has no key to stop them.
	stored, err := mem.QueryBudgets(context.Background(), "alice", store.BudgetQuery{Category: "Food", Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestBudgetCreateRaceOnSQLite(t *testing.T) {
	repo := newSQLite(t)
	svc := NewBudgetService(newGatedBudgets(repo, 2), nil, nil)

	errs := createConcurrently(t, svc)
	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, core.ErrDuplicateBudget):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	stored, err := repo.QueryBudgets(context.Background(), "alice", store.BudgetQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
