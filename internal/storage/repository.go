// Package storage is the SQLite backend. Every transaction predicate is
// pushed into SQL and budgets carry a compound unique key on
// (owner, category, month, year).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	version uint
	now     func() time.Time
}

var (
	_ store.Store       = (*SQLiteRepository)(nil)
	_ store.OwnerLister = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens its single connection.
	version, err := Migrate(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		version: version,
		now:     time.Now,
	}, nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.version
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) QueryTransactions(ctx context.Context, owner string, q store.TransactionQuery) ([]core.Transaction, error) {
	txs, err := r.queries.ListTransactions(ctx, owner, q)
	if err != nil {
		return nil, core.NewStoreError("query transactions", err)
	}
	slog.DebugContext(ctx, "Transactions queried",
		"owner", owner,
		"kind", q.Kind,
		"category", q.Category,
		"count", len(txs))
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, core.NewStoreError("get transaction", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := r.now()
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if err := r.queries.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, core.NewStoreError("insert transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"owner", tx.Owner,
		"kind", tx.Kind,
		"amount", tx.Amount.String(),
		"category", tx.Category)
	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	prev, err := r.GetTransaction(ctx, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Owner = prev.Owner
	tx.CreatedAt = prev.CreatedAt
	tx.UpdatedAt = r.now()

	n, err := r.queries.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, core.NewStoreError("update transaction", err)
	}
	if n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction updated", "id", tx.ID, "owner", tx.Owner)
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return core.NewStoreError("delete transaction", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) QueryBudgets(ctx context.Context, owner string, q store.BudgetQuery) ([]core.Budget, error) {
	budgets, err := r.queries.ListBudgets(ctx, owner, q)
	if err != nil {
		return nil, core.NewStoreError("query budgets", err)
	}
	slog.DebugContext(ctx, "Budgets queried",
		"owner", owner,
		"month", q.Month,
		"year", q.Year,
		"count", len(budgets))
	return budgets, nil
}

func (r *SQLiteRepository) BudgetOwners(ctx context.Context, month, year int) ([]string, error) {
	owners, err := r.queries.ListBudgetOwners(ctx, month, year)
	if err != nil {
		return nil, core.NewStoreError("list budget owners", err)
	}
	return owners, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, core.NewStoreError("get budget", err)
	}
	return b, nil
}

// InsertBudget maps a compound key violation to core.ErrDuplicateBudget.
func (r *SQLiteRepository) InsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	now := r.now()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := r.queries.CreateBudget(ctx, b); err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, core.ErrDuplicateBudget
		}
		return core.Budget{}, core.NewStoreError("insert budget", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", b.ID,
		"owner", b.Owner,
		"category", b.Category,
		"month", b.Month,
		"year", b.Year)
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	prev, err := r.GetBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Owner = prev.Owner
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = r.now()

	n, err := r.queries.UpdateBudget(ctx, b)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, core.ErrDuplicateBudget
		}
		return core.Budget{}, core.NewStoreError("update budget", err)
	}
	if n == 0 {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return core.NewStoreError("delete budget", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Budget deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, bool, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, false, err
	}
	now := r.now()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now

	id, err := r.queries.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, false, core.NewStoreError("upsert budget", err)
	}
	stored, err := r.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, false, err
	}
	created := id == b.ID

	slog.InfoContext(ctx, "Budget upserted",
		"id", id,
		"owner", b.Owner,
		"category", b.Category,
		"created", created)
	return stored, created, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended result codes disabled.
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
