package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the SQL statements of the schema in migrations/.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const transactionColumns = `id, owner, kind, amount, category, description, occurred_at, created_at, updated_at`

const budgetColumns = `id, owner, category, amount, month, year, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		tx                               core.Transaction
		kind, amount                     string
		occurredAt, createdAt, updatedAt int64
	)
	if err := row.Scan(&tx.ID, &tx.Owner, &kind, &amount, &tx.Category, &tx.Description, &occurredAt, &createdAt, &updatedAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount of %s: %w", tx.ID, err)
	}
	tx.Kind = core.Kind(kind)
	tx.Amount = d
	tx.OccurredAt = fromNanos(occurredAt)
	tx.CreatedAt = fromNanos(createdAt)
	tx.UpdatedAt = fromNanos(updatedAt)
	return tx, nil
}

func scanBudget(row scanner) (core.Budget, error) {
	var (
		b                    core.Budget
		amount               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&b.ID, &b.Owner, &b.Category, &amount, &b.Month, &b.Year, &createdAt, &updatedAt); err != nil {
		return core.Budget{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("decode amount of %s: %w", b.ID, err)
	}
	b.Amount = d
	b.CreatedAt = fromNanos(createdAt)
	b.UpdatedAt = fromNanos(updatedAt)
	return b, nil
}

// ListTransactions pushes every predicate of f into the WHERE clause.
func (q *Queries) ListTransactions(ctx context.Context, owner string, f store.TransactionQuery) ([]core.Transaction, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, f.To.UnixNano())
	}
	query := "SELECT " + transactionColumns + " FROM transactions WHERE " + strings.Join(where, " AND ")

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	return scanTransaction(row)
}

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.Owner, string(tx.Kind), tx.Amount.String(), tx.Category, tx.Description,
		tx.OccurredAt.UnixNano(), tx.CreatedAt.UnixNano(), tx.UpdatedAt.UnixNano(),
	)
	return err
}

// UpdateTransaction rewrites the mutable columns and reports the rows touched.
func (q *Queries) UpdateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET kind = ?, amount = ?, category = ?, description = ?, occurred_at = ?, updated_at = ? WHERE id = ?`,
		string(tx.Kind), tx.Amount.String(), tx.Category, tx.Description,
		tx.OccurredAt.UnixNano(), tx.UpdatedAt.UnixNano(), tx.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListBudgets(ctx context.Context, owner string, f store.BudgetQuery) ([]core.Budget, error) {
	var (
		where = []string{"owner = ?"}
		args  = []any{owner}
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Month != 0 {
		where = append(where, "month = ?")
		args = append(args, f.Month)
	}
	if f.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, f.Year)
	}
	query := "SELECT " + budgetColumns + " FROM budgets WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at, id"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) ListBudgetOwners(ctx context.Context, month, year int) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT DISTINCT owner FROM budgets WHERE month = ? AND year = ? ORDER BY owner", month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		out = append(out, owner)
	}
	return out, rows.Err()
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id)
	return scanBudget(row)
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO budgets ("+budgetColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.Owner, b.Category, b.Amount.String(), b.Month, b.Year,
		b.CreatedAt.UnixNano(), b.UpdatedAt.UnixNano(),
	)
	return err
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount = ?, month = ?, year = ?, updated_at = ? WHERE id = ?`,
		b.Category, b.Amount.String(), b.Month, b.Year, b.UpdatedAt.UnixNano(), b.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertBudget returns the id occupying the slot after the statement.
func (q *Queries) UpsertBudget(ctx context.Context, b core.Budget) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, category, month, year)
		DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
		RETURNING id`,
		b.ID, b.Owner, b.Category, b.Amount.String(), b.Month, b.Year,
		b.CreatedAt.UnixNano(), b.UpdatedAt.UnixNano(),
	).Scan(&id)
	return id, err
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
