package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	maxCategoryLength    = 100
	maxDescriptionLength = 500
	minYear              = 1900
	maxBudgetYear        = 9999
	maxOccurredYear      = 2200
)

type (
	// Kind is the direction of a ledger entry.
	Kind string

	// Transaction is a single income or expense entry of one owner.
	Transaction struct {
		ID          string
		Owner       string
		Kind        Kind
		Amount      decimal.Decimal
		Category    string
		Description string
		OccurredAt  time.Time // instant the entry is attributed to
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// Budget is a spending ceiling for one category in one calendar month.
	Budget struct {
		ID        string
		Owner     string
		Category  string
		Amount    decimal.Decimal
		Month     int // 1-12
		Year      int
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

// ParseKind maps the wire representation of a kind. The empty string and
// "all" yield the zero Kind, meaning "no constraint".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return "", nil
	case string(Income):
		return Income, nil
	case string(Expense):
		return Expense, nil
	default:
		return "", NewValidationError("type", `must be "income" or "expense"`)
	}
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return NewValidationError("type", `must be "income" or "expense"`)
	}
	return nil
}

func (k Kind) String() string {
	return string(k)
}

func (t Transaction) Validate() error {
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if err := validateAmount(t.Amount); err != nil {
		return err
	}
	if err := validateCategory(t.Category); err != nil {
		return err
	}
	if len(t.Description) > maxDescriptionLength {
		return NewValidationError("description", "too long (max 500 characters)")
	}
	if t.OccurredAt.IsZero() {
		return NewValidationError("date", "cannot be zero")
	}
	if y := t.OccurredAt.Year(); y < minYear || y > maxOccurredYear {
		return NewValidationError("date", "out of range")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := validateCategory(b.Category); err != nil {
		return err
	}
	if err := validateAmount(b.Amount); err != nil {
		return err
	}
	if err := ValidateMonthYear(b.Month, b.Year); err != nil {
		return err
	}
	return nil
}

// Key identifies the (category, month, year) slot a budget occupies for its owner.
func (b Budget) Key() BudgetKey {
	return BudgetKey{Owner: b.Owner, Category: b.Category, Month: b.Month, Year: b.Year}
}

// BudgetKey is the compound uniqueness key of a budget.
type BudgetKey struct {
	Owner    string
	Category string
	Month    int
	Year     int
}

// ValidateMonthYear rejects out-of-range calendar coordinates before they reach
// the period calculator.
func ValidateMonthYear(month, year int) error {
	if month < 1 || month > 12 {
		return NewValidationError("month", "must be between 1 and 12")
	}
	if year < minYear || year > maxBudgetYear {
		return NewValidationError("year", "out of range")
	}
	return nil
}

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewValidationError("amount", "must be positive")
	}
	return nil
}

func validateCategory(c string) error {
	if strings.TrimSpace(c) == "" {
		return NewValidationError("category", "cannot be empty")
	}
	if len(c) > maxCategoryLength {
		return NewValidationError("category", "too long (max 100 characters)")
	}
	return nil
}
