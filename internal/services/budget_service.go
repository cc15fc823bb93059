package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

type BudgetInput struct {
	Category string
	Amount   decimal.Decimal
	Month    int
	Year     int
}

// BudgetService manages monthly spending envelopes.
type BudgetService struct {
	budgets   store.BudgetStore
	dashboard *DashboardService
	logger    *log.Logger
}

func NewBudgetService(b store.BudgetStore, dashboard *DashboardService, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	return &BudgetService{
		budgets:   b,
		dashboard: dashboard,
		logger:    logger.WithComponent(log.ComponentBudget),
	}
}

// List returns the owner's budgets. Zero month or year means any.
func (s *BudgetService) List(ctx context.Context, owner string, month, year int) ([]core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if month != 0 && (month < 1 || month > 12) {
		return nil, core.NewValidationError("month", "must be between 1 and 12")
	}

	q := store.BudgetQuery{Month: month, Year: year}
	budgets, err := s.budgets.QueryBudgets(ctx, owner, q)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	out := budgets[:0]
	for _, b := range budgets {
		if b.Owner == owner && q.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (in BudgetInput) budget(owner string) core.Budget {
	return core.Budget{
		Owner:    owner,
		Category: strings.TrimSpace(in.Category),
		Amount:   in.Amount,
		Month:    in.Month,
		Year:     in.Year,
	}
}

// Create inserts a budget unless the owner already has one for the same
// category and month. The lookup and the insert are separate store calls;
// only a backend with a unique key on the slot closes the gap between them.
func (s *BudgetService) Create(ctx context.Context, owner string, in BudgetInput) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	b := in.budget(owner)
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	existing, err := s.budgets.QueryBudgets(ctx, owner, store.BudgetQuery{Category: b.Category, Month: b.Month, Year: b.Year})
	if err != nil {
		return core.Budget{}, fmt.Errorf("check duplicate budget: %w", err)
	}
	for _, e := range existing {
		if e.Key() == b.Key() {
			return core.Budget{}, core.ErrDuplicateBudget
		}
	}

	saved, err := s.budgets.InsertBudget(ctx, b)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateBudget) {
			return core.Budget{}, err
		}
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget created", log.NewFields().
		WithOwner(owner).
		WithOperation(log.OpCreate).
		WithBudget(saved.ID, saved.Category, saved.Month, saved.Year).
		ToSlice()...)
	return saved, nil
}

// Upsert creates the budget or replaces the amount of the existing one in
// the same slot. created reports which happened.
func (s *BudgetService) Upsert(ctx context.Context, owner string, in BudgetInput) (core.Budget, bool, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, false, err
	}
	b := in.budget(owner)
	if err := b.Validate(); err != nil {
		return core.Budget{}, false, err
	}

	saved, created, err := s.budgets.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, false, fmt.Errorf("upsert budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget upserted", log.NewFields().
		WithOwner(owner).
		WithOperation(log.OpUpsert).
		WithBudget(saved.ID, saved.Category, saved.Month, saved.Year).
		ToSlice()...)
	return saved, created, nil
}

func (s *BudgetService) get(ctx context.Context, owner, id string) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	b, err := s.budgets.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if err := authorize(owner, b.Owner); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *BudgetService) UpdateAmount(ctx context.Context, owner, id string, amount decimal.Decimal) (core.Budget, error) {
	b, err := s.get(ctx, owner, id)
	if err != nil {
		return core.Budget{}, err
	}
	b.Amount = amount
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.budgets.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget updated", log.NewFields().
		WithOwner(owner).
		WithOperation(log.OpUpdate).
		WithBudget(saved.ID, saved.Category, saved.Month, saved.Year).
		ToSlice()...)
	return saved, nil
}

func (s *BudgetService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.budgets.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldOwner, owner, log.FieldBudgetID, id)
	return nil
}

// Tracking compares the month's budgets with actual spending. Both month and
// year are required.
func (s *BudgetService) Tracking(ctx context.Context, owner string, month, year int) ([]analytics.TrackingRecord, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := core.ValidateMonthYear(month, year); err != nil {
		return nil, err
	}
	return s.dashboard.Tracking(ctx, owner, month, year)
}
