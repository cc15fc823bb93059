package ledger

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Budgets is a read view over one owner's budgets.
type Budgets struct {
	store store.BudgetStore
	owner string
}

func NewBudgets(s store.BudgetStore, owner string) *Budgets {
	return &Budgets{store: s, owner: owner}
}

// ForMonth returns the owner's budgets declared for month/year.
func (b *Budgets) ForMonth(ctx context.Context, month, year int) ([]core.Budget, error) {
	budgets, err := b.store.QueryBudgets(ctx, b.owner, store.BudgetQuery{Month: month, Year: year})
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	out := budgets[:0]
	for _, bg := range budgets {
		if bg.Owner == b.owner && bg.Month == month && bg.Year == year {
			out = append(out, bg)
		}
	}
	return out, nil
}
