// Package memory is an in-process backend for development and tests.
//
// Transaction queries honour only the owner and kind predicates; callers
// must filter the rest themselves. Budget creation performs no uniqueness
// check.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

var (
	_ store.Store       = (*Store)(nil)
	_ store.OwnerLister = (*Store)(nil)
)

type Store struct {
	mu      sync.RWMutex
	txs     map[string]core.Transaction
	budgets map[string]core.Budget
	seq     map[string]int64 // budget insertion order
	next    int64
	now     func() time.Time
}

func New() *Store {
	return &Store{
		txs:     make(map[string]core.Transaction),
		budgets: make(map[string]core.Budget),
		seq:     make(map[string]int64),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source used for createdAt/updatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) QueryTransactions(_ context.Context, owner string, q store.TransactionQuery) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.txs {
		if tx.Owner != owner {
			continue
		}
		if q.Kind != "" && tx.Kind != q.Kind {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

// InsertTransaction assigns the id and creation timestamps.
func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.txs[tx.ID]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	tx.Owner = prev.Owner
	tx.CreatedAt = prev.CreatedAt
	tx.UpdatedAt = s.now()
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) QueryBudgets(_ context.Context, owner string, q store.BudgetQuery) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.Owner == owner && q.Matches(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

func (s *Store) BudgetOwners(_ context.Context, month, year int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range s.budgets {
		if b.Month != month || b.Year != year {
			continue
		}
		if _, ok := seen[b.Owner]; !ok {
			seen[b.Owner] = struct{}{}
			out = append(out, b.Owner)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) InsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.put(b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.budgets[b.ID]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	b.Owner = prev.Owner
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = s.now()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.budgets, id)
	delete(s.seq, id)
	return nil
}

// UpsertBudget runs under the write lock, so unlike InsertBudget it is safe
// against concurrent callers targeting the same slot.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, bool, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, existing := range s.budgets {
		if existing.Key() == b.Key() {
			existing.Amount = b.Amount
			existing.UpdatedAt = now
			s.budgets[id] = existing
			return existing, false, nil
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.put(b)
	return b, true, nil
}

// put records a new budget. Callers hold the write lock.
func (s *Store) put(b core.Budget) {
	s.next++
	s.seq[b.ID] = s.next
	s.budgets[b.ID] = b
}
