package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

const DefaultListLimit = 50

// EventPublisher announces ledger writes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// MonthInvalidator is told which owner month a write touched.
type MonthInvalidator interface {
	InvalidateMonth(owner string, at time.Time)
}

type (
	TransactionInput struct {
		Kind        core.Kind
		Amount      decimal.Decimal
		Category    string
		Description string
		OccurredAt  time.Time // zero means now
	}

	// TransactionPatch changes only the non-nil fields.
	TransactionPatch struct {
		Kind        *core.Kind
		Amount      *decimal.Decimal
		Category    *string
		Description *string
		OccurredAt  *time.Time
	}

	// ListOptions filters a listing. Zero values are unconstrained.
	ListOptions struct {
		Kind     core.Kind
		Category string
		From     time.Time
		To       time.Time
		Limit    int
	}

	Categories struct {
		User     []string
		Defaults map[core.Kind][]string
	}
)

type TransactionService struct {
	ledger      store.LedgerStore
	engines     *EngineFactory
	publisher   EventPublisher
	invalidator MonthInvalidator
	logger      *log.Logger
	now         func() time.Time
}

type TransactionOption func(*TransactionService)

// WithPublisher enables ledger events. A nil publisher is ignored.
func WithPublisher(p EventPublisher) TransactionOption {
	return func(s *TransactionService) { s.publisher = p }
}

func WithInvalidator(i MonthInvalidator) TransactionOption {
	return func(s *TransactionService) { s.invalidator = i }
}

func WithTransactionClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

func WithTransactionLogger(l *log.Logger) TransactionOption {
	return func(s *TransactionService) { s.logger = l.WithComponent(log.ComponentTransaction) }
}

func NewTransactionService(l store.LedgerStore, engines *EngineFactory, opts ...TransactionOption) *TransactionService {
	s := &TransactionService{
		ledger:  l,
		engines: engines,
		logger:  log.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TransactionService) Create(ctx context.Context, owner string, in TransactionInput) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Owner:       owner,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		OccurredAt:  in.OccurredAt,
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = s.now()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.ledger.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", log.NewFields().
		WithOwner(owner).
		WithOperation(log.OpCreate).
		WithTransaction(saved.ID, saved.Kind.String(), saved.Amount, saved.Category).
		ToSlice()...)

	s.touched(owner, saved.OccurredAt)
	s.publish(ctx, saved, amqp.OpCreated)
	return saved, nil
}

// List returns matching transactions newest first. A non-positive limit
// means DefaultListLimit.
func (s *TransactionService) List(ctx context.Context, owner string, opts ListOptions) ([]core.Transaction, error) {
	q, err := s.engines.Querier(owner)
	if err != nil {
		return nil, err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.From.After(opts.To) {
		return nil, core.NewValidationError("startDate", "must not be after endDate")
	}

	f := ledger.Filter{Kind: opts.Kind, Category: opts.Category}
	if !opts.From.IsZero() || !opts.To.IsZero() {
		f.Period = &core.Period{Start: opts.From, End: opts.To}
	}
	txs, err := q.Fetch(ctx, f)
	if err != nil {
		return nil, err
	}

	analytics.SortNewestFirst(txs)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// Get returns the transaction if it belongs to owner.
func (s *TransactionService) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.ledger.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := authorize(owner, tx.Owner); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *TransactionService) Update(ctx context.Context, owner, id string, patch TransactionPatch) (core.Transaction, error) {
	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}

	next := current
	if patch.Kind != nil {
		next.Kind = *patch.Kind
	}
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.Category != nil {
		next.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.OccurredAt != nil {
		next.OccurredAt = *patch.OccurredAt
	}
	if err := next.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.ledger.UpdateTransaction(ctx, next)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction updated", log.NewFields().
		WithOwner(owner).
		WithOperation(log.OpUpdate).
		WithTransaction(saved.ID, saved.Kind.String(), saved.Amount, saved.Category).
		ToSlice()...)

	s.touched(owner, current.OccurredAt, saved.OccurredAt)
	s.publish(ctx, saved, amqp.OpUpdated)
	return saved, nil
}

func (s *TransactionService) Delete(ctx context.Context, owner, id string) error {
	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOwner, owner,
		log.FieldTransactionID, id)

	s.touched(owner, current.OccurredAt)
	s.publish(ctx, current, amqp.OpDeleted)
	return nil
}

// Categories lists the distinct categories the owner has used, sorted, next
// to the suggested defaults.
func (s *TransactionService) Categories(ctx context.Context, owner string) (Categories, error) {
	q, err := s.engines.Querier(owner)
	if err != nil {
		return Categories{}, err
	}
	txs, err := q.Fetch(ctx, ledger.Filter{})
	if err != nil {
		return Categories{}, err
	}

	seen := make(map[string]struct{})
	user := make([]string, 0)
	for _, tx := range txs {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		user = append(user, tx.Category)
	}
	sort.Strings(user)
	return Categories{User: user, Defaults: core.DefaultCategories}, nil
}

func (s *TransactionService) touched(owner string, at ...time.Time) {
	if s.invalidator == nil {
		return
	}
	for _, t := range at {
		s.invalidator.InvalidateMonth(owner, t)
	}
}

// publish never fails the write that triggered it.
func (s *TransactionService) publish(ctx context.Context, tx core.Transaction, op amqp.Op) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewLedgerEvent(tx.Owner, tx.ID, op, tx.Kind.String(), tx.Category, tx.OccurredAt)
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldOwner, tx.Owner,
			log.FieldTransactionID, tx.ID,
			log.FieldOperation, log.OpPublish,
			"circuit_open", errors.Is(err, amqp.ErrCircuitOpen),
			log.FieldError, err)
	}
}
