package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/views"
)

// transactionRequest is the create payload. Amount may be a number or a
// string; date may be omitted, meaning now.
type transactionRequest struct {
	Type        string     `json:"type"`
	Amount      flexAmount `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

func (req transactionRequest) input(loc *time.Location) (services.TransactionInput, error) {
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		return services.TransactionInput{}, err
	}
	if kind == "" {
		return services.TransactionInput{}, core.NewValidationError("type", "required")
	}
	amt, err := req.Amount.Decimal()
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		Kind:        kind,
		Amount:      amt,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if strings.TrimSpace(req.Date) != "" {
		at, err := parseDate(req.Date, loc)
		if err != nil {
			return services.TransactionInput{}, core.NewValidationError("date", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		in.OccurredAt = at
	}
	return in, nil
}

// transactionPatchRequest carries only the fields to change.
type transactionPatchRequest struct {
	Type        *string    `json:"type"`
	Amount      flexAmount `json:"amount"`
	Category    *string    `json:"category"`
	Description *string    `json:"description"`
	Date        *string    `json:"date"`
}

func (req transactionPatchRequest) patch(loc *time.Location) (services.TransactionPatch, error) {
	var p services.TransactionPatch
	if req.Type != nil {
		kind, err := core.ParseKind(*req.Type)
		if err != nil {
			return p, err
		}
		if kind == "" {
			return p, core.NewValidationError("type", `must be "income" or "expense"`)
		}
		p.Kind = &kind
	}
	if req.Amount.set {
		amt, err := req.Amount.Decimal()
		if err != nil {
			return p, err
		}
		p.Amount = &amt
	}
	if req.Category != nil {
		c := sanitizeInput(*req.Category)
		p.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	if req.Date != nil {
		at, err := parseDate(*req.Date, loc)
		if err != nil {
			return p, core.NewValidationError("date", "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		p.OccurredAt = &at
	}
	return p, nil
}

type transactionEnvelope struct {
	Message     string            `json:"message,omitempty"`
	Transaction views.Transaction `json:"transaction"`
}

// handleListTransactions serves GET /api/transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	q := NewQueryParams(r.URL.Query(), s.location())
	kind, err := q.Kind("type")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	from, err := q.Time("startDate")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	to, err := q.Time("endDate")
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	limit, err := q.Int("limit", services.DefaultListLimit)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	txs, err := s.transactions.List(ctx, ownerFrom(ctx), services.ListOptions{
		Kind:     kind,
		Category: q.Category("category"),
		From:     from,
		To:       to,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"transactions": views.NewTransactions(txs)}).Write(w)
}

// handleCreateTransaction serves POST /api/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.input(s.location())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	tx, err := s.transactions.Create(ctx, ownerFrom(ctx), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+tx.ID).
		Body(transactionEnvelope{Message: "transaction created", Transaction: views.NewTransaction(tx)}).
		Write(w)
}

// handleGetTransaction serves GET /api/transactions/{id}
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	tx, err := s.transactions.Get(ctx, ownerFrom(ctx), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(transactionEnvelope{Transaction: views.NewTransaction(tx)}).Write(w)
}

// handleUpdateTransaction serves PUT /api/transactions/{id}
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	patch, err := req.patch(s.location())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	tx, err := s.transactions.Update(ctx, ownerFrom(ctx), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().
		Body(transactionEnvelope{Message: "transaction updated", Transaction: views.NewTransaction(tx)}).
		Write(w)
}

// handleDeleteTransaction serves DELETE /api/transactions/{id}
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.transactions.Delete(ctx, ownerFrom(ctx), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("transaction deleted").Write(w)
}

// handleCategories serves GET /api/transactions/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	cats, err := s.transactions.Categories(ctx, ownerFrom(ctx))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(views.NewCategories(cats)).Write(w)
}
