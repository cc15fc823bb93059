package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/views"
)

// budgetRequest is the create and upsert payload. Month and year may be
// numbers or numeric strings.
type budgetRequest struct {
	Category string     `json:"category"`
	Amount   flexAmount `json:"amount"`
	Month    flexInt    `json:"month"`
	Year     flexInt    `json:"year"`
}

func (req budgetRequest) input() (services.BudgetInput, error) {
	amt, err := req.Amount.Decimal()
	if err != nil {
		return services.BudgetInput{}, err
	}
	if !req.Month.set {
		return services.BudgetInput{}, core.NewValidationError("month", "required")
	}
	if !req.Year.set {
		return services.BudgetInput{}, core.NewValidationError("year", "required")
	}
	return services.BudgetInput{
		Category: sanitizeInput(req.Category),
		Amount:   amt,
		Month:    req.Month.value,
		Year:     req.Year.value,
	}, nil
}

type budgetAmountRequest struct {
	Amount flexAmount `json:"amount"`
}

type budgetEnvelope struct {
	Message string       `json:"message,omitempty"`
	Budget  views.Budget `json:"budget"`
}

// handleListBudgets serves GET /api/budgets
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	q := NewQueryParams(r.URL.Query(), s.location())
	month, err := q.Int("month", 0)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	year, err := q.Int("year", 0)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	budgets, err := s.budgets.List(ctx, ownerFrom(ctx), month, year)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"budgets": views.NewBudgets(budgets)}).Write(w)
}

// handleCreateBudget serves POST /api/budgets. A second budget for the same
// category and month is a 409.
func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	b, err := s.budgets.Create(ctx, ownerFrom(ctx), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(budgetEnvelope{Message: "budget created", Budget: views.NewBudget(b)}).
		Write(w)
}

// handleUpsertBudget serves PUT /api/budgets: 201 when the slot was empty,
// 200 when an existing budget's amount was replaced.
func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}

	b, created, err := s.budgets.Upsert(ctx, ownerFrom(ctx), in)
	if err != nil {
		writeError(w, r, log.OpUpsert, err)
		return
	}
	status, msg := http.StatusOK, "budget updated"
	if created {
		status, msg = http.StatusCreated, "budget created"
	}
	NewJSONResponse().
		Status(status).
		Body(budgetEnvelope{Message: msg, Budget: views.NewBudget(b)}).
		Write(w)
}

// handleUpdateBudget serves PUT /api/budgets/{id}. Only the amount changes.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	var req budgetAmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	amt, err := req.Amount.Decimal()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	b, err := s.budgets.UpdateAmount(ctx, ownerFrom(ctx), r.PathValue("id"), amt)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().
		Body(budgetEnvelope{Message: "budget updated", Budget: views.NewBudget(b)}).
		Write(w)
}

// handleDeleteBudget serves DELETE /api/budgets/{id}
func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	if err := s.budgets.Delete(ctx, ownerFrom(ctx), r.PathValue("id")); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Message("budget deleted").Write(w)
}

// handleBudgetTracking serves GET /api/budgets/tracking?month=M&year=Y
func (s *Server) handleBudgetTracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	q := NewQueryParams(r.URL.Query(), s.location())
	month, err := q.Int("month", 0)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	year, err := q.Int("year", 0)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	records, err := s.budgets.Tracking(ctx, ownerFrom(ctx), month, year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"budgets": views.NewTracking(records)}).Write(w)
}
