package http

import (
	"net/http"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/views"
)

// handleSummary serves GET /api/dashboard/summary. Without month and year it
// summarises the current month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	month, year, err := NewQueryParams(r.URL.Query(), s.location()).MonthYear()
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	summary, err := s.dashboard.Summary(ctx, ownerFrom(ctx), month, year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(views.NewSummary(summary)).Write(w)
}

// handleTrend serves GET /api/dashboard/trend?months=N
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	months, err := NewQueryParams(r.URL.Query(), s.location()).
		Positive("months", analytics.DefaultTrendMonths, s.trendMaxMonths)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	points, err := s.dashboard.Trend(ctx, ownerFrom(ctx), months)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"data": views.NewTrend(points)}).Write(w)
}

// handleRecent serves GET /api/dashboard/recent?limit=N
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	limit, err := NewQueryParams(r.URL.Query(), s.location()).Int("limit", analytics.DefaultRecentLimit)
	if err == nil && limit < 1 {
		err = core.NewValidationError("limit", "must be a positive integer")
	}
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	txs, err := s.dashboard.Recent(ctx, ownerFrom(ctx), limit)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"transactions": views.NewTransactions(txs)}).Write(w)
}

// handleAlerts serves GET /api/dashboard/alerts for the current month.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	alerts, err := s.dashboard.Alerts(ctx, ownerFrom(ctx))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"alerts": views.NewAlerts(alerts)}).Write(w)
}

// handleStats serves GET /api/dashboard/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := s.dashboard.Stats(ctx, ownerFrom(ctx))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"stats": views.NewStats(stats)}).Write(w)
}
