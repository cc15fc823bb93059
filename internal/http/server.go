package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	defaultTrendMaxMonths = 24
	cacheSweepInterval    = 5 * time.Minute
)

// Server is the JSON API. It embeds http.Server so callers may ListenAndServe
// directly; Shutdown also stops the background sweepers.
type Server struct {
	http.Server

	transactions *services.TransactionService
	budgets      *services.BudgetService
	dashboard    *services.DashboardService

	logger         *log.Logger
	backend        string
	trendMaxMonths int
	loc            *time.Location
	cacheStats     func() cache.Stats
	now            func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager
}

// Options wires the services and the request pipeline.
type Options struct {
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Dashboard    *services.DashboardService
	Logger       *log.Logger

	// Backend names the data backend in the health payload.
	Backend            string
	RateLimitPerMinute int
	TrendMaxMonths     int
	TrustedProxies     []string

	// Location reads zone-less dates in request payloads. Defaults to UTC.
	Location *time.Location

	// Caches is swept on an interval while the server runs. CacheStats, when
	// set, is reported by the health endpoint.
	Caches     *cache.Manager
	CacheStats func() cache.Stats
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.TrendMaxMonths <= 0 {
		opts.TrendMaxMonths = defaultTrendMaxMonths
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		transactions:   opts.Transactions,
		budgets:        opts.Budgets,
		dashboard:      opts.Dashboard,
		logger:         logger.WithComponent(log.ComponentHTTP),
		backend:        opts.Backend,
		trendMaxMonths: opts.TrendMaxMonths,
		loc:            opts.Location,
		cacheStats:     opts.CacheStats,
		now:            time.Now,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       detector,
		caches:         opts.Caches,
	}
	s.tracer = trace.NewMiddleware(logger, detector.ExtractClientIP)
	s.Handler = s.routes()

	if s.caches != nil {
		s.caches.StartCleanup(cacheSweepInterval)
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/categories", s.handleCategories)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	api.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	api.HandleFunc("GET /api/budgets/tracking", s.handleBudgetTracking)
	api.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api.HandleFunc("GET /api/dashboard/summary", s.handleSummary)
	api.HandleFunc("GET /api/dashboard/trend", s.handleTrend)
	api.HandleFunc("GET /api/dashboard/recent", s.handleRecent)
	api.HandleFunc("GET /api/dashboard/alerts", s.handleAlerts)
	api.HandleFunc("GET /api/dashboard/stats", s.handleStats)
	api.HandleFunc("/api/", handleNotFound)

	limited := s.limiter.Middleware(accountOrIP(s.detector.ExtractClientIP), func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldComponent, log.ComponentRateLimit,
			log.FieldPath, r.URL.Path)
		TooManyRequestsError("rate limit exceeded, retry later").Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /api/health", s.handleAPIHealth)
	mux.Handle("/api/", limited(withOwner(api)))
	mux.HandleFunc("/", handleNotFound)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	return s.tracer.Middleware(headers.Middleware(s.inspect(mux)))
}

func (s *Server) location() *time.Location {
	return s.loc
}

// inspect logs requests that look like scanner traffic. It never blocks.
func (s *Server) inspect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.Header.Get("User-Agent"),
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting requests, then the rate limiter and cache sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.limiter.Stop()
	if s.caches != nil {
		s.caches.Stop()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
