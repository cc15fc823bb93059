package http

import (
	"net/http"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Backend   string         `json:"backend"`
	Cache     *cache.Stats   `json:"cache,omitempty"`
	Metrics   *healthMetrics `json:"metrics,omitempty"`
}

type healthMetrics struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

// handleHealth performs basic liveness check
func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports the process ready to serve. Stores are opened before
// the listener starts, so there is nothing further to probe.
func handleReady(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleAPIHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Backend:   s.backend,
		Metrics: &healthMetrics{
			Requests:  s.tracer.GetMetrics(),
			RateLimit: s.limiter.GetMetrics(),
			Security:  s.detector.GetMetrics(),
		},
	}
	if s.cacheStats != nil {
		stats := s.cacheStats()
		resp.Cache = &stats
	}
	NewJSONResponse().Body(resp).Write(w)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("route not found").Write(w)
}
