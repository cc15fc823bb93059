package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain api call", http.MethodGet, "/api/transactions?type=expense", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/api/health", "sqlmap/1.7", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"trace method", "TRACE", "/api/health", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			assert.Equal(t, tt.want, d.DetectSuspiciousRequest(req))
		})
	}
	assert.Equal(t, int64(4), d.GetMetrics().SuspiciousRequests)
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.7", d.ExtractClientIP(req), "untrusted peer cannot forward")

	req.RemoteAddr = "10.0.0.2:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.9")
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", d.ExtractClientIP(req))

	req.Header.Del("X-Real-IP")
	assert.Equal(t, "10.0.0.2", d.ExtractClientIP(req))

	assert.Error(t, d.AddTrustedProxy("not-a-cidr"))
	assert.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))
}
