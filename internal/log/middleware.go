package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// AccessLogger writes the start and end line of each HTTP request.
type AccessLogger struct {
	logger *Logger
}

func NewAccessLogger(logger *Logger) *AccessLogger {
	return &AccessLogger{logger: logger}
}

func (a *AccessLogger) Start(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithClientIP(clientIP)
	a.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// End logs at Warn for 4xx and Error for 5xx.
func (a *AccessLogger) End(ctx context.Context, r *http.Request, status int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, "", "").
		WithHTTPResponse(status, durationMs).
		WithClientIP(clientIP)
	a.logger.LogContext(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
