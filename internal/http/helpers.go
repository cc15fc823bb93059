package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// AccountHeader carries the authenticated owner, set by the upstream gateway.
const AccountHeader = "X-Account-ID"

const (
	maxAccountIDLength = 128
	requestTimeout     = 10 * time.Second
)

type ownerKey struct{}

// withOwner rejects requests without an account identifier and stores the
// owner on the request context.
func withOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(AccountHeader))
		if owner == "" || len(owner) > maxAccountIDLength {
			ErrorResponse(http.StatusUnauthorized, "authentication required").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// accountOrIP keys the rate limiter on the owner when present.
func accountOrIP(ip func(*http.Request) string) func(*http.Request) string {
	return func(r *http.Request) string {
		if owner := strings.TrimSpace(r.Header.Get(AccountHeader)); owner != "" {
			return "acct:" + owner
		}
		return "ip:" + ip(r)
	}
}

// statusFor maps a service error to its HTTP status and public message.
// Store failures never expose their cause.
func statusFor(err error) (int, string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrMissingOwner):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "access denied"
	case errors.Is(err, core.ErrDuplicateBudget):
		return http.StatusConflict, core.ErrDuplicateBudget.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError logs server-side failures and writes the error envelope.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.NewFields().
			WithOperation(operation).
			WithOwner(ownerFrom(r.Context())).
			WithError(err).
			ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, operation,
			log.FieldStatusCode, status,
			log.FieldError, err.Error())
	}
	ErrorResponse(status, msg).Write(w)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
