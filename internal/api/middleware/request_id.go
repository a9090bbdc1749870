package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/observability"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// RequestID runs first in the chain. It stores a request ID in the context and
// echoes it in the response header. A client-supplied X-Request-ID is kept
// unless it is oversized; otherwise a UUIDv7 is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.Must(uuid.NewV7()).String()
		}

		ctx := context.WithValue(r.Context(), observability.RequestIDKey, id)
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
