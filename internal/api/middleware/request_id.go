package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/cloo-solutions/docrag/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID tags each request with an id, reusing a well-formed X-Request-ID from the
// caller. The id travels in the context so chunking breadcrumbs and query logs can be
// joined with the access log.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(telemetry.WithRequestID(r.Context(), id)))
	})
}

func GetRequestID(ctx context.Context) string {
	return telemetry.RequestID(ctx)
}

// validRequestID accepts short ids made of letters, digits, '-', '_' and '.'. Anything
// else is replaced so caller input never reaches logs unescaped.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
