package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
)

// MaxBodyBytes caps the request body at limit bytes. A declared Content-Length over the
// limit is refused up front; an undeclared body fails with http.MaxBytesError on read,
// which the handlers map to 413.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	tooLarge := domain.NewDomainError(domain.ErrCodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.HandleError(w, tooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
