package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cloo-solutions/docrag/internal/api"
	"github.com/cloo-solutions/docrag/internal/domain"
)

const bucketIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client and route. Clients are identified by the
// authenticated client id, or by address on unauthenticated routes.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Limit allows each client perMinute requests per minute on the wrapped routes, with bursts
// of up to perMinute. Rejected requests get 429 and a Retry-After header. A nil limiter or
// a non-positive budget disables limiting.
func (l *RateLimiter) Limit(route string, perMinute int) func(http.Handler) http.Handler {
	if l == nil || perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	every := rate.Every(time.Minute / time.Duration(perMinute))
	retryAfter := strconv.Itoa(int(math.Ceil(time.Minute.Seconds() / float64(perMinute))))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(route+"|"+rateKey(r), every, perMinute) {
				w.Header().Set("Retry-After", retryAfter)
				api.HandleError(w, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) allow(key string, every rate.Limit, burst int) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > bucketIdleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(every, burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func rateKey(r *http.Request) string {
	if id := GetClientID(r.Context()); id != "" {
		return id
	}
	return clientIP(r)
}
