package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

var spanStatusByCode = map[int]sentry.SpanStatus{
	http.StatusBadRequest:            sentry.SpanStatusInvalidArgument,
	http.StatusUnauthorized:          sentry.SpanStatusUnauthenticated,
	http.StatusNotFound:              sentry.SpanStatusNotFound,
	http.StatusRequestEntityTooLarge: sentry.SpanStatusResourceExhausted,
	http.StatusTooManyRequests:       sentry.SpanStatusResourceExhausted,
	http.StatusUnsupportedMediaType:  sentry.SpanStatusInvalidArgument,
	http.StatusUnprocessableEntity:   sentry.SpanStatusInvalidArgument,
	499:                              sentry.SpanStatusCanceled,
	http.StatusBadGateway:            sentry.SpanStatusUnavailable,
	http.StatusServiceUnavailable:    sentry.SpanStatusUnavailable,
	http.StatusGatewayTimeout:        sentry.SpanStatusDeadlineExceeded,
}

// spanStatus maps an HTTP status to the closest span status.
func spanStatus(code int) sentry.SpanStatus {
	if s, ok := spanStatusByCode[code]; ok {
		return s
	}
	switch {
	case code < 400:
		return sentry.SpanStatusOK
	case code < 500:
		return sentry.SpanStatusInvalidArgument
	default:
		return sentry.SpanStatusInternalError
	}
}

// SentryMiddleware traces each request as a transaction named after its chi route, so
// every document id shares one transaction name. Panics are reported and re-raised.
// Without an initialized client the transactions are dropped.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}

		opts := []sentry.SpanOption{
			sentry.WithOpName("http.server"),
			sentry.WithTransactionSource(sentry.SourceRoute),
		}
		if trace := r.Header.Get(sentry.SentryTraceHeader); trace != "" {
			opts = append(opts, sentry.ContinueFromHeaders(trace, r.Header.Get(sentry.SentryBaggageHeader)))
		}
		tx := sentry.StartTransaction(r.Context(), r.Method+" "+r.URL.Path, opts...)
		defer tx.Finish()

		r = r.WithContext(sentry.SetHubOnContext(tx.Context(), hub))
		hub.Scope().SetRequest(r)
		if id := GetRequestID(r.Context()); id != "" {
			hub.Scope().SetTag("request_id", id)
			tx.SetTag("request_id", id)
		}

		defer func() {
			if p := recover(); p != nil {
				tx.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(r.Context(), p)
				panic(p)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.Status()
		tx.Name = r.Method + " " + routePattern(r)
		tx.Status = spanStatus(status)
		tx.SetData("http.response.status_code", status)
		if clientID := GetClientID(r.Context()); clientID != "" {
			tx.SetTag("client_id", clientID)
		}
		if status >= 500 {
			hub.CaptureMessage(fmt.Sprintf("%s: HTTP %d", tx.Name, status))
		}
	})
}
