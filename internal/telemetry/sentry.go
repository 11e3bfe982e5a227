// Package telemetry wraps Sentry tracing and error reporting for the services.
// Every helper is a no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "docrag"

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client and returns a function that flushes pending
// events. An empty DSN or an init failure leaves telemetry disabled.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: func(ctx sentry.SamplingContext) float64 {
			return sampleRate(ctx.Span, cfg.TracesSampleRate)
		},
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// sampleRate drops health probes and keeps child spans consistent with their parent.
func sampleRate(span *sentry.Span, rate float64) float64 {
	if span == nil {
		return rate
	}
	if span.Name == "GET /health" {
		return 0
	}
	if span.ParentSpanID != (sentry.SpanID{}) {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return rate
}

// SpanAttributes tag a service span. Empty fields are left off.
type SpanAttributes struct {
	DocumentID string
	Operation  string
}

// Span is a nil-safe handle on a Sentry span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a measurement such as a chunk count or a structure score.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span failed and reports err.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span in ctx, or a new transaction when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	return span.Context(), &Span{inner: span}
}

// StartTransaction opens a root span for work that does not start from a request, such as
// a background job.
func StartTransaction(ctx context.Context, name string, op string) (context.Context, *Span) {
	opts := []sentry.SpanOption{sentry.WithTransactionName(name)}
	if op != "" {
		opts = append(opts, sentry.WithOpName(op))
	}
	span := sentry.StartSpan(ctx, op, opts...)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub in ctx, or on the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// RecordDecision leaves a chunking breadcrumb so later errors in the same ingestion show
// which strategy was applied.
func RecordDecision(ctx context.Context, documentID, strategy, reason string, score float64) {
	crumb := decisionBreadcrumb(ctx, documentID, strategy, reason, score)
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}

func decisionBreadcrumb(ctx context.Context, documentID, strategy, reason string, score float64) *sentry.Breadcrumb {
	data := map[string]any{
		"document_id": documentID,
		"strategy":    strategy,
		"reason":      reason,
		"score":       score,
	}
	if id := RequestID(ctx); id != "" {
		data["request_id"] = id
	}
	return &sentry.Breadcrumb{
		Type:      "info",
		Category:  "chunking",
		Message:   fmt.Sprintf("%s: %s (%s, score %.3f)", documentID, strategy, reason, score),
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
}
