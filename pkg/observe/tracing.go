package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for treeline runtimes.
const defaultTracerName = "treeline"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "treeline").
	TracerName string

	// IncludePaths includes the mutated path in flush span events.
	// Paths can carry user data; disabled by default.
	IncludePaths bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithIncludePaths enables recording mutated paths on flush spans.
func WithIncludePaths(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludePaths = include
	}
}

// Tracing emits an OpenTelemetry span per flush cycle, with computation
// runs and failures recorded as span events. It implements the engine and
// reconciler observer interfaces.
//
// The tracer comes from the global OpenTelemetry tracer provider.
// Configure it in main() before constructing the engine:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracing struct {
	tracer       trace.Tracer
	includePaths bool

	mu   sync.Mutex
	span trace.Span
}

// NewTracing resolves the tracer and returns the observer.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{
		TracerName: defaultTracerName,
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Tracing{
		tracer:       otel.Tracer(config.TracerName),
		includePaths: config.IncludePaths,
	}
}

// Engine observer hooks.

func (t *Tracing) MutationCommitted(path string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil || !t.includePaths {
		return
	}
	t.span.AddEvent("mutation", trace.WithAttributes(
		attribute.String("treeline.path", path),
	))
}

func (t *Tracing) MutationVetoed(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	attrs := []attribute.KeyValue{}
	if t.includePaths {
		attrs = append(attrs, attribute.String("treeline.path", path))
	}
	t.span.AddEvent("mutation_vetoed", trace.WithAttributes(attrs...))
}

func (t *Tracing) FlushStart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, t.span = t.tracer.Start(
		context.Background(),
		"treeline.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *Tracing) FlushEnd(rounds, computations int, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.SetAttributes(
		attribute.Int("treeline.flush_rounds", rounds),
		attribute.Int("treeline.flush_computations", computations),
	)
	t.span.SetStatus(codes.Ok, "")
	t.span.End()
	t.span = nil
}

func (t *Tracing) ComputationRan(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.AddEvent("computation", trace.WithAttributes(
		attribute.String("treeline.computation", name),
		attribute.Int64("treeline.duration_us", d.Microseconds()),
	))
}

func (t *Tracing) ComputationFailed(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.RecordError(err, trace.WithAttributes(
		attribute.String("treeline.computation", name),
	))
}

func (t *Tracing) BatchDiverged(rounds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.SetAttributes(attribute.Int("treeline.flush_rounds", rounds))
	t.span.SetStatus(codes.Error, "flush diverged")
	t.span.End()
	t.span = nil
}

// Reconciler observer hooks. Render passes happen inside computation
// application, so their events land on the active flush span when one
// exists.

func (t *Tracing) Applied(mode string, ops int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.AddEvent("render", trace.WithAttributes(
		attribute.String("treeline.render_mode", mode),
		attribute.Int("treeline.render_ops", ops),
	))
}

func (t *Tracing) ApplyFailed(mode string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.RecordError(err, trace.WithAttributes(
		attribute.String("treeline.render_mode", mode),
	))
}

func (t *Tracing) FallbackTriggered(failures int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.span == nil {
		return
	}
	t.span.AddEvent("render_fallback", trace.WithAttributes(
		attribute.Int("treeline.failures", failures),
	))
}
