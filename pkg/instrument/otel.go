package instrument

import (
	"context"
	"time"

	"github.com/vango-dev/signals/pkg/reactive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for signal graphs.
const defaultTracerName = "signals"

// Span names emitted by the tracer.
const (
	SpanRecompute  = "reactive.recompute"
	SpanTransition = "reactive.transition"
	SpanCycle      = "reactive.cycle"
)

// TracerConfig configures the OpenTelemetry observer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "signals").
	TracerName string

	// Provider is the tracer provider. If nil, the global provider is used.
	Provider trace.TracerProvider

	// Context is the parent context for every span (default: Background).
	Context context.Context

	// Filter determines which signals to trace.
	// If nil, all signals are traced.
	Filter func(n reactive.Node) bool

	// IncludeTransitions emits a span for every hot/cold transition.
	IncludeTransitions bool
}

// TracerOption configures the OpenTelemetry observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithParentContext sets the context spans are started from.
func WithParentContext(ctx context.Context) TracerOption {
	return func(c *TracerConfig) {
		c.Context = ctx
	}
}

// WithSignalFilter sets a filter function for signals.
func WithSignalFilter(filter func(n reactive.Node) bool) TracerOption {
	return func(c *TracerConfig) {
		c.Filter = filter
	}
}

// WithTransitions enables/disables transition spans.
func WithTransitions(include bool) TracerOption {
	return func(c *TracerConfig) {
		c.IncludeTransitions = include
	}
}

// Tracer is a reactive.Observer that records recomputations as spans.
type Tracer struct {
	config TracerConfig
	tracer trace.Tracer
}

// NewTracer creates the OpenTelemetry observer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName: defaultTracerName,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.Provider != nil {
		tracer = config.Provider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return &Tracer{config: config, tracer: tracer}
}

// OnRecompute implements reactive.Observer. The span covers the callback,
// from started until now.
func (t *Tracer) OnRecompute(n reactive.Node, started time.Time, changed bool) {
	if !t.traced(n) {
		return
	}
	opts := []trace.SpanStartOption{
		trace.WithAttributes(append(nodeAttributes(n), attribute.Bool("signal.changed", changed))...),
	}
	if !started.IsZero() {
		opts = append(opts, trace.WithTimestamp(started))
	}
	_, span := t.tracer.Start(t.config.Context, SpanRecompute, opts...)
	span.End()
}

// OnNotify implements reactive.Observer. Notifications are not traced.
func (t *Tracer) OnNotify(reactive.Node, int) {}

// OnTransition implements reactive.Observer.
func (t *Tracer) OnTransition(n reactive.Node, hot bool) {
	if !t.config.IncludeTransitions || !t.traced(n) {
		return
	}
	_, span := t.tracer.Start(t.config.Context, SpanTransition,
		trace.WithAttributes(append(nodeAttributes(n), attribute.Bool("signal.hot", hot))...))
	span.End()
}

// OnCycle implements reactive.Observer.
func (t *Tracer) OnCycle(n reactive.Node) {
	_, span := t.tracer.Start(t.config.Context, SpanCycle,
		trace.WithAttributes(nodeAttributes(n)...))
	span.RecordError(reactive.ErrCycle)
	span.SetStatus(codes.Error, "cycle detected")
	span.End()
}

func (t *Tracer) traced(n reactive.Node) bool {
	return t.config.Filter == nil || t.config.Filter(n)
}

func nodeAttributes(n reactive.Node) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("signal.id", int64(n.ID())),
		attribute.String("signal.kind", n.Kind().String()),
	}
}

var _ reactive.Observer = (*Tracer)(nil)
