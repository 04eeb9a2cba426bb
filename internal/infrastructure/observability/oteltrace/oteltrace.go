package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer from the global provider. Without an SDK provider
// installed spans are non-recording but trace context still propagates.
func New(name string) observability.Tracer {
	if name == "" {
		name = "minishop-orders"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// InstallPropagator sets W3C trace-context and baggage as the global propagator.
func InstallPropagator() propagation.TextMapPropagator {
	p := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(p)
	return p
}
