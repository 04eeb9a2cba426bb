// Package observability declares the logging, metric and tracing ports the
// order, payment and inventory services log and count through. Adapters live
// under infrastructure/observability.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the three ports handed to every service.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Metrics resolves the fixed metric catalog below. Unknown keys resolve to
// no-op instruments.
type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

type Counter interface {
	Add(delta float64, labels ...Label)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
}

// Label is a metric label. Values must stay low cardinality.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

// Field is a structured log attribute.
type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Err renders err under the "error" key. A nil err logs an empty string.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type MetricKey string

// Metric catalog. The comment lists the label keys each one is registered with.
const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"            // use_case, outcome
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"          // use_case
	MHTTPRequests            MetricKey = "http_requests_total"               // method, route, status
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"     // method, route, status
	MExternalRequests        MetricKey = "external_requests_total"           // peer, endpoint, outcome
	MExternalRequestDuration MetricKey = "external_request_duration_seconds" // peer, endpoint
	MStockLow                MetricKey = "stock_low_total"                   // product_id
	MEventsRelayed           MetricKey = "events_relayed_total"              // event, outcome
)
