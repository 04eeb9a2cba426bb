package observability

import (
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

type registeredMetrics struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m *registeredMetrics) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m *registeredMetrics) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

// New assembles an Observability provider. When reg is nil metrics are
// discarded.
func New(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	var metrics observability.Metrics = observability.NopMetrics()
	if reg != nil {
		metrics = register(reg)
	}

	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
}

func register(reg prometrics.Registry) *registeredMetrics {
	return &registeredMetrics{
		counters: map[observability.MetricKey]observability.Counter{
			observability.MUsecaseRequests: reg.Counter(string(observability.MUsecaseRequests),
				"Use case executions by outcome.", "use_case", "outcome"),
			observability.MHTTPRequests: reg.Counter(string(observability.MHTTPRequests),
				"HTTP requests served.", "method", "route", "status"),
			observability.MExternalRequests: reg.Counter(string(observability.MExternalRequests),
				"Calls to external collaborators.", "peer", "endpoint", "outcome"),
			observability.MStockLow: reg.Counter(string(observability.MStockLow),
				"Reservations that left a product at or below the low-stock threshold.", "product_id"),
			observability.MEventsRelayed: reg.Counter(string(observability.MEventsRelayed),
				"Domain events forwarded to the broker.", "event", "outcome"),
		},
		histograms: map[observability.MetricKey]observability.Histogram{
			observability.MUsecaseDuration: reg.Histogram(string(observability.MUsecaseDuration),
				"Use case latency in seconds.", latencyBuckets, "use_case"),
			observability.MHTTPRequestDuration: reg.Histogram(string(observability.MHTTPRequestDuration),
				"HTTP request latency in seconds.", latencyBuckets, "method", "route", "status"),
			observability.MExternalRequestDuration: reg.Histogram(string(observability.MExternalRequestDuration),
				"External call latency in seconds.", latencyBuckets, "peer", "endpoint"),
		},
	}
}

func (p *provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *provider) Logger() observability.Logger {
	return p.logger
}

func (p *provider) Metrics() observability.Metrics {
	return p.metrics
}
