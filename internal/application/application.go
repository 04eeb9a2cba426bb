// Package application holds the instrumentation shared by the use cases of
// every bounded context.
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability/logctx"
)

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Instrument binds the RED metrics, tracer and base logger of one service.
type Instrument struct {
	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrument(tel observability.Observability, service string) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrument{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Logger returns the request logger when ctx carries one.
func (in *Instrument) Logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, in.log)
}

// Call tracks one use-case execution from Begin to End.
type Call struct {
	in      *Instrument
	span    trace.Span
	start   time.Time
	useCase string
	status  string
	fields  []observability.Field
	Log     observability.Logger
}

// Begin starts span UC.<name> and returns a context carrying a logger scoped
// to the use case.
func (in *Instrument) Begin(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *Call) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tel.Tracer().Start(ctx, spanPrefix+name, attrs...)

	fields := append([]observability.Field{observability.F("use_case", useCase)}, logctx.TraceFields(ctx)...)
	logger := in.Logger(ctx).With(fields...)
	ctx = logctx.With(ctx, logger)

	return ctx, &Call{
		in:      in,
		span:    span,
		start:   time.Now(),
		useCase: useCase,
		Log:     logger,
	}
}

// Status overrides the status text reported by End.
func (c *Call) Status(status string) { c.status = status }

// Note adds fields to the use_case_done record.
func (c *Call) Note(fields ...observability.Field) {
	c.fields = append(c.fields, fields...)
}

func (c *Call) SetAttributes(attrs ...attribute.KeyValue) {
	c.span.SetAttributes(attrs...)
}

// End records outcome, latency and span status. Failed calls report the
// error kind as status unless Status was set.
func (c *Call) End(err error) {
	lat := time.Since(c.start).Seconds()

	outcome, status := OutcomeSuccess, "OK"
	if err != nil {
		outcome, status = OutcomeError, string(apperr.KindOf(err))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			status = "CANCELLED"
		}
	}
	if c.status != "" {
		status = c.status
	}

	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, status)
	} else {
		c.span.SetStatus(codes.Ok, status)
	}
	c.span.End()

	c.in.reqCounter.Add(1,
		observability.L("use_case", c.useCase),
		observability.L("outcome", outcome),
	)
	c.in.durHistogram.Observe(lat, observability.L("use_case", c.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", outcome),
		observability.F("status", status),
		observability.F("latency_seconds", lat),
	}, c.fields...)
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	c.Log.Info("use_case_done", fields...)
}

// External times a call to a collaborator outside the process.
func (in *Instrument) External(ctx context.Context, peer, endpoint string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// Publish hands events to the bus. Failures are logged and never returned;
// committed state does not depend on delivery.
func (in *Instrument) Publish(ctx context.Context, pub domoutbox.Publisher, events ...domoutbox.Event) {
	if pub == nil {
		return
	}
	for _, e := range events {
		err := in.External(ctx, publishPeer, e.EventName(), func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
			defer cancel()
			return pub.Publish(ctx, e)
		})
		if err != nil {
			in.Logger(ctx).Warn("event_publish_failed",
				observability.F("event", e.EventName()),
				observability.F("key", e.EventKey()),
				observability.Err(err),
			)
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.RecordError(err)
			}
		}
	}
}
