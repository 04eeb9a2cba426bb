package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type countingMetrics struct {
	observability.Metrics
	counts map[string]float64
}

func (m *countingMetrics) Counter(name observability.MetricKey) observability.Counter {
	return counterFunc(func(delta float64, labels ...observability.Label) {
		key := string(name)
		for _, l := range labels {
			key += "," + l.Key + "=" + l.Value
		}
		m.counts[key] += delta
	})
}

type counterFunc func(float64, ...observability.Label)

func (f counterFunc) Add(delta float64, labels ...observability.Label) { f(delta, labels...) }

type telemetry struct {
	observability.Observability
	metrics *countingMetrics
}

func (t telemetry) Metrics() observability.Metrics { return t.metrics }

func newTelemetry() telemetry {
	return telemetry{
		Observability: observability.Nop(),
		metrics:       &countingMetrics{Metrics: observability.NopMetrics(), counts: map[string]float64{}},
	}
}

func statusChanged() order.StatusChangedEvent {
	return order.StatusChangedEvent{
		OrderID:    "ORD-1",
		From:       order.StatusPending,
		To:         order.StatusConfirmed,
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEncode(t *testing.T) {
	msg, err := Encode(statusChanged())
	require.NoError(t, err)

	assert.Equal(t, "ORD-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.status_changed", string(msg.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "order.status_changed", env.Type)
	assert.Equal(t, "ORD-1", env.Key)
	assert.True(t, env.OccurredAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "pending", payload["from"])
	assert.Equal(t, "confirmed", payload["to"])
}

func TestRelayHandle(t *testing.T) {
	w := &fakeWriter{}
	tel := newTelemetry()
	r := NewRelay(w, tel)

	require.NoError(t, r.Handle(context.Background(), statusChanged()))
	require.Len(t, w.msgs, 1)

	w.err = errors.New("broker down")
	assert.Error(t, r.Handle(context.Background(), statusChanged()))

	counts := tel.metrics.counts
	assert.Equal(t, 1.0, counts["events_relayed_total,event=order.status_changed,outcome=success"])
	assert.Equal(t, 1.0, counts["events_relayed_total,event=order.status_changed,outcome=error"])
}

func TestNewWriterWithoutBrokers(t *testing.T) {
	_, err := NewWriter(nil, "orders")
	assert.ErrorIs(t, err, ErrDisabled)
}
