// Package kafka forwards domain events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability/logctx"
)

const writeTimeout = 5 * time.Second

var ErrDisabled = errors.New("kafka disabled")

// MessageWriter is the part of *kafka.Writer the relay uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a writer that hashes keys to partitions so every event
// of one order lands on the same partition.
func NewWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, nil
}

// Envelope is the wire format of a relayed event.
type Envelope struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode turns an event into a Kafka message keyed by its aggregate.
func Encode(e domoutbox.Event) (kafka.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s payload: %w", e.EventName(), err)
	}
	at := e.EventTime().UTC()
	value, err := json.Marshal(Envelope{
		Type:       e.EventName(),
		Key:        e.EventKey(),
		OccurredAt: at,
		Payload:    payload,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s envelope: %w", e.EventName(), err)
	}
	return kafka.Message{
		Key:   []byte(e.EventKey()),
		Value: value,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.EventName())},
		},
	}, nil
}

// Relay is a bus handler that writes every event it receives to Kafka.
type Relay struct {
	writer  MessageWriter
	log     observability.Logger
	relayed observability.Counter // events_relayed_total{event,outcome}
}

func NewRelay(writer MessageWriter, tel observability.Observability) *Relay {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Relay{
		writer:  writer,
		log:     tel.Logger().With(observability.F("component", "kafka_relay")),
		relayed: tel.Metrics().Counter(observability.MEventsRelayed),
	}
}

// Handle matches domoutbox.Handler.
func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	msg, err := Encode(e)
	if err == nil {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = r.writer.WriteMessages(wctx, msg)
		cancel()
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		logctx.FromOr(ctx, r.log).Warn("event_relay_failed",
			observability.F("event", e.EventName()),
			observability.F("key", e.EventKey()),
			observability.Err(err),
		)
	}
	r.relayed.Add(1,
		observability.L("event", e.EventName()),
		observability.L("outcome", outcome),
	)
	return err
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
