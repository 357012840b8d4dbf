package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes CoT events to a Kafka topic.
// It implements pipeline.Sink and is safe for concurrent use.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the given topic. Events are keyed by
// CoT uid so updates for one call stay on one partition, in order.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// Submit publishes one event and blocks until the brokers acknowledge it.
func (w *Writer) Submit(ctx context.Context, event domain.OutputEvent) error {
	if err := w.writer.WriteMessages(ctx, toMessage(event, time.Now())); err != nil {
		return fmt.Errorf("publish %s: %w", event.UID, err)
	}
	w.logger.Debug("event published", "uid", event.UID, "topic", w.writer.Topic, "bytes", len(event.Payload))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// toMessage wraps a serialized CoT event in a Kafka message.
func toMessage(event domain.OutputEvent, now time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(event.UID),
		Value: event.Payload,
		Headers: []kafkago.Header{
			{Key: "cot_type", Value: []byte(event.Type)},
			{Key: "content_type", Value: []byte("application/xml")},
			{Key: "submitted_at", Value: []byte(now.UTC().Format(time.RFC3339))},
		},
	}
}
