package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/kologin/internal/logger"
	"github.com/sbilibin2017/kologin/internal/models"
)

// MessageWriter is the part of kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes login events to a kafka topic, keyed by username.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	})
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish writes event to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.LoginEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode login event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Username),
		Value: value,
		Time:  event.OccurredAt,
	})
	if err != nil {
		logger.Log.Errorw("failed to publish login event", "event_id", event.ID, "error", err)
		return err
	}

	logger.Log.Debugw("login event published", "event_id", event.ID, "success", event.Success)
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.LoginEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
