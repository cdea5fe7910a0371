package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher streams domain events to a Kafka topic for deployments that
// feed downstream consumers (shop-floor displays, ERP sync). The planning
// core itself never consumes; it only emits.
type KafkaPublisher struct {
	writer *kafka.Writer
}

type kafkaEnvelope struct {
	Type      string      `json:"type"`
	StreamID  string      `json:"stream_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Verify interface compliance
var _ Publisher = (*KafkaPublisher)(nil)

// Publish writes the event keyed by its stream id, so per-order ordering is
// preserved within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(kafkaEnvelope{
		Type:      event.Type(),
		StreamID:  event.StreamID(),
		Timestamp: event.Timestamp(),
		Data:      event.Data(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type(), err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.StreamID()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type(), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
