// Package kafka publishes patient lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/segmentio/kafka-go"

	"github.com/linnemanlabs/triageline/internal/triage"
)

// writer is the subset of *kafka.Writer the producer uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer implements triage.Publisher.
type Producer struct {
	w      writer
	topic  string
	logger log.Logger
}

// NewProducer creates a producer writing to topic on brokers. Messages are
// keyed by patient ID and hash-partitioned, so one patient's events stay
// in order.
func NewProducer(brokers []string, topic string, logger log.Logger) *Producer {
	if logger == nil {
		logger = log.Nop()
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic:  topic,
		logger: logger,
	}
}

// Publish writes one event.
func (p *Producer) Publish(ctx context.Context, e *triage.Event) error {
	msg, err := toMessage(e)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write %s event: %w", e.Type, err)
	}
	p.logger.Info(ctx, "event published",
		"topic", p.topic,
		"type", string(e.Type),
		"patient_id", e.PatientID,
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.w.Close()
}

func toMessage(e *triage.Event) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.PatientID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: e.At,
	}, nil
}
