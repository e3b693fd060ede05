package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON encoded events with kafka-go.
type KafkaPublisher struct {
	writer MessageWriter
	prefix string
}

// NewKafkaPublisher connects a writer to brokers. Topic names are prefixed
// with prefix.
func NewKafkaPublisher(brokers []string, prefix string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, prefix)
}

// NewKafkaPublisherWithWriter uses a caller supplied writer.
func NewKafkaPublisherWithWriter(w MessageWriter, prefix string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, prefix: prefix}
}

// Publish marshals event and writes it under key so events of one tenant
// stay ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Topic: p.prefix + topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
