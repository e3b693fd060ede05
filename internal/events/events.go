// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Topics emitted by the ledgers.
const (
	TopicCashflowRecorded = "cashflow.entry_recorded"
	TopicSalesRecorded    = "sales.entry_recorded"
	TopicSalesPaid        = "sales.entry_paid"
)

// Publisher delivers events to a topic, partitioned by key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
	Close() error
}

// Event is the envelope written to every topic.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TenantID   int64     `json:"tenant_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// NewEvent wraps data in an envelope stamped with a fresh id.
func NewEvent(eventType string, tenantID int64, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// Message is an event captured by Recorder.
type Message struct {
	Topic string
	Key   string
	Event any
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{Topic: topic, Key: key, Event: event})
	return nil
}

// Close implements Publisher.
func (r *Recorder) Close() error { return nil }

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
