package events

import (
	"context"
	"time"
)

// FailedEvent describes a message whose handler exhausted all retry attempts.
// It carries everything the dead-letter store needs to persist, inspect, and
// later replay the event.
type FailedEvent struct {
	EventID       string
	Topic         string
	Service       string
	EventType     string
	AggregateID   string
	AggregateType string
	Payload       []byte
	Attempts      int
	FailedAt      time.Time
	HandlerError  error
}

// DeadLetterSink receives poison messages after retries are exhausted.
// Capture must be durable: if it returns an error the message is Nacked and
// redelivered rather than dropped.
type DeadLetterSink interface {
	Capture(ctx context.Context, failed FailedEvent) error
}
