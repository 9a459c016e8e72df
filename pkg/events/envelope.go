package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Metadata keys set on every published Watermill message so consumers and
// operational tooling can filter without unmarshalling the payload.
const (
	MetaEventID       = "event_id"
	MetaEventType     = "event_type"
	MetaAggregateID   = "aggregate_id"
	MetaAggregateType = "aggregate_type"
	MetaEventVersion  = "event_version"
	MetaUserID        = "user_id"
)

// Envelope is the wire format for every cross-service event.
// It is immutable once published: EventID is globally unique and serves as
// the consumer-side deduplication key; AggregateID is the ordering key —
// events sharing an AggregateID are delivered to a consumer group in publish
// order. Version supports payload schema evolution.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventData     json.RawMessage `json:"event_data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
}

// NewEnvelope builds an Envelope around data, which is marshalled to JSON.
// Timestamp is set to now (UTC) and EventID is generated.
func NewEnvelope(eventType, aggregateType, aggregateID string, data any) (*Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("events: marshal event data: %w", err)
	}
	return &Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventData:     payload,
		Timestamp:     time.Now().UTC(),
		Version:       1,
	}, nil
}

// WithUser returns the envelope with the acting user recorded.
func (e *Envelope) WithUser(userID uuid.UUID) *Envelope {
	e.UserID = &userID
	return e
}

// DecodeData unmarshals the envelope payload into v.
func (e *Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.EventData, v); err != nil {
		return fmt.Errorf("events: decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// toMessage serializes the envelope into a Watermill message with routing
// metadata mirrored into the message headers.
func (e *Envelope) toMessage() (*message.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("events: marshal envelope: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetaEventID, e.EventID.String())
	msg.Metadata.Set(MetaEventType, e.EventType)
	msg.Metadata.Set(MetaAggregateID, e.AggregateID)
	msg.Metadata.Set(MetaAggregateType, e.AggregateType)
	msg.Metadata.Set(MetaEventVersion, fmt.Sprintf("%d", e.Version))
	if e.UserID != nil {
		msg.Metadata.Set(MetaUserID, e.UserID.String())
	}
	return msg, nil
}

// envelopeFromMessage decodes a Watermill message produced by toMessage.
func envelopeFromMessage(msg *message.Message) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("events: unmarshal envelope: %w", err)
	}
	if env.EventID == uuid.Nil {
		return nil, fmt.Errorf("events: envelope missing event_id")
	}
	return &env, nil
}
