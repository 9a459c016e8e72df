package events

import (
	"testing"

	"github.com/google/uuid"
)

type orderPayload struct {
	ReservationID string `json:"reservation_id"`
	Step          int    `json:"step"`
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope("approval.step.advanced", "reservation", "res-42",
		orderPayload{ReservationID: "res-42", Step: 2})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.EventID == uuid.Nil {
		t.Fatal("expected generated event ID")
	}
	if env.Version != 1 {
		t.Errorf("version = %d, want 1", env.Version)
	}

	msg, err := env.toMessage()
	if err != nil {
		t.Fatalf("toMessage: %v", err)
	}
	got, err := envelopeFromMessage(msg)
	if err != nil {
		t.Fatalf("envelopeFromMessage: %v", err)
	}
	if got.EventID != env.EventID || got.EventType != env.EventType || got.AggregateID != env.AggregateID {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, env)
	}

	var payload orderPayload
	if err := got.DecodeData(&payload); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if payload.Step != 2 || payload.ReservationID != "res-42" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEnvelopeMessageMetadata(t *testing.T) {
	userID := uuid.New()
	env, err := NewEnvelope("reassignment.request.created", "reservation", "res-7", orderPayload{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	env.WithUser(userID)

	msg, err := env.toMessage()
	if err != nil {
		t.Fatalf("toMessage: %v", err)
	}

	want := map[string]string{
		MetaEventID:       env.EventID.String(),
		MetaEventType:     "reassignment.request.created",
		MetaAggregateID:   "res-7",
		MetaAggregateType: "reservation",
		MetaEventVersion:  "1",
		MetaUserID:        userID.String(),
	}
	for key, value := range want {
		if got := msg.Metadata.Get(key); got != value {
			t.Errorf("metadata[%s] = %q, want %q", key, got, value)
		}
	}
}

func TestEnvelopeFromMessageRejectsGarbage(t *testing.T) {
	env, err := NewEnvelope("x", "y", "z", orderPayload{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	msg, err := env.toMessage()
	if err != nil {
		t.Fatalf("toMessage: %v", err)
	}

	msg.Payload = []byte("not json")
	if _, err := envelopeFromMessage(msg); err == nil {
		t.Error("expected error for malformed payload")
	}

	msg.Payload = []byte(`{"event_type":"x"}`)
	if _, err := envelopeFromMessage(msg); err == nil {
		t.Error("expected error for missing event_id")
	}
}
