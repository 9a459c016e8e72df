package events

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/campusreserve/pkg/config"
)

type fakeSink struct {
	captured []FailedEvent
	err      error
}

func (f *fakeSink) Capture(ctx context.Context, failed FailedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.captured = append(f.captured, failed)
	return nil
}

func quarantineBus(sink DeadLetterSink) *EventBus {
	bus := &EventBus{
		cfg:  &config.Config{ServiceName: "worker-test", EventMaxAttempts: 3},
		log:  newTestLogger(),
		subs: make(map[string]*subscription),
	}
	if sink != nil {
		bus.SetDeadLetterSink(sink)
	}
	return bus
}

func TestQuarantineCapturesAndAcks(t *testing.T) {
	sink := &fakeSink{}
	bus := quarantineBus(sink)

	env, err := NewEnvelope("approval.request.created", "reservation", "res-1", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	bus.quarantine(context.Background(), "approval.request.created", msg, env, 3, errors.New("handler exploded"))

	if len(sink.captured) != 1 {
		t.Fatalf("captured %d events, want 1", len(sink.captured))
	}
	got := sink.captured[0]
	if got.EventID != env.EventID.String() {
		t.Errorf("event_id = %s, want %s", got.EventID, env.EventID)
	}
	if got.Topic != "approval.request.created" || got.Service != "worker-test" {
		t.Errorf("topic/service = %s/%s", got.Topic, got.Service)
	}
	if got.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", got.Attempts)
	}

	select {
	case <-msg.Acked():
	default:
		t.Error("expected message to be acked after capture")
	}
}

func TestConsumeNacksOnCancelledContext(t *testing.T) {
	sink := &fakeSink{}
	bus := quarantineBus(sink)

	env, err := NewEnvelope("approval.request.created", "reservation", "res-1", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.consume(ctx, "approval.request.created", msg, env, func(ctx context.Context, env *Envelope) error {
		return errors.New("handler exploded")
	})

	select {
	case <-msg.Nacked():
	default:
		t.Error("expected message to be nacked, not quarantined, on shutdown")
	}
	if len(sink.captured) != 0 {
		t.Errorf("captured %d events during shutdown, want 0", len(sink.captured))
	}
}

func TestQuarantineNacksWhenCaptureFails(t *testing.T) {
	bus := quarantineBus(&fakeSink{err: errors.New("dlq store down")})

	env, err := NewEnvelope("x", "y", "z", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	bus.quarantine(context.Background(), "x", msg, env, 3, errors.New("handler exploded"))

	select {
	case <-msg.Nacked():
	default:
		t.Error("expected message to be nacked when capture fails")
	}
}

func TestQuarantineNacksWithoutSink(t *testing.T) {
	bus := quarantineBus(nil)

	env, err := NewEnvelope("x", "y", "z", struct{}{})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), []byte("{}"))

	bus.quarantine(context.Background(), "x", msg, env, 3, errors.New("handler exploded"))

	select {
	case <-msg.Nacked():
	default:
		t.Error("expected message to be nacked with no sink installed")
	}
}
