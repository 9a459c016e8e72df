package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	dlqdomain "github.com/ghuser/campusreserve/services/dlq/domain"
)

func captured() *DLQEvent {
	now := time.Now().UTC()
	return &DLQEvent{
		ID:            uuid.New(),
		EventID:       uuid.NewString(),
		Topic:         "reservation.submitted",
		Service:       "campusreserve",
		EventType:     "reservation.submitted",
		AggregateID:   uuid.NewString(),
		AggregateType: "reservation",
		Payload:       json.RawMessage(`{"event_id":"x"}`),
		Status:        StatusPending,
		Attempts:      3,
		LastError:     "flow not found",
		FirstFailedAt: now,
		LastAttemptAt: now,
	}
}

func TestMarkRetryingFromPendingAndFailed(t *testing.T) {
	e := captured()
	if err := e.MarkRetrying(time.Now()); err != nil {
		t.Fatalf("retry from PENDING: %v", err)
	}
	if e.Status != StatusRetrying {
		t.Fatalf("status = %s, want %s", e.Status, StatusRetrying)
	}

	if err := e.MarkFailed("publish refused", time.Now()); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if e.Status != StatusFailed || e.LastError != "publish refused" {
		t.Fatalf("status = %s lastError = %q", e.Status, e.LastError)
	}

	if err := e.MarkRetrying(time.Now()); err != nil {
		t.Fatalf("retry from FAILED: %v", err)
	}
}

func TestMarkRetryingTwiceIsInvalid(t *testing.T) {
	e := captured()
	if err := e.MarkRetrying(time.Now()); err != nil {
		t.Fatalf("MarkRetrying: %v", err)
	}
	if err := e.MarkRetrying(time.Now()); !errors.Is(err, dlqdomain.ErrInvalidStateChange) {
		t.Errorf("err = %v, want ErrInvalidStateChange", err)
	}
}

func TestMarkResolvedRecordsAudit(t *testing.T) {
	e := captured()
	operator := uuid.New()
	if err := e.MarkResolved("stale tenant", operator, time.Now()); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}
	if e.Status != StatusResolved {
		t.Fatalf("status = %s, want %s", e.Status, StatusResolved)
	}
	if e.Resolution == nil || *e.Resolution != "stale tenant" {
		t.Error("resolution note not recorded")
	}
	if e.ResolvedBy == nil || *e.ResolvedBy != operator {
		t.Error("resolver not recorded")
	}
	if e.ResolvedAt == nil {
		t.Error("resolution timestamp not set")
	}
}

func TestResolvedIsTerminal(t *testing.T) {
	e := captured()
	if err := e.MarkResolved("done", uuid.New(), time.Now()); err != nil {
		t.Fatalf("MarkResolved: %v", err)
	}
	if err := e.MarkRetrying(time.Now()); !errors.Is(err, dlqdomain.ErrAlreadyResolved) {
		t.Errorf("retry after resolve: err = %v, want ErrAlreadyResolved", err)
	}
	if err := e.MarkResolved("again", uuid.New(), time.Now()); !errors.Is(err, dlqdomain.ErrAlreadyResolved) {
		t.Errorf("double resolve: err = %v, want ErrAlreadyResolved", err)
	}
}

func TestMarkFailedRequiresRetrying(t *testing.T) {
	e := captured()
	if err := e.MarkFailed("boom", time.Now()); !errors.Is(err, dlqdomain.ErrInvalidStateChange) {
		t.Errorf("err = %v, want ErrInvalidStateChange", err)
	}
}
