package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	dlqdomain "github.com/ghuser/campusreserve/services/dlq/domain"
)

// Status is the triage state of a dead-letter record.
type Status string

const (
	// StatusPending: captured and awaiting triage.
	StatusPending Status = "PENDING"
	// StatusRetrying: an operator asked for a republish that is in flight.
	StatusRetrying Status = "RETRYING"
	// StatusResolved: closed by an operator or a successful republish.
	StatusResolved Status = "RESOLVED"
	// StatusFailed: a republish attempt itself failed; the record needs
	// another look.
	StatusFailed Status = "FAILED"
)

// DLQEvent is one quarantined message. Records are never deleted; resolution
// is a state change so the audit trail stays complete.
type DLQEvent struct {
	ID            uuid.UUID
	EventID       string
	Topic         string
	Service       string
	EventType     string
	AggregateID   string
	AggregateType string
	Payload       json.RawMessage

	Status        Status
	Attempts      int
	LastError     string
	FirstFailedAt time.Time
	LastAttemptAt time.Time

	Resolution *string
	ResolvedBy *uuid.UUID
	ResolvedAt *time.Time
}

// MarkRetrying transitions PENDING or FAILED → RETRYING ahead of a republish.
func (e *DLQEvent) MarkRetrying(now time.Time) error {
	switch e.Status {
	case StatusPending, StatusFailed:
		e.Status = StatusRetrying
		e.LastAttemptAt = now.UTC()
		return nil
	case StatusResolved:
		return dlqdomain.ErrAlreadyResolved
	default:
		return fmt.Errorf("%w: retry from %s", dlqdomain.ErrInvalidStateChange, e.Status)
	}
}

// MarkResolved closes the record with an operator-supplied resolution note.
// Resolving never republishes the payload.
func (e *DLQEvent) MarkResolved(resolution string, resolvedBy uuid.UUID, now time.Time) error {
	if e.Status == StatusResolved {
		return dlqdomain.ErrAlreadyResolved
	}
	resolvedAt := now.UTC()
	e.Status = StatusResolved
	e.Resolution = &resolution
	e.ResolvedBy = &resolvedBy
	e.ResolvedAt = &resolvedAt
	return nil
}

// MarkFailed records a republish attempt that could not be queued.
func (e *DLQEvent) MarkFailed(cause string, now time.Time) error {
	if e.Status != StatusRetrying {
		return fmt.Errorf("%w: fail from %s", dlqdomain.ErrInvalidStateChange, e.Status)
	}
	e.Status = StatusFailed
	e.LastError = cause
	e.LastAttemptAt = now.UTC()
	return nil
}
