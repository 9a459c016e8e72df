// Package events defines the topics and payloads of the reassignment context.
// Envelopes are keyed by reservation ID, matching the approval context, so
// the full lifecycle of a reservation is processed in order.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

// AggregateType for all reassignment-context envelopes.
const AggregateType = "reservation"

// Topics consumed by the reassignment engine.
const (
	TopicReassignmentNeeded = "reservation.reassignment.needed"
)

// Topics published by the reassignment engine.
const (
	TopicReassignmentCreated   = "reassignment.request.created"
	TopicReassignmentResponded = "reassignment.request.responded"
	TopicResourceUpdated       = "reservation.resource.updated"
)

// ReassignmentNeededEvent asks for alternatives after the original resource
// cannot be honored.
type ReassignmentNeededEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ResourceID    uuid.UUID `json:"resource_id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	TenantID      string    `json:"tenant_id"`
	Reason        string    `json:"reason"`
}

// ReassignmentCreatedEvent announces a proposal with ranked alternatives.
type ReassignmentCreatedEvent struct {
	ReassignmentID     uuid.UUID            `json:"reassignment_id"`
	ReservationID      uuid.UUID            `json:"reservation_id"`
	OriginalResourceID uuid.UUID            `json:"original_resource_id"`
	RequesterID        uuid.UUID            `json:"requester_id"`
	TenantID           string               `json:"tenant_id"`
	Alternatives       []models.Alternative `json:"alternatives"`
	BestAlternative    *uuid.UUID           `json:"best_alternative,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

// ReassignmentRespondedEvent records the requester's single response.
type ReassignmentRespondedEvent struct {
	ReassignmentID uuid.UUID  `json:"reassignment_id"`
	ReservationID  uuid.UUID  `json:"reservation_id"`
	RequesterID    uuid.UUID  `json:"requester_id"`
	TenantID       string     `json:"tenant_id"`
	Accepted       bool       `json:"accepted"`
	NewResourceID  *uuid.UUID `json:"new_resource_id,omitempty"`
	UserFeedback   string     `json:"user_feedback,omitempty"`
	RespondedAt    time.Time  `json:"responded_at"`
}

// ReservationResourceUpdatedEvent fires exactly once when an accepted
// reassignment swaps the reservation's resource.
type ReservationResourceUpdatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	OldResourceID uuid.UUID `json:"old_resource_id"`
	NewResourceID uuid.UUID `json:"new_resource_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}
