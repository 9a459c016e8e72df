// Package events defines the topics and payloads the approval context
// publishes and consumes. Envelopes are keyed by reservation ID so every
// event touching one reservation is processed in order.
package events

import (
	"time"

	"github.com/google/uuid"
)

// AggregateType for all approval-context envelopes.
const AggregateType = "reservation"

// Topics consumed by the approval engine.
const (
	TopicReservationSubmitted = "reservation.submitted"
	TopicReservationApproved  = "reservation.approved"
	TopicReservationRejected  = "reservation.rejected"
	TopicReservationCancelled = "reservation.cancelled"
)

// Topics published by the approval engine.
const (
	TopicApprovalRequestCreated = "approval.request.created"
	TopicApprovalStepAdvanced   = "approval.step.advanced"
	TopicApprovalCompleted      = "approval.request.completed"
	TopicApprovalTimeout        = "approval.request.timeout"
	TopicApprovalReminder       = "approval.reminder"
	TopicReassignmentNeeded     = "reservation.reassignment.needed"
)

// Reminder ordering within one step's timeout window.
const (
	ReminderFirst  = "FIRST"
	ReminderSecond = "SECOND"
	ReminderFinal  = "FINAL"
)

// ReservationSubmittedEvent is emitted by the availability booking logic when
// a reservation enters the approval pipeline.
type ReservationSubmittedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	ResourceID    uuid.UUID `json:"resource_id"`
	FlowID        string    `json:"flow_id"`
	TenantID      string    `json:"tenant_id"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

// ReservationDecisionEvent carries one approver's verdict. Published on
// reservation.approved or reservation.rejected depending on the decision.
type ReservationDecisionEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ApproverID    uuid.UUID `json:"approver_id"`
	Comment       string    `json:"comment,omitempty"`
	DecidedAt     time.Time `json:"decided_at"`
}

// ReservationCancelledEvent pre-empts any in-flight approval for the reservation.
type ReservationCancelledEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Reason        string    `json:"reason,omitempty"`
}

// ApprovalRequestCreatedEvent announces a new request entering review.
type ApprovalRequestCreatedEvent struct {
	ApprovalRequestID uuid.UUID   `json:"approval_request_id"`
	ReservationID     uuid.UUID   `json:"reservation_id"`
	RequesterID       uuid.UUID   `json:"requester_id"`
	TenantID          string      `json:"tenant_id"`
	StepName          string      `json:"step_name"`
	ApproverIDs       []uuid.UUID `json:"approver_ids"`
	TimeoutAt         time.Time   `json:"timeout_at"`
}

// ApprovalStepAdvancedEvent announces completion of one step and the approver
// set now on the hook.
type ApprovalStepAdvancedEvent struct {
	ApprovalRequestID uuid.UUID   `json:"approval_request_id"`
	ReservationID     uuid.UUID   `json:"reservation_id"`
	StepIndex         int         `json:"step_index"`
	StepName          string      `json:"step_name"`
	ApproverIDs       []uuid.UUID `json:"approver_ids"`
	TimeoutAt         time.Time   `json:"timeout_at"`
}

// ApprovalCompletedEvent announces a terminal transition
// (APPROVED, REJECTED, CANCELLED, or EXPIRED).
type ApprovalCompletedEvent struct {
	ApprovalRequestID uuid.UUID `json:"approval_request_id"`
	ReservationID     uuid.UUID `json:"reservation_id"`
	RequesterID       uuid.UUID `json:"requester_id"`
	TenantID          string    `json:"tenant_id"`
	Status            string    `json:"status"`
	CompletedAt       time.Time `json:"completed_at"`
}

// ApprovalTimeoutEvent announces a step deadline elapsing. Escalated reports
// whether the request moved to the fallback approver set instead of expiring.
type ApprovalTimeoutEvent struct {
	ApprovalRequestID uuid.UUID `json:"approval_request_id"`
	ReservationID     uuid.UUID `json:"reservation_id"`
	StepIndex         int       `json:"step_index"`
	Escalated         bool      `json:"escalated"`
}

// ApprovalReminderEvent nudges the pending approvers. Reminders for one step
// fire strictly in FIRST < SECOND < FINAL order and never after completion.
type ApprovalReminderEvent struct {
	ApprovalRequestID uuid.UUID   `json:"approval_request_id"`
	ReservationID     uuid.UUID   `json:"reservation_id"`
	TenantID          string      `json:"tenant_id"`
	ReminderType      string      `json:"reminder_type"`
	ApproverIDs       []uuid.UUID `json:"approver_ids"`
	TimeoutAt         time.Time   `json:"timeout_at"`
}

// ReassignmentNeededEvent asks the reassignment engine to propose alternative
// resources after the original one cannot be honored.
type ReassignmentNeededEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ResourceID    uuid.UUID `json:"resource_id"`
	RequesterID   uuid.UUID `json:"requester_id"`
	TenantID      string    `json:"tenant_id"`
	Reason        string    `json:"reason"`
}
