package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
)

// Status is the lifecycle state of an ApprovalRequest.
type Status string

// Approval request states. APPROVED, REJECTED, CANCELLED, and EXPIRED are
// terminal: no transition leaves them.
const (
	StatusPending   Status = "PENDING"
	StatusInReview  Status = "IN_REVIEW"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Decision is an approver's recorded verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// HistoryEntry is one recorded approver decision. History is append-only and
// retained forever as the audit trail.
type HistoryEntry struct {
	StepIndex  int       `json:"step_index"`
	StepName   string    `json:"step_name"`
	ApproverID uuid.UUID `json:"approver_id"`
	Decision   Decision  `json:"decision"`
	Comment    string    `json:"comment,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ApprovalRequest tracks the multi-level sign-off state for one reservation.
// At most one non-terminal request may exist per ReservationID. All mutation
// goes through the transition methods below; illegal transitions return
// ErrInvalidTransition and leave the aggregate untouched.
type ApprovalRequest struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	RequesterID   uuid.UUID
	ResourceID    uuid.UUID
	TenantID      string
	FlowID        string

	Status           Status
	CurrentStepIndex int
	// ActiveApproverIDs is the approver set for the current step; it is
	// replaced by the fallback set when the step escalates.
	ActiveApproverIDs []uuid.UUID
	Escalated         bool
	History           []HistoryEntry

	TimeoutAt   *time.Time
	SubmittedAt time.Time
	CompletedAt *time.Time

	// Version is bumped on every persisted transition; repositories use it
	// for check-and-set updates so stale transitions are rejected rather than
	// overwriting newer state.
	Version int
}

// NewApprovalRequest creates a PENDING request for the reservation using the
// given flow definition.
func NewApprovalRequest(reservationID, requesterID, resourceID uuid.UUID, tenantID string, flow *Flow) (*ApprovalRequest, error) {
	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("new approval request: %w", err)
	}
	if reservationID == uuid.Nil {
		return nil, fmt.Errorf("new approval request: reservation id must be set")
	}
	return &ApprovalRequest{
		ID:            uuid.New(),
		ReservationID: reservationID,
		RequesterID:   requesterID,
		ResourceID:    resourceID,
		TenantID:      tenantID,
		FlowID:        flow.ID,
		Status:        StatusPending,
		SubmittedAt:   time.Now().UTC(),
		Version:       1,
	}, nil
}

// BeginReview moves PENDING → IN_REVIEW for the first step, computing the
// step deadline from now.
func (a *ApprovalRequest) BeginReview(flow *Flow, now time.Time) error {
	if a.Status != StatusPending {
		return fmt.Errorf("%w: begin review from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	step, err := flow.Step(a.CurrentStepIndex)
	if err != nil {
		return err
	}
	a.Status = StatusInReview
	a.ActiveApproverIDs = step.ApproverIDs
	a.Escalated = false
	deadline := now.Add(step.Timeout)
	a.TimeoutAt = &deadline
	return nil
}

// RecordApproval appends an approval decision for the current step.
// When the step's required approvals are all in, the request advances to the
// next step (stepComplete=true) or, on the last step, transitions to APPROVED
// (final=true) with CompletedAt set.
func (a *ApprovalRequest) RecordApproval(flow *Flow, approverID uuid.UUID, comment string, now time.Time) (stepComplete, final bool, err error) {
	if a.Status != StatusInReview {
		return false, false, fmt.Errorf("%w: approve from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	if !a.isActiveApprover(approverID) {
		return false, false, approvaldomain.ErrUnknownApprover
	}
	if a.hasDecided(approverID) {
		return false, false, fmt.Errorf("%w: approver %s already decided step %d",
			approvaldomain.ErrInvalidTransition, approverID, a.CurrentStepIndex)
	}

	step, err := flow.Step(a.CurrentStepIndex)
	if err != nil {
		return false, false, err
	}

	a.History = append(a.History, HistoryEntry{
		StepIndex:  a.CurrentStepIndex,
		StepName:   step.Name,
		ApproverID: approverID,
		Decision:   DecisionApprove,
		Comment:    comment,
		DecidedAt:  now.UTC(),
	})

	if a.approvalsInCurrentStep() < a.requiredForCurrentStep(step) {
		return false, false, nil
	}

	if flow.IsLastStep(a.CurrentStepIndex) {
		a.Status = StatusApproved
		completed := now.UTC()
		a.CompletedAt = &completed
		a.TimeoutAt = nil
		return true, true, nil
	}

	a.CurrentStepIndex++
	next, err := flow.Step(a.CurrentStepIndex)
	if err != nil {
		return false, false, err
	}
	a.ActiveApproverIDs = next.ApproverIDs
	a.Escalated = false
	deadline := now.Add(next.Timeout)
	a.TimeoutAt = &deadline
	return true, false, nil
}

// RecordRejection drives the request to terminal REJECTED from any step: a
// single rejection ends the flow regardless of prior approvals.
func (a *ApprovalRequest) RecordRejection(flow *Flow, approverID uuid.UUID, comment string, now time.Time) error {
	if a.Status != StatusInReview {
		return fmt.Errorf("%w: reject from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	if !a.isActiveApprover(approverID) {
		return approvaldomain.ErrUnknownApprover
	}

	stepName := ""
	if step, err := flow.Step(a.CurrentStepIndex); err == nil {
		stepName = step.Name
	}
	a.History = append(a.History, HistoryEntry{
		StepIndex:  a.CurrentStepIndex,
		StepName:   stepName,
		ApproverID: approverID,
		Decision:   DecisionReject,
		Comment:    comment,
		DecidedAt:  now.UTC(),
	})

	a.Status = StatusRejected
	completed := now.UTC()
	a.CompletedAt = &completed
	a.TimeoutAt = nil
	return nil
}

// Cancel forces CANCELLED from any non-terminal state, pre-empting pending
// timers.
func (a *ApprovalRequest) Cancel(now time.Time) error {
	if a.Status.IsTerminal() {
		return fmt.Errorf("%w: cancel from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	a.Status = StatusCancelled
	completed := now.UTC()
	a.CompletedAt = &completed
	a.TimeoutAt = nil
	return nil
}

// Expire transitions IN_REVIEW → EXPIRED after the step deadline elapsed with
// no completing decision.
func (a *ApprovalRequest) Expire(now time.Time) error {
	if a.Status != StatusInReview {
		return fmt.Errorf("%w: expire from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	a.Status = StatusExpired
	completed := now.UTC()
	a.CompletedAt = &completed
	a.TimeoutAt = nil
	return nil
}

// Escalate swaps the current step's approvers for the fallback set after a
// timeout, keeping the request IN_REVIEW with a fresh deadline. A step may
// escalate once; a second timeout expires the request.
func (a *ApprovalRequest) Escalate(flow *Flow, now time.Time) error {
	if a.Status != StatusInReview {
		return fmt.Errorf("%w: escalate from %s", approvaldomain.ErrInvalidTransition, a.Status)
	}
	if a.Escalated {
		return fmt.Errorf("%w: step %d already escalated", approvaldomain.ErrInvalidTransition, a.CurrentStepIndex)
	}
	step, err := flow.Step(a.CurrentStepIndex)
	if err != nil {
		return err
	}
	if len(step.EscalateTo) == 0 {
		return fmt.Errorf("%w: step %q has no escalation approvers", approvaldomain.ErrInvalidTransition, step.Name)
	}
	a.ActiveApproverIDs = step.EscalateTo
	a.Escalated = true
	deadline := now.Add(step.Timeout)
	a.TimeoutAt = &deadline
	return nil
}

func (a *ApprovalRequest) isActiveApprover(approverID uuid.UUID) bool {
	for _, id := range a.ActiveApproverIDs {
		if id == approverID {
			return true
		}
	}
	return false
}

func (a *ApprovalRequest) hasDecided(approverID uuid.UUID) bool {
	for _, entry := range a.History {
		if entry.StepIndex == a.CurrentStepIndex && entry.ApproverID == approverID {
			return true
		}
	}
	return false
}

func (a *ApprovalRequest) approvalsInCurrentStep() int {
	n := 0
	for _, entry := range a.History {
		if entry.StepIndex == a.CurrentStepIndex && entry.Decision == DecisionApprove {
			n++
		}
	}
	return n
}

// requiredForCurrentStep accounts for escalation: once a step escalates, the
// fallback set's size caps the requirement.
func (a *ApprovalRequest) requiredForCurrentStep(step Step) int {
	required := step.Required()
	if len(a.ActiveApproverIDs) < required {
		return len(a.ActiveApproverIDs)
	}
	return required
}
