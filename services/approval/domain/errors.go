package domain

import "errors"

// Sentinel errors for the approval domain. Use errors.Is() to check these.
var (
	// ErrApprovalNotFound indicates the requested approval request does not exist.
	ErrApprovalNotFound = errors.New("approval request not found")

	// ErrApprovalAlreadyOpen indicates a non-terminal approval request already
	// exists for the reservation (at most one is allowed).
	ErrApprovalAlreadyOpen = errors.New("approval request already open for reservation")

	// ErrInvalidTransition indicates an event attempted an illegal state
	// transition (e.g. approving an already-rejected request). Consumers log
	// and discard these as no-ops.
	ErrInvalidTransition = errors.New("invalid approval state transition")

	// ErrStaleTransition indicates the persisted request changed underneath a
	// transition (optimistic concurrency check failed).
	ErrStaleTransition = errors.New("stale approval state transition")

	// ErrUnknownApprover indicates the deciding user is not an approver for
	// the current step.
	ErrUnknownApprover = errors.New("user is not an approver for the current step")

	// ErrFlowNotFound indicates the referenced approval flow definition is unknown.
	ErrFlowNotFound = errors.New("approval flow not found")
)
