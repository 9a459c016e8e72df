// Package domain holds the reassignment context's domain errors.
package domain

import "errors"

var (
	// ErrReassignmentNotFound is returned when no reassignment request exists
	// for the given ID.
	ErrReassignmentNotFound = errors.New("reassignment request not found")

	// ErrAlreadyResponded is returned on a second response attempt for the
	// same reassignment request. Responses are recorded exactly once.
	ErrAlreadyResponded = errors.New("reassignment request already responded to")

	// ErrUnknownAlternative is returned when an accept names a resource that
	// was not among the proposed alternatives.
	ErrUnknownAlternative = errors.New("accepted resource is not a proposed alternative")

	// ErrResourceNotFound is returned when the resource directory has no row
	// for the given resource ID.
	ErrResourceNotFound = errors.New("resource not found")
)
