// Package domain holds the dead-letter context's domain errors.
package domain

import "errors"

var (
	// ErrDLQEventNotFound is returned when no dead-letter record exists for
	// the given ID.
	ErrDLQEventNotFound = errors.New("dead-letter event not found")

	// ErrAlreadyResolved is returned when resolving or retrying a record that
	// already reached RESOLVED.
	ErrAlreadyResolved = errors.New("dead-letter event already resolved")

	// ErrInvalidStateChange is returned for transitions the dead-letter state
	// machine does not allow.
	ErrInvalidStateChange = errors.New("invalid dead-letter state change")
)
