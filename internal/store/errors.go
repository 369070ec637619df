// Package store provides error types for conversation state operations.
package store

import "errors"

// Sentinel errors for conversation state operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidState indicates an illegal status transition or a mutation
	// of a message whose status does not permit it (e.g. editing a message
	// that is still streaming). This is a programming or UI-sequencing bug,
	// surfaced synchronously to the caller.
	ErrInvalidState = errors.New("invalid message state")

	// ErrNotFound indicates the requested message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrConcurrentOperation indicates a second generation was requested
	// while one is already in flight on the same conversation.
	ErrConcurrentOperation = errors.New("generation already in flight")
)
