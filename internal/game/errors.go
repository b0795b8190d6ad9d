package game

import "errors"

var (
	// ErrNotFound is returned when a referenced session, course, challenge
	// or team does not exist. No mutation happens.
	ErrNotFound = errors.New("not found")

	// ErrStaleSubmission marks an answer for a checkpoint that is not the
	// current lowest-unsolved one, or a mutation that lost a concurrent
	// race. Benign: the client re-reads state and may retry.
	ErrStaleSubmission = errors.New("stale submission")

	// ErrVersionMismatch is the store-level signal that a conditional
	// session update lost against a concurrent writer.
	ErrVersionMismatch = errors.New("session version mismatch")

	// ErrSessionNotActive rejects gameplay submissions against a session
	// that is not accepting them in its current status.
	ErrSessionNotActive = errors.New("session not active")
)
