package store

import "errors"

// Sentinel errors returned by Store implementations. Callers compare with
// errors.Is; implementations may wrap them with context.
var (
	// ErrNotFound means the referenced capsule, guest or token does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCapsuleUnavailable means the target capsule cannot accept a new
	// check-in: it is flagged unavailable, needs cleaning, or already has a
	// checked-in guest.
	ErrCapsuleUnavailable = errors.New("capsule unavailable")

	// ErrConflict means a conditional write lost a race: the row was already
	// in the target state (double checkout, token already redeemed).
	ErrConflict = errors.New("conflicting concurrent modification")
)
