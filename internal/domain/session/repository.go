package session

import "time"

// Store holds session records keyed by chat user id.
// Implementations must be safe for concurrent use and must copy records
// in and out.
type Store interface {
	// GetStage returns StageNotVerified for unknown users.
	GetStage(userID string) Stage
	GetRecord(userID string) (*Record, bool)
	// WriteStage creates the record if absent, sets the stage, refreshes
	// LastActivity and merges upd. It returns the stored copy.
	WriteStage(userID string, stage Stage, upd Update) *Record
	// Transition moves the record from stage from to stage to and merges upd.
	// A record is only created when from is StageNotVerified. It fails with
	// ErrStaleSession when the stored record is gone or no longer at from, and
	// with the validation error when the result breaks the record invariants.
	// Nothing is written on failure.
	Transition(userID string, from, to Stage, upd Update) (*Record, error)
	// Touch refreshes LastActivity and reports whether the record exists.
	Touch(userID string) bool
	Delete(userID string) bool
	Exists(userID string) bool
	// Sweep removes records idle longer than idle and returns how many.
	Sweep(now time.Time, idle time.Duration) int
	Stats() Stats
}
