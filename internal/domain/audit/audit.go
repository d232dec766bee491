package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

// Event names a recorded conversation event.
type Event string

const (
	EventStageChanged      Event = "STAGE_CHANGED"
	EventSessionEnded      Event = "SESSION_ENDED"
	EventSessionsExpired   Event = "SESSIONS_EXPIRED"
	EventTransferRequested Event = "TRANSFER_REQUESTED"
	EventTransferBlocked   Event = "TRANSFER_BLOCKED"
	EventTransferExecuted  Event = "TRANSFER_EXECUTED"
	EventTransferFailed    Event = "TRANSFER_FAILED"
	EventTransferCancelled Event = "TRANSFER_CANCELLED"
)

// Entry is one audit record. Identity documents are only kept as fingerprints.
type Entry struct {
	ID                  int64          `json:"id"`
	EntryID             uuid.UUID      `json:"entryId"`
	UserID              string         `json:"userId"`
	Event               Event          `json:"event"`
	FromStage           *session.Stage `json:"fromStage,omitempty"`
	ToStage             *session.Stage `json:"toStage,omitempty"`
	DocumentFingerprint string         `json:"documentFingerprint,omitempty"`
	Detail              map[string]any `json:"detail,omitempty"`
	CreatedAt           time.Time      `json:"createdAt"`
}

// NewEntry creates an entry stamped with a fresh id and the current time.
func NewEntry(userID string, event Event) *Entry {
	return &Entry{
		EntryID:   uuid.New(),
		UserID:    userID,
		Event:     event,
		CreatedAt: time.Now().UTC(),
	}
}

// WithStages sets the stage pair of a transition.
func (e *Entry) WithStages(from, to session.Stage) *Entry {
	e.FromStage = &from
	e.ToStage = &to
	return e
}

// WithDetail adds a detail value.
func (e *Entry) WithDetail(key string, value any) *Entry {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// Repository persists audit entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error)
}

// Observer is notified of every entry after it is stored.
type Observer interface {
	Publish(entry *Entry)
}
