package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/bankline/chat-gateway/internal/domain/session"
)

// SessionStore is a volatile session.Store. Records are lost on restart.
type SessionStore struct {
	mu      sync.RWMutex
	records map[string]*session.Record
	now     func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithNow(time.Now)
}

func NewSessionStoreWithNow(now func() time.Time) *SessionStore {
	return &SessionStore{
		records: make(map[string]*session.Record),
		now:     now,
	}
}

func (s *SessionStore) GetStage(userID string) session.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[userID]; ok {
		return r.Stage
	}
	return session.StageNotVerified
}

func (s *SessionStore) GetRecord(userID string) (*session.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[userID]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

func (s *SessionStore) WriteStage(userID string, stage session.Stage, upd session.Update) *session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		r = &session.Record{UserID: userID}
		s.records[userID] = r
	}
	r.Stage = stage
	r.LastActivity = s.now()
	upd.Apply(r)
	return r.Clone()
}

func (s *SessionStore) Transition(userID string, from, to session.Stage, upd session.Update) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *session.Record
	if r, ok := s.records[userID]; ok {
		if r.Stage != from {
			return nil, fmt.Errorf("%w: stored stage %s, expected %s", session.ErrStaleSession, r.Stage, from)
		}
		next = r.Clone()
	} else {
		if from != session.StageNotVerified {
			return nil, fmt.Errorf("%w: no record at %s", session.ErrStaleSession, from)
		}
		next = &session.Record{UserID: userID}
	}
	next.Stage = to
	next.LastActivity = s.now()
	upd.Apply(next)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	s.records[userID] = next
	return next.Clone(), nil
}

func (s *SessionStore) Touch(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if ok {
		r.LastActivity = s.now()
	}
	return ok
}

func (s *SessionStore) Delete(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[userID]; !ok {
		return false
	}
	delete(s.records, userID)
	return true
}

func (s *SessionStore) Exists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[userID]
	return ok
}

func (s *SessionStore) Sweep(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.records {
		if r.IsExpired(now, idle) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) Stats() session.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := session.Stats{ActiveSessions: len(s.records)}
	for _, r := range s.records {
		switch r.Stage {
		case session.StageAccountSelected:
			st.FullyAuthenticated++
		case session.StageTransferOTPPending:
			st.OTPPending++
		case session.StageTransferConfirmationPending:
			st.TransferConfirmationPending++
		}
		if r.PendingTransfer != nil {
			st.PendingTransfers++
		}
	}
	return st
}

var _ session.Store = (*SessionStore)(nil)
