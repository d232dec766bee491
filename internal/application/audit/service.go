package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bankline/chat-gateway/internal/domain/audit"
)

// Service records conversation audit entries.
type Service struct {
	repo           audit.Repository
	fingerprintKey []byte
	logger         zerolog.Logger
	wg             sync.WaitGroup

	mu        sync.RWMutex
	observers []audit.Observer
}

// NewService creates a new audit service. fingerprintKey keys identity-document digests.
func NewService(repo audit.Repository, fingerprintKey []byte, logger zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		fingerprintKey: fingerprintKey,
		logger:         logger.With().Str("service", "audit").Logger(),
	}
}

// Fingerprint digests an identity document with the service key.
func (s *Service) Fingerprint(document string) string {
	return audit.Fingerprint(document, s.fingerprintKey)
}

// Subscribe registers an observer for stored entries.
func (s *Service) Subscribe(o audit.Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Log writes an entry asynchronously. Failures are logged and dropped.
func (s *Service) Log(ctx context.Context, entry *audit.Entry) {
	_ = ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.LogSync(writeCtx, entry); err != nil {
			s.logger.Error().Err(err).
				Str("user_id", entry.UserID).
				Str("event", string(entry.Event)).
				Msg("failed to create audit entry")
		}
	}()
}

// LogSync writes an entry and waits for the repository.
func (s *Service) LogSync(ctx context.Context, entry *audit.Entry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	s.logger.Debug().
		Str("entry_id", entry.EntryID.String()).
		Str("user_id", entry.UserID).
		Str("event", string(entry.Event)).
		Msg("audit entry created")

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, o := range observers {
		o.Publish(entry)
	}
	return nil
}

// History returns the most recent entries for a user.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*audit.Entry, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// Wait blocks until pending asynchronous writes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
