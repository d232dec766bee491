package memory

import (
	"context"
	"sync"

	"github.com/bankline/chat-gateway/internal/domain/audit"
)

// AuditRepository keeps the most recent audit entries in memory.
type AuditRepository struct {
	mu       sync.RWMutex
	entries  []*audit.Entry
	capacity int
	seq      int64
}

func NewAuditRepository(capacity int) *AuditRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &AuditRepository{capacity: capacity}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e := *entry
	e.ID = r.seq
	r.entries = append(r.entries, &e)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = append([]*audit.Entry(nil), r.entries[over:]...)
	}
	return nil
}

// ListByUser returns the user's entries, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*audit.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*audit.Entry{}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID != userID {
			continue
		}
		e := *r.entries[i]
		out = append(out, &e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

var _ audit.Repository = (*AuditRepository)(nil)
