package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/domain/session"
)

// AuditRepository implements audit.Repository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	var detail []byte
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
		detail = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_audit
		(entry_id, user_id, event, from_stage, to_stage, document_fingerprint, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.EntryID, e.UserID, string(e.Event), stageText(e.FromStage), stageText(e.ToStage), nullIfEmpty(e.DocumentFingerprint), detail, e.CreatedAt)
	return err
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, entry_id, user_id, event, from_stage, to_stage, document_fingerprint, detail, created_at
		FROM conversation_audit WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row pgx.Row) (*audit.Entry, error) {
	var e audit.Entry
	var event string
	var from, to, fingerprint *string
	var detail []byte
	if err := row.Scan(&e.ID, &e.EntryID, &e.UserID, &event, &from, &to, &fingerprint, &detail, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	e.Event = audit.Event(event)
	if from != nil {
		s := session.Stage(*from)
		e.FromStage = &s
	}
	if to != nil {
		s := session.Stage(*to)
		e.ToStage = &s
	}
	if fingerprint != nil {
		e.DocumentFingerprint = *fingerprint
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal audit detail: %w", err)
		}
	}
	return &e, nil
}

func stageText(s *session.Stage) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
