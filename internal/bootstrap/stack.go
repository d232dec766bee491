// Package bootstrap assembles the message pipeline from configuration. Both
// binaries share it so the console and the webhook run the same flow.
package bootstrap

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appAudit "github.com/bankline/chat-gateway/internal/application/audit"
	"github.com/bankline/chat-gateway/internal/application/conversation"
	"github.com/bankline/chat-gateway/internal/application/dispatch"
	"github.com/bankline/chat-gateway/internal/application/gatekeeper"
	"github.com/bankline/chat-gateway/internal/application/language"
	"github.com/bankline/chat-gateway/internal/application/responder"
	"github.com/bankline/chat-gateway/internal/config"
	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/infrastructure/backend"
	"github.com/bankline/chat-gateway/internal/infrastructure/memory"
	"github.com/bankline/chat-gateway/internal/infrastructure/postgres"
	"github.com/bankline/chat-gateway/internal/infrastructure/sse"
	"github.com/bankline/chat-gateway/internal/infrastructure/translation"
)

const auditMemoryCapacity = 10000

// Stack is the assembled pipeline.
type Stack struct {
	Gate       *gatekeeper.Gatekeeper
	Dispatcher *dispatch.Service
	Backend    *backend.Client
	Languages  *language.Service
	Audit      *appAudit.Service
	Sessions   *memory.SessionStore
	Events     *sse.Hub

	pool *pgxpool.Pool
}

// Build wires every component. The sender receives all replies.
func Build(ctx context.Context, cfg *config.Config, sender dispatch.Sender, logger zerolog.Logger) (*Stack, error) {
	policy, err := conversation.ParseTransferPolicy(cfg.TransferPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TRANSFER_POLICY: %w", err)
	}

	st := &Stack{Sessions: memory.NewSessionStore()}

	var auditRepo audit.Repository = memory.NewAuditRepository(auditMemoryCapacity)
	if cfg.PersistentAudit() {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		st.pool = pool
		auditRepo = postgres.NewAuditRepository(pool)
		logger.Info().Msg("audit trail stored in postgres")
	}
	st.Audit = appAudit.NewService(auditRepo, auditKey(cfg.AuditKey), logger)
	st.Events = sse.NewHub()
	st.Audit.Subscribe(st.Events)

	var translator language.Translator = translation.Passthrough{}
	if cfg.TranslationEnabled() {
		translator = translation.NewClient(cfg.TranslationURL, translation.WithTimeout(cfg.BackendTimeout))
	}
	st.Languages = language.NewService(translator, memory.NewLanguageCache(), logger)

	st.Backend = backend.NewClient(cfg.BackendURL, backend.WithHealthTimeout(cfg.HealthTimeout))
	conv := conversation.NewService(st.Sessions, st.Backend, st.Audit, conversation.Config{
		BackendTimeout: cfg.BackendTimeout,
		QueryTimeout:   cfg.QueryTimeout,
		Policy:         policy,
	}, logger)

	st.Gate = gatekeeper.New(gatekeeper.Options{
		Capacity:    cfg.DedupCapacity,
		MinInterval: cfg.RateLimitInterval,
		SweepEvery:  cfg.SweepEvery,
	})
	resp := responder.NewFallback(responder.TemplateResponder{}, logger)
	st.Dispatcher = dispatch.NewService(st.Gate, conv, st.Languages, resp, sender, st.Sessions, st.Audit, cfg.SessionIdleTTL, logger)
	return st, nil
}

// Close waits for pending audit writes, ends event streams and releases the
// database pool.
func (s *Stack) Close() {
	s.Audit.Wait()
	s.Events.Stop()
	if s.pool != nil {
		s.pool.Close()
	}
}

// auditKey accepts a hex key and falls back to the raw bytes.
func auditKey(v string) []byte {
	if v == "" {
		return nil
	}
	if b, err := hex.DecodeString(v); err == nil {
		return b
	}
	return []byte(v)
}
