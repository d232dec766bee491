// Package dispatch runs an inbound chat message through the gatekeeper,
// language handling, the conversation flow and back out to the sender.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appAudit "github.com/bankline/chat-gateway/internal/application/audit"
	"github.com/bankline/chat-gateway/internal/application/conversation"
	"github.com/bankline/chat-gateway/internal/application/gatekeeper"
	"github.com/bankline/chat-gateway/internal/application/language"
	"github.com/bankline/chat-gateway/internal/application/responder"
	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/domain/session"
)

// DefaultIdleTTL is how long a session may stay idle before the sweep removes it.
const DefaultIdleTTL = time.Hour

// systemUser owns audit entries that are not tied to one conversation.
const systemUser = "system"

// Sender delivers a reply to a chat user.
type Sender interface {
	Send(ctx context.Context, recipientID, text string) error
}

// Message is one inbound chat message.
type Message struct {
	SenderID  string
	MessageID string
	Text      string
}

// Status says what happened to a message.
type Status string

const (
	StatusReplied     Status = "REPLIED"
	StatusDuplicate   Status = "DUPLICATE"
	StatusIgnored     Status = "IGNORED"
	StatusRateLimited Status = "RATE_LIMITED"
)

// Stats are the counters reported by the health endpoint.
type Stats struct {
	Sessions          session.Stats `json:"sessions"`
	ProcessedMessages int           `json:"processedMessages"`
}

// Service wires the message pipeline together.
type Service struct {
	gate         *gatekeeper.Gatekeeper
	conversation *conversation.Service
	languages    *language.Service
	responder    responder.Responder
	sender       Sender
	store        session.Store
	auditSvc     *appAudit.Service
	idleTTL      time.Duration
	logger       zerolog.Logger
}

// NewService creates the dispatcher and registers its sweep with the
// gatekeeper. auditSvc may be nil.
func NewService(
	gate *gatekeeper.Gatekeeper,
	conv *conversation.Service,
	languages *language.Service,
	resp responder.Responder,
	sender Sender,
	store session.Store,
	auditSvc *appAudit.Service,
	idleTTL time.Duration,
	logger zerolog.Logger,
) *Service {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	s := &Service{
		gate:         gate,
		conversation: conv,
		languages:    languages,
		responder:    resp,
		sender:       sender,
		store:        store,
		auditSvc:     auditSvc,
		idleTTL:      idleTTL,
		logger:       logger.With().Str("service", "dispatch").Logger(),
	}
	gate.OnSweep(s.Sweep)
	return s
}

// Dispatch processes one message and sends at most one reply. Send failures
// are returned; the conversation state has already been updated by then.
func (s *Service) Dispatch(ctx context.Context, msg Message) (Status, error) {
	if strings.TrimSpace(msg.Text) == "" {
		if !s.gate.Remember(msg.MessageID) {
			return StatusDuplicate, nil
		}
		return StatusIgnored, nil
	}

	switch s.gate.Admit(msg.SenderID, msg.MessageID) {
	case gatekeeper.Duplicate:
		s.logger.Debug().Str("user_id", msg.SenderID).Str("mid", msg.MessageID).Msg("duplicate message dropped")
		return StatusDuplicate, nil
	case gatekeeper.RateLimited:
		s.logger.Info().Str("user_id", msg.SenderID).Msg("message rate limited")
		lang := s.languages.Last(msg.SenderID)
		out := &conversation.Outcome{Kind: conversation.KindRateLimited, Stage: s.store.GetStage(msg.SenderID)}
		return StatusRateLimited, s.reply(ctx, msg.SenderID, out, lang)
	}

	english, lang := s.languages.Inbound(ctx, msg.SenderID, msg.Text)
	out, err := s.conversation.Handle(ctx, msg.SenderID, english)
	if err != nil {
		stage := s.store.GetStage(msg.SenderID)
		s.logger.Error().Err(err).
			Str("user_id", msg.SenderID).
			Str("stage", string(stage)).
			Msg("message handling failed")
		out = conversation.Internal(stage)
	}

	err = s.reply(ctx, msg.SenderID, out, lang)
	if out.Kind == conversation.KindSessionEnded {
		s.languages.Forget(msg.SenderID)
	}
	return StatusReplied, err
}

func (s *Service) reply(ctx context.Context, userID string, out *conversation.Outcome, lang string) error {
	text, err := s.responder.Render(ctx, out)
	if err != nil || strings.TrimSpace(text) == "" {
		s.logger.Warn().Err(err).Str("kind", string(out.Kind)).Msg("responder failed, using template")
		text = responder.Template(out)
	}
	text = s.languages.Outbound(ctx, text, lang)
	if err := s.sender.Send(ctx, userID, text); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("kind", string(out.Kind)).Msg("failed to send reply")
		return err
	}
	s.logger.Info().Str("user_id", userID).Str("kind", string(out.Kind)).Str("stage", string(out.Stage)).Msg("reply sent")
	return nil
}

// Sweep expires idle sessions and forgets languages of users without a session.
func (s *Service) Sweep(now time.Time) {
	expired := s.store.Sweep(now, s.idleTTL)
	languages := s.languages.Retain(s.store.Exists)
	if expired == 0 && languages == 0 {
		return
	}
	s.logger.Info().Int("sessions", expired).Int("languages", languages).Msg("expired idle sessions")
	if expired > 0 && s.auditSvc != nil {
		s.auditSvc.Log(context.Background(), audit.NewEntry(systemUser, audit.EventSessionsExpired).
			WithDetail("count", expired).
			WithDetail("idleTtl", s.idleTTL.String()))
	}
}

// Stats returns counters for the health endpoint.
func (s *Service) Stats() Stats {
	return Stats{
		Sessions:          s.store.Stats(),
		ProcessedMessages: s.gate.SeenCount(),
	}
}
