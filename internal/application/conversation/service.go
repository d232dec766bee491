// Package conversation drives a user through identity verification, account
// selection and confirmed transfers, one message at a time.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appAudit "github.com/bankline/chat-gateway/internal/application/audit"
	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/domain/banking"
	"github.com/bankline/chat-gateway/internal/domain/intent"
	"github.com/bankline/chat-gateway/internal/domain/session"
)

const (
	DefaultBackendTimeout = 10 * time.Second
	DefaultQueryTimeout   = 60 * time.Second
)

// Config tunes a Service. Zero values fall back to defaults.
type Config struct {
	BackendTimeout time.Duration
	QueryTimeout   time.Duration
	Classifier     intent.Classifier
	Verifier       OTPVerifier
	Policy         *TransferPolicy
}

// Service is the verification stage machine.
type Service struct {
	store          session.Store
	backend        banking.Backend
	auditSvc       *appAudit.Service
	classifier     intent.Classifier
	verifier       OTPVerifier
	policy         *TransferPolicy
	backendTimeout time.Duration
	queryTimeout   time.Duration
	locks          *userLocks
	logger         zerolog.Logger
}

// NewService creates a conversation service. auditSvc may be nil.
func NewService(store session.Store, backend banking.Backend, auditSvc *appAudit.Service, cfg Config, logger zerolog.Logger) *Service {
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = DefaultBackendTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.Classifier == nil {
		cfg.Classifier = intent.Default{}
	}
	if cfg.Verifier == nil {
		cfg.Verifier = FormatOnlyVerifier{}
	}
	return &Service{
		store:          store,
		backend:        backend,
		auditSvc:       auditSvc,
		classifier:     cfg.Classifier,
		verifier:       cfg.Verifier,
		policy:         cfg.Policy,
		backendTimeout: cfg.BackendTimeout,
		queryTimeout:   cfg.QueryTimeout,
		locks:          newUserLocks(),
		logger:         logger.With().Str("service", "conversation").Logger(),
	}
}

// Handle processes one admitted message. Messages from the same user are
// handled one at a time. A returned error means an internal failure; the
// session is left as it was.
func (s *Service) Handle(ctx context.Context, userID, text string) (*Outcome, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if s.classifier.IsExit(text) {
		return s.exit(ctx, userID), nil
	}

	out, err := s.handleStage(ctx, userID, text)
	if errors.Is(err, session.ErrStaleSession) {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("session expired while handling message")
		return &Outcome{Kind: KindSessionExpired, Stage: s.store.GetStage(userID)}, nil
	}
	return out, err
}

func (s *Service) handleStage(ctx context.Context, userID, text string) (*Outcome, error) {
	rec, ok := s.store.GetRecord(userID)
	if !ok {
		return s.handleNotVerified(ctx, userID, text, nil)
	}
	if err := rec.Validate(); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", userID).
			Str("stage", string(rec.Stage)).
			Msg("session record is inconsistent")
		return &Outcome{Kind: KindSessionCorrupted, Stage: rec.Stage, FirstName: rec.FirstName()}, nil
	}
	s.store.Touch(userID)

	switch rec.Stage {
	case session.StageNotVerified:
		return s.handleNotVerified(ctx, userID, text, rec)
	case session.StageCNICVerified:
		return s.handleLoginCode(ctx, rec, text)
	case session.StageOTPVerified:
		return s.handleAccountSelection(ctx, rec, text)
	case session.StageAccountSelected:
		return s.handleQuery(ctx, rec, text)
	case session.StageTransferOTPPending:
		return s.handleTransferCode(ctx, rec, text)
	case session.StageTransferConfirmationPending:
		return s.handleConfirmation(ctx, rec, text)
	}
	return nil, fmt.Errorf("unhandled stage %q", rec.Stage)
}

func (s *Service) exit(ctx context.Context, userID string) *Outcome {
	rec, ok := s.store.GetRecord(userID)
	out := &Outcome{Kind: KindSessionEnded, Stage: session.StageNotVerified}
	if !ok {
		return out
	}
	out.FirstName = rec.FirstName()
	out.Account = rec.SelectedAccount
	s.store.Delete(userID)

	s.logger.Info().Str("user_id", userID).Str("stage", string(rec.Stage)).Msg("session ended by user")
	entry := audit.NewEntry(userID, audit.EventSessionEnded).WithStages(rec.Stage, session.StageNotVerified)
	if rec.PendingTransfer != nil {
		entry.WithDetail("discardedTransfer", transferDetail(*rec.PendingTransfer))
	}
	s.record(ctx, entry, rec.IdentityDocument)
	return out
}

func (s *Service) handleNotVerified(ctx context.Context, userID, text string, rec *session.Record) (*Outcome, error) {
	stay := &Outcome{Stage: session.StageNotVerified}
	if s.classifier.IsGreeting(text) {
		stay.Kind = KindGreeting
		return stay, nil
	}
	doc, ok := s.classifier.ExtractIdentityDocument(text)
	if !ok {
		stay.Kind = KindIdentityFormat
		return stay, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	identity, err := s.backend.VerifyIdentity(callCtx, doc)
	if err != nil {
		return s.failure(userID, session.StageNotVerified, "verify identity", err, KindIdentityRejected), nil
	}
	if identity == nil {
		return nil, errors.New("backend returned no identity")
	}
	if identity.Document == "" {
		identity.Document = doc
	}

	next, err := s.advance(ctx, userID, rec, session.StageCNICVerified, session.Update{
		IdentityDocument: &identity.Document,
		HolderName:       &identity.Name,
		KnownAccounts:    nonNil(identity.Accounts),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", userID).
		Int("accounts", len(identity.Accounts)).
		Msg("identity verified")
	return &Outcome{Kind: KindOTPRequest, Stage: next.Stage, FirstName: next.FirstName()}, nil
}

func (s *Service) handleLoginCode(ctx context.Context, rec *session.Record, text string) (*Outcome, error) {
	ok, err := s.checkCode(ctx, rec.UserID, PurposeLogin, text)
	if err != nil {
		return s.failure(rec.UserID, rec.Stage, "verify login code", err, KindOTPInvalid), nil
	}
	if !ok {
		return &Outcome{Kind: KindOTPInvalid, Stage: rec.Stage, FirstName: rec.FirstName()}, nil
	}

	details, err := s.fetchAccountDetails(ctx, rec.UserID, rec.KnownAccounts)
	if err != nil {
		return s.failure(rec.UserID, rec.Stage, "fetch account details", err, KindUnavailable), nil
	}
	next, err := s.advance(ctx, rec.UserID, rec, session.StageOTPVerified, session.Update{AccountDetails: details})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Kind:      KindAccountList,
		Stage:     next.Stage,
		FirstName: next.FirstName(),
		Accounts:  next.KnownAccounts,
	}, nil
}

func (s *Service) handleAccountSelection(ctx context.Context, rec *session.Record, text string) (*Outcome, error) {
	details := rec.AccountDetails
	if len(details) == 0 && len(rec.KnownAccounts) > 0 {
		fetched, err := s.fetchAccountDetails(ctx, rec.UserID, rec.KnownAccounts)
		if err != nil {
			return s.failure(rec.UserID, rec.Stage, "fetch account details", err, KindUnavailable), nil
		}
		cached, err := s.advance(ctx, rec.UserID, rec, session.StageOTPVerified, session.Update{AccountDetails: fetched})
		if err != nil {
			return nil, err
		}
		rec, details = cached, cached.AccountDetails
	}

	guidance := &Outcome{
		Kind:      KindAccountGuidance,
		Stage:     rec.Stage,
		FirstName: rec.FirstName(),
		Accounts:  rec.KnownAccounts,
	}
	account, ok := s.classifier.ResolveAccount(text, details)
	if !ok || !rec.HasAccount(account) {
		return guidance, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	if err := s.backend.SelectAccount(callCtx, rec.IdentityDocument, account); err != nil {
		out := s.failure(rec.UserID, rec.Stage, "select account", err, KindAccountRejected)
		out.Account = account
		out.Accounts = rec.KnownAccounts
		return out, nil
	}

	next, err := s.advance(ctx, rec.UserID, rec, session.StageAccountSelected, session.Update{SelectedAccount: &account})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", rec.UserID).Str("account", account).Msg("account selected")
	return &Outcome{
		Kind:      KindAccountSelected,
		Stage:     next.Stage,
		FirstName: next.FirstName(),
		Account:   account,
	}, nil
}

func (s *Service) handleQuery(ctx context.Context, rec *session.Record, text string) (*Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	result, err := s.backend.ExecuteQuery(callCtx, banking.QueryRequest{
		Message:   text,
		Account:   rec.SelectedAccount,
		FirstName: rec.FirstName(),
	})
	if errors.Is(err, banking.ErrMalformedTransfer) {
		s.logger.Warn().Err(err).Str("user_id", rec.UserID).Msg("backend requested an invalid transfer")
		return &Outcome{Kind: KindTransferInvalid, Stage: rec.Stage, FirstName: rec.FirstName()}, nil
	}
	if err != nil {
		return s.failure(rec.UserID, rec.Stage, "execute query", err, KindUnavailable), nil
	}
	if result == nil {
		return nil, errors.New("backend returned no query result")
	}
	if !result.NeedsTransferCode() {
		return &Outcome{Kind: KindQueryReply, Stage: rec.Stage, FirstName: rec.FirstName(), Reply: result.Reply}, nil
	}

	pending := session.PendingTransfer{
		Amount:    result.Transfer.Amount,
		Currency:  strings.ToUpper(strings.TrimSpace(result.Transfer.Currency)),
		Recipient: strings.TrimSpace(result.Transfer.Recipient),
	}
	if err := pending.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", rec.UserID).Msg("backend requested an invalid transfer")
		return &Outcome{Kind: KindTransferInvalid, Stage: rec.Stage, FirstName: rec.FirstName()}, nil
	}

	allowed, err := s.policy.Allows(pending)
	if err != nil {
		s.logger.Error().Err(err).Str("policy", s.policy.String()).Msg("transfer policy evaluation failed")
	}
	if !allowed {
		s.record(ctx, audit.NewEntry(rec.UserID, audit.EventTransferBlocked).
			WithDetail("transfer", transferDetail(pending)).
			WithDetail("policy", s.policy.String()), rec.IdentityDocument)
		return &Outcome{
			Kind:      KindTransferBlocked,
			Stage:     rec.Stage,
			FirstName: rec.FirstName(),
			Transfer:  &pending,
		}, nil
	}

	next, err := s.advance(ctx, rec.UserID, rec, session.StageTransferOTPPending, session.Update{PendingTransfer: &pending})
	if err != nil {
		return nil, err
	}
	s.record(ctx, audit.NewEntry(rec.UserID, audit.EventTransferRequested).
		WithDetail("transfer", transferDetail(pending)), rec.IdentityDocument)
	return &Outcome{
		Kind:      KindTransferOTPRequest,
		Stage:     next.Stage,
		FirstName: next.FirstName(),
		Transfer:  next.PendingTransfer,
	}, nil
}

func (s *Service) handleTransferCode(ctx context.Context, rec *session.Record, text string) (*Outcome, error) {
	ok, err := s.checkCode(ctx, rec.UserID, PurposeTransfer, text)
	if err != nil {
		return s.failure(rec.UserID, rec.Stage, "verify transfer code", err, KindTransferOTPInvalid), nil
	}
	if !ok {
		return &Outcome{
			Kind:      KindTransferOTPInvalid,
			Stage:     rec.Stage,
			FirstName: rec.FirstName(),
			Transfer:  rec.PendingTransfer,
		}, nil
	}
	next, err := s.advance(ctx, rec.UserID, rec, session.StageTransferConfirmationPending, session.Update{})
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Kind:      KindTransferConfirm,
		Stage:     next.Stage,
		FirstName: next.FirstName(),
		Transfer:  next.PendingTransfer,
	}, nil
}

func (s *Service) handleConfirmation(ctx context.Context, rec *session.Record, text string) (*Outcome, error) {
	pending := *rec.PendingTransfer
	switch s.classifier.ClassifyConfirmation(text) {
	case intent.ConfirmationPositive:
		return s.executeTransfer(ctx, rec, pending)
	case intent.ConfirmationNegative:
		next, err := s.advance(ctx, rec.UserID, rec, session.StageAccountSelected, session.Update{ClearPendingTransfer: true})
		if err != nil {
			return nil, err
		}
		s.logger.Info().Str("user_id", rec.UserID).Msg("transfer cancelled by user")
		s.record(ctx, audit.NewEntry(rec.UserID, audit.EventTransferCancelled).
			WithDetail("transfer", transferDetail(pending)), rec.IdentityDocument)
		return &Outcome{Kind: KindTransferCancelled, Stage: next.Stage, FirstName: next.FirstName(), Transfer: &pending}, nil
	default:
		return &Outcome{Kind: KindConfirmationUnclear, Stage: rec.Stage, FirstName: rec.FirstName(), Transfer: &pending}, nil
	}
}

func (s *Service) executeTransfer(ctx context.Context, rec *session.Record, pending session.PendingTransfer) (*Outcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	receipt, err := s.backend.ExecuteTransfer(callCtx, banking.TransferOrder{
		Account:   rec.SelectedAccount,
		Amount:    pending.Amount,
		Currency:  pending.Currency,
		Recipient: pending.Recipient,
		FirstName: rec.FirstName(),
	})
	if err != nil {
		s.record(ctx, audit.NewEntry(rec.UserID, audit.EventTransferFailed).
			WithDetail("transfer", transferDetail(pending)).
			WithDetail("error", err.Error()), rec.IdentityDocument)
		out := s.failure(rec.UserID, rec.Stage, "execute transfer", err, KindTransferFailed)
		out.Transfer = &pending
		return out, nil
	}
	if receipt == nil {
		receipt = &banking.TransferReceipt{}
	}

	next, err := s.advance(ctx, rec.UserID, rec, session.StageAccountSelected, session.Update{ClearPendingTransfer: true})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", rec.UserID).
		Str("reference", receipt.Reference).
		Msg("transfer executed")
	s.record(ctx, audit.NewEntry(rec.UserID, audit.EventTransferExecuted).
		WithDetail("transfer", transferDetail(pending)).
		WithDetail("reference", receipt.Reference), rec.IdentityDocument)
	return &Outcome{
		Kind:      KindTransferExecuted,
		Stage:     next.Stage,
		FirstName: next.FirstName(),
		Account:   next.SelectedAccount,
		Transfer:  &pending,
		Reply:     receipt.Message,
		Reference: receipt.Reference,
	}, nil
}

// advance validates and writes a stage change. rec is the current record or
// nil when the user has none.
func (s *Service) advance(ctx context.Context, userID string, rec *session.Record, to session.Stage, upd session.Update) (*session.Record, error) {
	from := session.StageNotVerified
	if rec != nil {
		from = rec.Stage
	}
	if !session.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", session.ErrInvalidTransition, from, to)
	}
	written, err := s.store.Transition(userID, from, to, upd)
	if err != nil {
		return nil, fmt.Errorf("refusing %s -> %s: %w", from, to, err)
	}
	if from != to {
		s.logger.Debug().Str("user_id", userID).Str("from", string(from)).Str("to", string(to)).Msg("stage changed")
		s.record(ctx, audit.NewEntry(userID, audit.EventStageChanged).WithStages(from, to), written.IdentityDocument)
	}
	return written, nil
}

func (s *Service) checkCode(ctx context.Context, userID string, purpose Purpose, text string) (bool, error) {
	code := strings.TrimSpace(text)
	if !s.classifier.IsOTPFormat(code) {
		return false, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()
	return s.verifier.Verify(callCtx, userID, purpose, code)
}

// fetchAccountDetails loads details for each known account. Accounts the
// backend refuses to describe are skipped; an unavailable backend aborts.
func (s *Service) fetchAccountDetails(ctx context.Context, userID string, accounts []string) ([]session.AccountDetail, error) {
	details := make([]session.AccountDetail, 0, len(accounts))
	for _, account := range accounts {
		callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
		d, err := s.backend.AccountDetails(callCtx, account)
		cancel()
		if errors.Is(err, banking.ErrRejected) {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("account", account).Msg("account details unavailable, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", account, err)
		}
		if d == nil {
			continue
		}
		if d.Number == "" {
			d.Number = account
		}
		details = append(details, *d)
	}
	return details, nil
}

// failure maps a collaborator error to an outcome that keeps the user's stage.
// Rejections use rejectedKind; everything else is reported as unavailable.
func (s *Service) failure(userID string, stage session.Stage, op string, err error, rejectedKind Kind) *Outcome {
	if errors.Is(err, banking.ErrRejected) {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("op", op).Msg("request rejected")
		return &Outcome{Kind: rejectedKind, Stage: stage, Reason: banking.RejectionReason(err)}
	}
	s.logger.Error().Err(err).Str("user_id", userID).Str("op", op).Msg("collaborator call failed")
	return &Outcome{Kind: KindUnavailable, Stage: stage}
}

func (s *Service) record(ctx context.Context, entry *audit.Entry, document string) {
	if s.auditSvc == nil {
		return
	}
	entry.DocumentFingerprint = s.auditSvc.Fingerprint(document)
	s.auditSvc.Log(ctx, entry)
}

func transferDetail(p session.PendingTransfer) map[string]any {
	return map[string]any{
		"amount":    p.Amount.String(),
		"currency":  p.Currency,
		"recipient": p.Recipient,
	}
}

func nonNil(accounts []string) []string {
	if accounts == nil {
		return []string{}
	}
	return accounts
}
