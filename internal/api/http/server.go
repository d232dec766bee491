package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	appAudit "github.com/bankline/chat-gateway/internal/application/audit"
	"github.com/bankline/chat-gateway/internal/application/dispatch"
	"github.com/bankline/chat-gateway/internal/application/language"
	"github.com/bankline/chat-gateway/internal/domain/banking"
	"github.com/bankline/chat-gateway/internal/infrastructure/sse"
)

// requestTimeout leaves room for a slow backend query inside a webhook call.
const requestTimeout = 90 * time.Second

// Server holds dependencies for HTTP handlers.
type Server struct {
	dispatcher  *dispatch.Service
	backend     banking.Backend
	languages   *language.Service
	auditSvc    *appAudit.Service
	verifyToken string
	appSecret   string
	adminToken  string
	events      *sse.Hub
	logger      zerolog.Logger
}

// Options carries the webhook secrets. An empty AppSecret disables signature
// checks; an empty AdminToken disables the admin routes. Events may be nil.
type Options struct {
	VerifyToken string
	AppSecret   string
	AdminToken  string
	Events      *sse.Hub
}

func NewServer(
	dispatcher *dispatch.Service,
	backend banking.Backend,
	languages *language.Service,
	auditSvc *appAudit.Service,
	opts Options,
	logger zerolog.Logger,
) *Server {
	return &Server{
		dispatcher:  dispatcher,
		backend:     backend,
		languages:   languages,
		auditSvc:    auditSvc,
		verifyToken: opts.VerifyToken,
		appSecret:   opts.AppSecret,
		adminToken:  opts.AdminToken,
		events:      opts.Events,
		logger:      logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.health)

	r.Get("/webhook", s.verifyWebhook)
	r.With(s.verifySignature).Post("/webhook", s.receiveWebhook)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/stats", s.stats)
		r.Get("/audit/{userId}", s.userAudit)
		r.Get("/events", s.auditEvents)
	})

	return r
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// detached keeps request values but not cancellation: a message that reached
// the backend is finished even if the platform drops the connection.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
