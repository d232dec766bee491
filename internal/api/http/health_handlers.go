package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const serviceName = "chat-gateway"

type healthResponse struct {
	Status             string      `json:"status"`
	Service            string      `json:"service"`
	BackendConnection  string      `json:"backend_connection"`
	TranslationService string      `json:"translation_service"`
	Timestamp          time.Time   `json:"timestamp"`
	Counters           interface{} `json:"counters"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	backend := "healthy"
	if err := s.backend.Health(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("backend health check failed")
		backend = "unhealthy"
	}
	respondJSON(w, http.StatusOK, healthResponse{
		Status:             "healthy",
		Service:            serviceName,
		BackendConnection:  backend,
		TranslationService: s.languages.Status(r.Context()),
		Timestamp:          time.Now().UTC(),
		Counters:           s.dispatcher.Stats(),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.dispatcher.Stats())
}

func (s *Server) userAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditSvc == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "audit trail disabled")
		return
	}
	userID := chi.URLParam(r, "userId")
	entries, err := s.auditSvc.History(r.Context(), userID, parseLimit(r, 50, 500))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  userID,
		"entries": entries,
	})
}
