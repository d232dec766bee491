package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/bankline/chat-gateway/internal/application/dispatch"
)

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID        string           `json:"id"`
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

// verifyWebhook answers the platform's subscription handshake.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || s.verifyToken == "" || q.Get("hub.verify_token") != s.verifyToken {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "Invalid verification token.")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

// receiveWebhook processes every message in a batched delivery in order and
// always acknowledges well-formed payloads.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	ctx := detached(r)
	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if ev.Message == nil || ev.Message.IsEcho || ev.Sender.ID == "" {
				continue
			}
			status, err := s.dispatcher.Dispatch(ctx, dispatch.Message{
				SenderID:  ev.Sender.ID,
				MessageID: ev.Message.MID,
				Text:      ev.Message.Text,
			})
			if err != nil {
				s.logger.Error().Err(err).
					Str("user_id", ev.Sender.ID).
					Str("mid", ev.Message.MID).
					Str("status", string(status)).
					Msg("webhook message failed")
			}
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
