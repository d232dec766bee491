package httpapi

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appAudit "github.com/bankline/chat-gateway/internal/application/audit"
	"github.com/bankline/chat-gateway/internal/application/conversation"
	"github.com/bankline/chat-gateway/internal/application/dispatch"
	"github.com/bankline/chat-gateway/internal/application/gatekeeper"
	"github.com/bankline/chat-gateway/internal/application/language"
	"github.com/bankline/chat-gateway/internal/application/responder"
	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/domain/banking"
	"github.com/bankline/chat-gateway/internal/domain/banking/mocks"
	"github.com/bankline/chat-gateway/internal/infrastructure/memory"
	"github.com/bankline/chat-gateway/internal/infrastructure/sse"
	"github.com/bankline/chat-gateway/internal/infrastructure/translation"
)

type captureSender struct {
	mu    sync.Mutex
	texts map[string][]string
}

func (c *captureSender) Send(_ context.Context, to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.texts == nil {
		c.texts = map[string][]string{}
	}
	c.texts[to] = append(c.texts[to], text)
	return nil
}

func (c *captureSender) to(user string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts[user]...)
}

type testEnv struct {
	handler  http.Handler
	backend  *mocks.MockBackend
	sender   *captureSender
	auditSvc *appAudit.Service
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: mocks.NewMockBackend(gomock.NewController(t)),
		sender:  &captureSender{},
	}
	store := memory.NewSessionStore()
	env.auditSvc = appAudit.NewService(memory.NewAuditRepository(50), []byte("k"), zerolog.Nop())
	if opts.Events != nil {
		env.auditSvc.Subscribe(opts.Events)
	}
	langs := language.NewService(translation.Passthrough{}, memory.NewLanguageCache(), zerolog.Nop())
	conv := conversation.NewService(store, env.backend, env.auditSvc, conversation.Config{}, zerolog.Nop())
	disp := dispatch.NewService(gatekeeper.New(gatekeeper.Options{}), conv, langs,
		responder.TemplateResponder{}, env.sender, store, env.auditSvc, 0, zerolog.Nop())
	env.handler = NewServer(disp, env.backend, langs, env.auditSvc, opts, zerolog.Nop()).Router()
	return env
}

func (e *testEnv) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestVerifyWebhook(t *testing.T) {
	env := newTestEnv(t, Options{VerifyToken: "tok"})

	rec := env.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=12345", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	rec = env.do(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=tok&hub.challenge=12345", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

const greetingPayload = `{"object":"page","entry":[{"id":"p1","messaging":[
	{"sender":{"id":"u1"},"message":{"mid":"m1","text":"hi"}},
	{"sender":{"id":"u2"},"delivery":{"mids":["m0"]}},
	{"sender":{"id":"page"},"message":{"mid":"m2","text":"echo","is_echo":true}},
	{"sender":{"id":"u1"},"message":{"mid":"m1","text":"hi"}}
]}]}`

func TestReceiveWebhook(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(http.MethodPost, "/webhook", greetingPayload, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	replies := env.sender.to("u1")
	require.Len(t, replies, 1, "duplicate delivery is answered once")
	assert.Contains(t, replies[0], "CNIC")
	assert.Empty(t, env.sender.to("page"))
}

func TestReceiveWebhook_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(http.MethodPost, "/webhook", "{not json", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON"}`, rec.Body.String())
}

func TestReceiveWebhook_Signature(t *testing.T) {
	env := newTestEnv(t, Options{AppSecret: "s3cret"})
	good := signaturePrefix + hex.EncodeToString(sign("s3cret", []byte(greetingPayload)))

	rec := env.do(http.MethodPost, "/webhook", greetingPayload, map[string]string{signatureHeader: "sha256=00ff"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.sender.to("u1"))

	rec = env.do(http.MethodPost, "/webhook", greetingPayload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/webhook", greetingPayload, map[string]string{signatureHeader: good})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.sender.to("u1"), 1)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.backend.EXPECT().Health(gomock.Any()).Return(nil)
	env.backend.EXPECT().Health(gomock.Any()).Return(banking.ErrUnavailable)

	var body map[string]any
	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "healthy", body["backend_connection"])
	assert.Equal(t, "fallback_only", body["translation_service"])
	assert.Contains(t, body, "counters")
	assert.Contains(t, body, "timestamp")

	rec = env.do(http.MethodGet, "/health", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "unhealthy", body["backend_connection"])
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, Options{AdminToken: "admin"})
	require.NoError(t, env.auditSvc.LogSync(context.Background(), audit.NewEntry("u9", audit.EventSessionEnded)))

	rec := env.do(http.MethodGet, "/v1/admin/audit/u9", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/v1/admin/audit/u9?limit=5", "", map[string]string{"Authorization": "Bearer admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		UserID  string            `json:"userId"`
		Entries []json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u9", body.UserID)
	assert.Len(t, body.Entries, 1)

	rec = env.do(http.MethodGet, "/v1/admin/stats", "", map[string]string{"Authorization": "Bearer admin"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutes_Disabled(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(http.MethodGet, "/v1/admin/stats", "", map[string]string{"Authorization": "Bearer "})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditEvents_Stream(t *testing.T) {
	hub := sse.NewHub()
	env := newTestEnv(t, Options{AdminToken: "admin", Events: hub})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/admin/events?user_id=u9&client_id=ops", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer admin")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, env.auditSvc.LogSync(context.Background(), audit.NewEntry("u8", audit.EventStageChanged)))
	require.NoError(t, env.auditSvc.LogSync(context.Background(), audit.NewEntry("u9", audit.EventSessionEnded)))

	var data string
	for data == "" {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = line
		}
	}
	assert.Contains(t, data, `"event":"SESSION_ENDED"`)
	assert.Contains(t, data, `"userId":"u9"`)
}

func TestAuditEvents_Disabled(t *testing.T) {
	env := newTestEnv(t, Options{AdminToken: "admin"})

	rec := env.do(http.MethodGet, "/v1/admin/events", "", map[string]string{"Authorization": "Bearer admin"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
