//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/bankline/chat-gateway/internal/api/http"
	"github.com/bankline/chat-gateway/internal/bootstrap"
	"github.com/bankline/chat-gateway/internal/config"
	"github.com/bankline/chat-gateway/internal/domain/audit"
	"github.com/bankline/chat-gateway/internal/infrastructure/postgres"
)

const auditKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

type replies struct {
	mu   sync.Mutex
	msgs []string
}

func (r *replies) Send(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *replies) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func TestLoginFlowPersistsAudit(t *testing.T) {
	dsn := testDatabaseURL(t)
	bank := fakeBank(t)
	resetDatabase(t, dsn)

	cfg, err := config.LoadFrom(config.MapEnv{
		"VERIFY_TOKEN":   "tok",
		"BACKEND_URL":    bank.URL,
		"DATABASE_URL":   dsn,
		"MIGRATIONS_DIR": filepath.Join(repoRoot(t), "internal", "migrations"),
		"AUDIT_KEY":      auditKeyHex,
		"ADMIN_TOKEN":    "admin",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.RateLimitInterval = time.Nanosecond

	out := &replies{}
	stack, err := bootstrap.Build(context.Background(), cfg, out, zerolog.Nop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer stack.Close()

	api := httpapi.NewServer(stack.Dispatcher, stack.Backend, stack.Languages, stack.Audit,
		httpapi.Options{VerifyToken: cfg.VerifyToken, AdminToken: cfg.AdminToken}, zerolog.Nop())
	server := httptest.NewServer(api.Router())
	defer server.Close()

	for i, text := range []string{"hello", "12345-1234567-1", "123", "first"} {
		postMessage(t, server.URL, "mid-"+string(rune('a'+i)), text)
	}

	got := out.all()
	if len(got) != 4 {
		t.Fatalf("expected 4 replies, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[3], "PK001234") {
		t.Fatalf("expected account confirmation, got %q", got[3])
	}

	stack.Audit.Wait()
	entries, err := stack.Audit.History(context.Background(), "u-int", 20)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 stage changes, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Event != audit.EventStageChanged {
			t.Fatalf("unexpected event %s", e.Event)
		}
		if e.DocumentFingerprint == "" || strings.Contains(e.DocumentFingerprint, "12345") {
			t.Fatalf("identity document not fingerprinted: %q", e.DocumentFingerprint)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/v1/admin/audit/u-int", nil)
	req.Header.Set("Authorization", "Bearer admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("admin audit: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Entries) != 3 {
		t.Fatalf("expected 3 entries over http, got %d", len(body.Entries))
	}
}

func postMessage(t *testing.T, baseURL, mid, text string) {
	t.Helper()
	payload, _ := json.Marshal(map[string]any{
		"object": "page",
		"entry": []any{map[string]any{
			"id": "page",
			"messaging": []any{map[string]any{
				"sender":  map[string]any{"id": "u-int"},
				"message": map[string]any{"mid": mid, "text": text},
			}},
		}},
	})
	resp, err := http.Post(baseURL+"/webhook", "application/json", strings.NewReader(string(payload)))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook status %d", resp.StatusCode)
	}
}

func fakeBank(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/verify_cnic", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","user":{"cnic":"12345-1234567-1","name":"Ayesha Khan","accounts":["PK001234"]}}`))
	})
	mux.HandleFunc("/user_balance", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","user":{"account_currency":"pkr","current_balance_usd":10,"current_balance_pkr":2800}}`))
	})
	mux.HandleFunc("/select_account", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	return ""
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func resetDatabase(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("db pool: %v", err)
	}
	defer pool.Close()
	if err := postgres.RunMigrations(ctx, pool, filepath.Join(repoRoot(t), "internal", "migrations")); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE TABLE conversation_audit RESTART IDENTITY`); err != nil {
		t.Fatalf("reset db: %v", err)
	}
}
