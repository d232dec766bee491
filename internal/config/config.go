package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingVerifyToken is returned when the webhook cannot be subscribed.
var ErrMissingVerifyToken = errors.New("VERIFY_TOKEN is required")

// Env looks up environment variables.
type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// MapEnv is an Env backed by a map.
type MapEnv map[string]string

func (m MapEnv) Getenv(key string) string { return m[key] }

// Config holds service configuration.
type Config struct {
	ServerAddr string
	LogLevel   string

	VerifyToken     string
	PageAccessToken string
	AppSecret       string
	GraphAPIURL     string
	AdminToken      string

	BackendURL     string
	BackendTimeout time.Duration
	QueryTimeout   time.Duration
	HealthTimeout  time.Duration
	TranslationURL string

	SessionIdleTTL    time.Duration
	RateLimitInterval time.Duration
	DedupCapacity     int
	SweepEvery        int
	SweepInterval     time.Duration
	TransferPolicy    string

	DatabaseURL   string
	MigrationsDir string
	AuditKey      string
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(osEnv{})
}

// LoadFrom reads configuration from env. Unparseable values fall back to
// their defaults.
func LoadFrom(env Env) (*Config, error) {
	get := func(key, def string) string { return getenv(env, key, def) }

	cfg := &Config{
		ServerAddr: get("SERVER_ADDR", "0.0.0.0:8080"),
		LogLevel:   strings.ToLower(get("LOG_LEVEL", "info")),

		VerifyToken:     get("VERIFY_TOKEN", ""),
		PageAccessToken: get("PAGE_ACCESS_TOKEN", ""),
		AppSecret:       get("APP_SECRET", ""),
		GraphAPIURL:     get("GRAPH_API_URL", "https://graph.facebook.com/v18.0/me/messages"),
		AdminToken:      get("ADMIN_TOKEN", ""),

		BackendURL:     strings.TrimRight(get("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendTimeout: parseDuration(get("BACKEND_TIMEOUT", "10s"), 10*time.Second),
		QueryTimeout:   parseDuration(get("QUERY_TIMEOUT", "60s"), 60*time.Second),
		HealthTimeout:  parseDuration(get("HEALTH_TIMEOUT", "5s"), 5*time.Second),
		TranslationURL: strings.TrimRight(get("TRANSLATION_URL", ""), "/"),

		SessionIdleTTL:    parseDuration(get("SESSION_IDLE_TTL", "1h"), time.Hour),
		RateLimitInterval: parseDuration(get("RATE_LIMIT_INTERVAL", "2s"), 2*time.Second),
		DedupCapacity:     parseInt(get("DEDUP_CAPACITY", "1000"), 1000),
		SweepEvery:        parseInt(get("SWEEP_EVERY", "100"), 100),
		SweepInterval:     parseDuration(get("SWEEP_INTERVAL", "0"), 0),
		TransferPolicy:    get("TRANSFER_POLICY", ""),

		DatabaseURL:   get("DATABASE_URL", ""),
		MigrationsDir: get("MIGRATIONS_DIR", "internal/migrations"),
		AuditKey:      get("AUDIT_KEY", ""),
	}
	if cfg.VerifyToken == "" && !parseBool(get("ALLOW_NO_VERIFY_TOKEN", "false"), false) {
		return nil, ErrMissingVerifyToken
	}
	return cfg, nil
}

// TranslationEnabled reports whether an external translation service is configured.
func (c *Config) TranslationEnabled() bool { return c.TranslationURL != "" }

// PersistentAudit reports whether audit entries go to postgres.
func (c *Config) PersistentAudit() bool { return c.DatabaseURL != "" }

func getenv(env Env, key, def string) string {
	val := strings.TrimSpace(env.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
