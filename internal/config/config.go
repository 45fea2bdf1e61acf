// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, rate limiting, the AI
// backend, the WhatsApp transport, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-intake-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AIConfig defines the Gemini backend and the health-tracking knobs.
type AIConfig struct {
	Enabled      bool          // AI_ENABLED
	APIKey       string        // GEMINI_API_KEY
	Model        string        // GEMINI_MODEL
	Timeout      time.Duration // AI_TIMEOUT, bound on a single generate call
	RetryAfter   time.Duration // AI_RETRY_AFTER, probe interval once marked unavailable
	HistoryTurns int           // AI_HISTORY_TURNS, per-session memory kept by the client
}

// FlowConfig defines the scripted fallback flow settings.
type FlowConfig struct {
	CacheTTL    time.Duration // FLOW_CACHE_TTL
	SeedDefault bool          // SEED_DEFAULT_FLOW, insert the built-in flow when empty
}

// PhoneConfig defines phone normalization settings.
type PhoneConfig struct {
	CountryCode string // PHONE_COUNTRY_CODE (digits, e.g. "55")
	Region      string // PHONE_REGION (ISO region for plausibility checks, e.g. "BR")
}

// WhatsAppConfig defines the Twilio transport and the internal routing address.
type WhatsAppConfig struct {
	AccountSID      string // TWILIO_ACCOUNT_SID
	AuthToken       string // TWILIO_AUTH_TOKEN
	From            string // TWILIO_WHATSAPP_FROM (e.g. "whatsapp:+14155238886")
	ValidateWebhook bool   // TWILIO_VALIDATE_WEBHOOK
	PublicBaseURL   string // PUBLIC_BASE_URL, used to rebuild the signed webhook URL
	InternalAddress string // INTERNAL_NOTIFY_ADDRESS, normalized handle for lead notifications
}

// Enabled reports whether enough credentials are present to build a client.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccountSID != "" && w.AuthToken != "" && w.From != ""
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Conversation
	AI       AIConfig
	Flow     FlowConfig
	Phone    PhoneConfig
	WhatsApp WhatsAppConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath: getenv("DB_PATH", "app.db"),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Conversation
		AI: AIConfig{
			Enabled:      getbool("AI_ENABLED", true),
			APIKey:       getenv("GEMINI_API_KEY", ""),
			Model:        getenv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:      getdur("AI_TIMEOUT", 15*time.Second),
			RetryAfter:   getdur("AI_RETRY_AFTER", 60*time.Second),
			HistoryTurns: getint("AI_HISTORY_TURNS", 10),
		},
		Flow: FlowConfig{
			CacheTTL:    getdur("FLOW_CACHE_TTL", 5*time.Minute),
			SeedDefault: getbool("SEED_DEFAULT_FLOW", true),
		},
		Phone: PhoneConfig{
			CountryCode: getenv("PHONE_COUNTRY_CODE", "55"),
			Region:      strings.ToUpper(getenv("PHONE_REGION", "BR")),
		},
		WhatsApp: WhatsAppConfig{
			AccountSID:      getenv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:       getenv("TWILIO_AUTH_TOKEN", ""),
			From:            getenv("TWILIO_WHATSAPP_FROM", ""),
			ValidateWebhook: getbool("TWILIO_VALIDATE_WEBHOOK", true),
			PublicBaseURL:   strings.TrimRight(getenv("PUBLIC_BASE_URL", ""), "/"),
			InternalAddress: getenv("INTERNAL_NOTIFY_ADDRESS", "5511918368812"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-intake-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.WhatsApp.InternalAddress = digitsOnly(cfg.WhatsApp.InternalAddress)

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.AI.Timeout <= 0 {
		return cfg, errors.New("AI_TIMEOUT must be > 0")
	}
	if cfg.AI.RetryAfter < 0 {
		return cfg, errors.New("AI_RETRY_AFTER must be >= 0")
	}
	if cfg.AI.HistoryTurns < 0 {
		return cfg, errors.New("AI_HISTORY_TURNS must be >= 0")
	}
	if cfg.AI.Enabled && strings.TrimSpace(cfg.AI.Model) == "" {
		return cfg, errors.New("GEMINI_MODEL must not be empty when AI is enabled")
	}
	if cfg.Flow.CacheTTL < 0 {
		return cfg, errors.New("FLOW_CACHE_TTL must be >= 0")
	}
	if cfg.Phone.CountryCode == "" || digitsOnly(cfg.Phone.CountryCode) != cfg.Phone.CountryCode {
		return cfg, errors.New("PHONE_COUNTRY_CODE must be digits only")
	}
	if cfg.WhatsApp.InternalAddress == "" {
		return cfg, errors.New("INTERNAL_NOTIFY_ADDRESS must contain digits")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// digitsOnly drops every non-digit rune ("+55 (11) 9..." -> "5511...").
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
