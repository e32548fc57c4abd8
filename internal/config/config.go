// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database drivers, task-queue mode, the
// LLM generation waterfall, blob storage, and observability.
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "claims-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and configures the relational store.
//
// Driver "sqlite" (default) is the single-node/dev mode; "postgres" is the
// multi-worker production mode and the only one with real row-level locks.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	DSN    string // DATABASE_URL (postgres)
}

// TasksConfig configures the task-queue adapter.
//
// Mode "local" executes task handlers on detached goroutines inside this
// process. Mode "queue" submits them to a Cloud Tasks push queue that calls
// back into /internal/tasks/:name with an OIDC identity token.
type TasksConfig struct {
	Mode           string        // TASKS_MODE: local|queue
	Project        string        // TASKS_PROJECT (queue mode)
	Location       string        // TASKS_LOCATION (queue mode)
	Queue          string        // TASKS_QUEUE (queue mode)
	TargetBaseURL  string        // TASKS_TARGET_BASE_URL, e.g. https://claims.example.com
	ServiceAccount string        // TASKS_SERVICE_ACCOUNT: SA email attached to pushed tasks
	Audience       string        // TASKS_AUDIENCE: expected OIDC audience on callbacks
	AllowedEmails  []string      // TASKS_ALLOWED_EMAILS: principals allowed to call task endpoints
	DispatchDeadline time.Duration // TASKS_DISPATCH_DEADLINE
}

// LLMConfig configures the generation waterfall.
type LLMConfig struct {
	APIKey        string        // LLM_API_KEY
	Model         string        // LLM_MODEL (primary)
	FallbackModel string        // LLM_FALLBACK_MODEL ("" disables the fallback leg)
	CacheTTL      time.Duration // LLM_CACHE_TTL for shared prompt caches (0 disables caching)
	MaxAttempts   int           // LLM_MAX_ATTEMPTS per waterfall leg
	BaseBackoff   time.Duration // LLM_BASE_BACKOFF for transient-error retries
	Temperature   float64       // LLM_TEMPERATURE
}

// BlobConfig configures artifact/object storage.
type BlobConfig struct {
	Backend      string        // BLOB_BACKEND: gcs|memory
	Bucket       string        // BLOB_BUCKET (gcs)
	SignedURLTTL time.Duration // BLOB_SIGNED_URL_TTL
}

// PipelineConfig bounds the background processing machinery.
type PipelineConfig struct {
	ExtractConcurrency int           // EXTRACT_CONCURRENCY: semaphore size for in-flight extractions
	OutboxBatchSize    int           // OUTBOX_BATCH_SIZE per processor pass
	OutboxInterval     time.Duration // OUTBOX_INTERVAL between periodic passes
	RescueTimeout      time.Duration // RESCUE_TIMEOUT: age before PROCESSING/GENERATING cases are reset
	RescueInterval     time.Duration // RESCUE_INTERVAL between sweep runs (0 disables the loop)
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

	// Domain
	DB       DBConfig
	Tasks    TasksConfig
	LLM      LLMConfig
	Blob     BlobConfig
	Pipeline PipelineConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "claims.db"),
			DSN:    getenv("DATABASE_URL", ""),
		},

		// Task queue
		Tasks: TasksConfig{
			Mode:             strings.ToLower(getenv("TASKS_MODE", "local")),
			Project:          getenv("TASKS_PROJECT", ""),
			Location:         getenv("TASKS_LOCATION", ""),
			Queue:            getenv("TASKS_QUEUE", ""),
			TargetBaseURL:    strings.TrimRight(getenv("TASKS_TARGET_BASE_URL", ""), "/"),
			ServiceAccount:   getenv("TASKS_SERVICE_ACCOUNT", ""),
			Audience:         getenv("TASKS_AUDIENCE", ""),
			AllowedEmails:    splitCSV(getenv("TASKS_ALLOWED_EMAILS", "")),
			DispatchDeadline: getdur("TASKS_DISPATCH_DEADLINE", 10*time.Minute),
		},

		// Generation
		LLM: LLMConfig{
			APIKey:        getenv("LLM_API_KEY", ""),
			Model:         getenv("LLM_MODEL", "gemini-2.5-pro"),
			FallbackModel: getenv("LLM_FALLBACK_MODEL", "gemini-2.5-flash"),
			CacheTTL:      getdur("LLM_CACHE_TTL", time.Hour),
			MaxAttempts:   getint("LLM_MAX_ATTEMPTS", 4),
			BaseBackoff:   getdur("LLM_BASE_BACKOFF", 2*time.Second),
			Temperature:   getfloat("LLM_TEMPERATURE", 0.2),
		},

		// Blob storage
		Blob: BlobConfig{
			Backend:      strings.ToLower(getenv("BLOB_BACKEND", "memory")),
			Bucket:       getenv("BLOB_BUCKET", ""),
			SignedURLTTL: getdur("BLOB_SIGNED_URL_TTL", 15*time.Minute),
		},

		// Pipeline
		Pipeline: PipelineConfig{
			ExtractConcurrency: getint("EXTRACT_CONCURRENCY", 4),
			OutboxBatchSize:    getint("OUTBOX_BATCH_SIZE", 20),
			OutboxInterval:     getdur("OUTBOX_INTERVAL", 30*time.Second),
			RescueTimeout:      getdur("RESCUE_TIMEOUT", 2*time.Hour),
			RescueInterval:     getdur("RESCUE_INTERVAL", 15*time.Minute),
		},

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

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "claims-backend"),
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
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty for the sqlite driver")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DATABASE_URL must be set for the postgres driver")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	switch cfg.Tasks.Mode {
	case "local":
	case "queue":
		if cfg.Tasks.Project == "" || cfg.Tasks.Location == "" || cfg.Tasks.Queue == "" {
			return cfg, errors.New("TASKS_PROJECT, TASKS_LOCATION and TASKS_QUEUE are required in queue mode")
		}
		if cfg.Tasks.TargetBaseURL == "" {
			return cfg, errors.New("TASKS_TARGET_BASE_URL is required in queue mode")
		}
		if cfg.Tasks.ServiceAccount == "" {
			return cfg, errors.New("TASKS_SERVICE_ACCOUNT is required in queue mode")
		}
		if len(cfg.Tasks.AllowedEmails) == 0 {
			return cfg, errors.New("TASKS_ALLOWED_EMAILS must list at least one principal in queue mode")
		}
	default:
		return cfg, errors.New("TASKS_MODE must be local or queue")
	}
	if cfg.LLM.Model == "" {
		return cfg, errors.New("LLM_MODEL must not be empty")
	}
	if cfg.LLM.MaxAttempts < 1 {
		return cfg, errors.New("LLM_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.LLM.BaseBackoff <= 0 {
		return cfg, errors.New("LLM_BASE_BACKOFF must be > 0")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be in [0,2]")
	}
	switch cfg.Blob.Backend {
	case "memory":
	case "gcs":
		if cfg.Blob.Bucket == "" {
			return cfg, errors.New("BLOB_BUCKET must be set for the gcs backend")
		}
	default:
		return cfg, errors.New("BLOB_BACKEND must be gcs or memory")
	}
	if cfg.Blob.SignedURLTTL <= 0 {
		return cfg, errors.New("BLOB_SIGNED_URL_TTL must be > 0")
	}
	if cfg.Pipeline.ExtractConcurrency < 1 {
		return cfg, errors.New("EXTRACT_CONCURRENCY must be >= 1")
	}
	if cfg.Pipeline.OutboxBatchSize < 1 {
		return cfg, errors.New("OUTBOX_BATCH_SIZE must be >= 1")
	}
	if cfg.Pipeline.OutboxInterval <= 0 {
		return cfg, errors.New("OUTBOX_INTERVAL must be > 0")
	}
	if cfg.Pipeline.RescueTimeout <= 0 {
		return cfg, errors.New("RESCUE_TIMEOUT must be > 0")
	}
	if cfg.Pipeline.RescueInterval < 0 {
		return cfg, errors.New("RESCUE_INTERVAL must be >= 0")
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

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath guarantees a leading slash and strips a trailing one.
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
