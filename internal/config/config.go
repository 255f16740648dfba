// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults and Load(ctx) to layer
//   file and environment overrides on top.
// - Validation failures wrap ErrInvalidConfig, loader failures wrap ErrLoadConfig.
package config

// Audit medium kinds.
const (
	MediumMemory   = "memory"
	MediumFile     = "file"
	MediumRedis    = "redis"
	MediumPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// SnapshotTTLMS is how long an evaluation snapshot is reused before refetching.
	SnapshotTTLMS int `koanf:"snapshot_ttl_ms"`

	// IdempotencyCapacity bounds remembered Idempotency-Key results per write
	// operation. Zero keeps all of them.
	IdempotencyCapacity int `koanf:"idempotency_capacity"`

	// DisplayTimezone is the IANA zone used to group timeline days.
	DisplayTimezone string `koanf:"display_timezone"`

	Audit        AuditConfig        `koanf:"audit"`
	Collaborator CollaboratorConfig `koanf:"collaborator"`
	Metrics      MetricsConfig      `koanf:"metrics"`
}

// MetricsConfig configures the Prometheus metrics manager.
type MetricsConfig struct {
	// Enabled turns recording on or off; /healthz still serves the registry.
	Enabled bool `koanf:"enabled"`

	// RefreshIntervalMS is how often system and service gauges are refreshed.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`

	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
	Prefix    string `koanf:"prefix"`

	// ConstLabels are attached to every series, e.g. env or region.
	ConstLabels map[string]string `koanf:"const_labels"`

	// HistogramBuckets overrides the latency buckets (milliseconds).
	HistogramBuckets []float64 `koanf:"histogram_buckets"`
}

// AuditConfig configures the audit log store and its durable medium.
type AuditConfig struct {
	// Medium is one of memory, file, redis, postgres.
	Medium string `koanf:"medium"`

	// Key is the single storage key holding the persisted envelope.
	Key string `koanf:"key"`

	// MaxEvents caps the persisted log; older events are truncated.
	MaxEvents int `koanf:"max_events"`

	// FallbackKeep is how many recent events the retry write keeps.
	FallbackKeep int `koanf:"fallback_keep"`

	// DefaultListLimit applies when a list call passes no limit.
	DefaultListLimit int `koanf:"default_list_limit"`

	// QuotaBytes bounds the stored payload for memory and redis media (0 = unbounded).
	QuotaBytes int `koanf:"quota_bytes"`

	// Dir is the directory used by the file medium.
	Dir string `koanf:"dir"`

	Redis    RedisConfig    `koanf:"redis"`
	Postgres PostgresConfig `koanf:"postgres"`
}

// RedisConfig configures the redis medium.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// PostgresConfig configures the postgres medium.
type PostgresConfig struct {
	DSN      string `koanf:"dsn"`
	Table    string `koanf:"table"`
	MaxConns int    `koanf:"max_conns"`
}

// CollaboratorConfig points at the external evaluation API.
type CollaboratorConfig struct {
	BaseURL   string `koanf:"base_url"`
	TimeoutMS int    `koanf:"timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		CORSAllowedOrigins:  []string{"*"},
		SnapshotTTLMS:       15_000,
		IdempotencyCapacity: 10_000,
		DisplayTimezone:     "America/Bogota",
		Audit: AuditConfig{
			Medium:           MediumFile,
			Key:              "evaldash:audit-events",
			MaxEvents:        2000,
			FallbackKeep:     500,
			DefaultListLimit: 500,
			Dir:              "./data/audit",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Postgres: PostgresConfig{
				Table:    "audit_kv",
				MaxConns: 4,
			},
		},
		Collaborator: CollaboratorConfig{
			BaseURL:   "http://localhost:3001",
			TimeoutMS: 10_000,
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			RefreshIntervalMS: 10_000,
			Namespace:         "evaldash",
			Subsystem:         "core",
		},
	}
}
