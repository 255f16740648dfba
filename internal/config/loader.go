package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix     = "EVALDASH_"
	envConfigPath = "EVALDASH_CONFIG"
	envNesting    = "__"
)

// listKeys are comma-separated when read from the environment.
var listKeys = map[string]struct{}{
	"cors_allowed_origins": {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if EVALDASH_CONFIG is set
//  3. env (prefix EVALDASH_, "__" separates nested keys, e.g. EVALDASH_AUDIT__MEDIUM)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigPath); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, envNesting, ".")
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.SnapshotTTLMS < 0:
		return invalid("snapshot_ttl_ms must not be negative")
	case c.IdempotencyCapacity < 0:
		return invalid("idempotency_capacity must not be negative")
	case c.Audit.MaxEvents <= 0:
		return invalid("audit.max_events must be positive")
	case c.Audit.FallbackKeep <= 0 || c.Audit.FallbackKeep > c.Audit.MaxEvents:
		return invalid("audit.fallback_keep must be in (0, audit.max_events]")
	case c.Audit.DefaultListLimit <= 0:
		return invalid("audit.default_list_limit must be positive")
	case strings.TrimSpace(c.Audit.Key) == "":
		return invalid("audit.key must not be empty")
	case c.Audit.QuotaBytes < 0:
		return invalid("audit.quota_bytes must not be negative")
	case c.Collaborator.TimeoutMS <= 0:
		return invalid("collaborator.timeout_ms must be positive")
	case c.Metrics.RefreshIntervalMS <= 0:
		return invalid("metrics.refresh_interval_ms must be positive")
	}

	switch c.Audit.Medium {
	case MediumMemory:
	case MediumFile:
		if strings.TrimSpace(c.Audit.Dir) == "" {
			return invalid("audit.dir is required for the file medium")
		}
	case MediumRedis:
		if strings.TrimSpace(c.Audit.Redis.Addr) == "" {
			return invalid("audit.redis.addr is required for the redis medium")
		}
	case MediumPostgres:
		if strings.TrimSpace(c.Audit.Postgres.DSN) == "" {
			return invalid("audit.postgres.dsn is required for the postgres medium")
		}
	default:
		return invalid(fmt.Sprintf("unknown audit.medium %q", c.Audit.Medium))
	}

	u, err := url.Parse(c.Collaborator.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("collaborator.base_url must be an absolute URL")
	}

	if _, err := time.LoadLocation(c.DisplayTimezone); err != nil {
		return invalid(fmt.Sprintf("display_timezone %q: %v", c.DisplayTimezone, err))
	}
	return nil
}

// SnapshotTTL returns the snapshot reuse window.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLMS) * time.Millisecond
}

// CollaboratorTimeout returns the per-request timeout toward the evaluation API.
func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.Collaborator.TimeoutMS) * time.Millisecond
}

// MetricsRefreshInterval returns how often metric gauges are refreshed.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.Metrics.RefreshIntervalMS) * time.Millisecond
}

// Location resolves DisplayTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
