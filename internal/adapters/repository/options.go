package repository

import (
	"time"

	"github.com/okian/evaldash/pkg/logger"
)

// Defaults for the audit store.
const (
	DefaultKey              = "evaldash:audit-events"
	DefaultMaxEvents        = 2000
	DefaultFallbackKeep     = 500
	DefaultDefaultListLimit = 500
)

// Option applies a configuration option to the AuditStore.
type Option func(*AuditStore)

// WithKey sets the storage key holding the envelope.
func WithKey(key string) Option {
	return func(s *AuditStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithMaxEvents caps the persisted log.
func WithMaxEvents(n int) Option {
	return func(s *AuditStore) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithFallbackKeep sets how many recent events the retry write keeps.
func WithFallbackKeep(n int) Option {
	return func(s *AuditStore) {
		if n > 0 {
			s.fallbackKeep = n
		}
	}
}

// WithDefaultListLimit sets the limit applied when a list call passes none.
func WithDefaultListLimit(n int) Option {
	return func(s *AuditStore) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AuditStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *AuditStore) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for degraded-persistence warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *AuditStore) {
		if l != nil {
			s.log = l
		}
	}
}
