package service

import (
	"time"

	"github.com/okian/evaldash/internal/adapters/repository"
	"github.com/okian/evaldash/pkg/logger"
)

// DefaultSnapshotTTL is how long a fetched evaluation list is reused.
const DefaultSnapshotTTL = 15 * time.Second

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditStore sets the audit log. Without one, Start falls back to an
// in-memory store.
func WithAuditStore(a repository.AuditLog) Option {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithEvaluationSource sets where evaluations are read from and decisions sent to.
func WithEvaluationSource(src EvaluationSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithSnapshotTTL sets how long the evaluation list is cached. Zero disables
// caching, although a stale list is still served when a refresh fails.
func WithSnapshotTTL(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.snapshotTTL = d
		}
	}
}

// WithDisplayLocation sets the zone used to group timelines by day.
func WithDisplayLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdempotencyCapacity sets how many idempotency keys are remembered per
// write operation. Zero keeps every key.
func WithIdempotencyCapacity(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.idempotencyCap = n
		}
	}
}
