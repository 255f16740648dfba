// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/okian/evaldash/internal/adapters/repository"
	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/dedupe"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/logger"
	"github.com/okian/evaldash/pkg/metrics"
)

// EvaluationSource is the evaluation API as the service needs it.
type EvaluationSource interface {
	ListEvaluations(ctx context.Context) ([]model.EvaluationSummary, error)
	GetEvaluationDetail(ctx context.Context, id string) (model.EvaluationDetail, error)
	SubmitDecision(ctx context.Context, id string, p model.DecisionPayload) error
}

// Service implements the API dependencies for the evaluation dashboards.
type Service struct {
	mu sync.RWMutex

	// Core components
	audit  repository.AuditLog
	source EvaluationSource

	// Configuration
	snapshotTTL time.Duration
	location    *time.Location
	now         func() time.Time

	// Evaluation snapshot
	snapMu    sync.Mutex
	snapshot  []model.EvaluationSummary
	fetchedAt time.Time
	haveSnap  bool

	// Decisions accepted by this process, shown until the source catches up
	overridesMu sync.RWMutex
	overrides   map[string]model.DecisionStatus

	overviewMemo    *aggregate.Memo[adminKPIs]
	coordinatorMemo *aggregate.Memo[model.CoordinatorMetrics]

	// Idempotency keys for retried writes
	idempotencyCap int
	appendKeys     *dedupe.Guard[model.AuditEvent]
	decisionKeys   *dedupe.Guard[DecisionResult]

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		snapshotTTL:     DefaultSnapshotTTL,
		location:        time.UTC,
		now:             time.Now,
		overrides:       make(map[string]model.DecisionStatus),
		overviewMemo:    aggregate.NewMemo("admin_kpis", adminKPIs.clone),
		coordinatorMemo: aggregate.NewMemo[model.CoordinatorMetrics]("coordinator_metrics", nil),
		idempotencyCap:  dedupe.DefaultMaxSize,
		logger:          nil, // replaced when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.audit == nil {
		s.audit = repository.NewAuditStore(repository.NewMemoryMedium())
	}
	s.appendKeys = dedupe.New[model.AuditEvent]("audit_append", dedupe.WithMaxSize(s.idempotencyCap))
	s.decisionKeys = dedupe.New[DecisionResult]("decision", dedupe.WithMaxSize(s.idempotencyCap))
	return s
}

// Start marks the service ready. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.source == nil {
		s.logger.Warn(ctx, "no evaluation source configured, dashboard views will fail")
	}

	s.started = true
	s.logger.Info(ctx, "evaluation dashboard service started",
		logger.Duration("snapshotTTL", s.snapshotTTL),
		logger.String("location", s.location.String()),
	)
	return nil
}

// Stop drops cached state. The audit log and source are owned by the caller.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.snapMu.Lock()
	s.snapshot, s.haveSnap = nil, false
	s.snapMu.Unlock()
	s.overviewMemo.Reset()
	s.coordinatorMemo.Reset()

	s.started = false
	s.logger.Info(context.Background(), "evaluation dashboard service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       started,
		"snapshotTTLMs": s.snapshotTTL.Milliseconds(),
		"hasSource":     s.source != nil,
	}

	s.snapMu.Lock()
	if s.haveSnap {
		age := s.now().Sub(s.fetchedAt)
		stats["snapshotSize"] = len(s.snapshot)
		stats["snapshotAgeMs"] = age.Milliseconds()
		metrics.UpdateSnapshot(len(s.snapshot), age)
	}
	s.snapMu.Unlock()

	s.overridesMu.RLock()
	stats["decisionOverrides"] = len(s.overrides)
	s.overridesMu.RUnlock()
	stats["idempotencyKeys"] = s.appendKeys.Size() + s.decisionKeys.Size()

	if counter, ok := s.audit.(interface{ Len(context.Context) int }); ok {
		n := counter.Len(context.Background())
		stats["auditEvents"] = n
		metrics.UpdateAuditStored(n)
	}
	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}
