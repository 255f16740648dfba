package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/logger"
	"github.com/okian/evaldash/pkg/metrics"
)

// AuditStore is the append-only audit log persisted as one envelope under a
// single key of a Medium.
//
// Every operation reads and writes the whole envelope under a mutex, so calls
// are atomic within the process. Separate processes sharing a medium get
// last-writer-wins.
type AuditStore struct {
	medium Medium
	key    string

	maxEvents    int
	fallbackKeep int
	defaultLimit int

	now   func() time.Time
	newID func() string
	log   logger.Logger

	mu sync.Mutex
}

// NewAuditStore creates a store over medium.
func NewAuditStore(medium Medium, opts ...Option) *AuditStore {
	s := &AuditStore{
		medium:       medium,
		key:          DefaultKey,
		maxEvents:    DefaultMaxEvents,
		fallbackKeep: DefaultFallbackKeep,
		defaultLimit: DefaultDefaultListLimit,
		now:          time.Now,
		newID:        uuid.NewString,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallbackKeep > s.maxEvents {
		s.fallbackKeep = s.maxEvents
	}
	return s
}

var _ AuditLog = (*AuditStore)(nil)

// Append assigns an id and timestamp, appends the event and persists the log
// capped to the newest maxEvents. A rejected write is retried once with only
// the newest fallbackKeep events; if that fails too the event is returned
// without being persisted. A log stored in a newer envelope version is left
// untouched and the event is dropped.
func (s *AuditStore) Append(ctx context.Context, in AppendInput) model.AuditEvent {
	start := time.Now()
	defer func() {
		metrics.RecordAuditAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	actor := in.Actor
	if actor.Role == "" {
		actor = model.SystemActor()
	}
	ev := model.AuditEvent{
		ID:           s.newID(),
		Type:         in.Type,
		OccurredAt:   s.now().UTC(),
		EvaluationID: in.EvaluationID,
		Actor:        actor,
		Metadata:     model.CloneMetadata(in.Metadata),
	}
	metrics.RecordAuditAppend(string(ev.Type))

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.readLocked(ctx)
	if err != nil {
		metrics.RecordAuditPersistDropped()
		s.log.Warn(ctx, "audit event not persisted",
			logger.Error(err),
			logger.String("event_id", ev.ID),
			logger.String("type", string(ev.Type)),
		)
		return ev
	}
	events := append(stored, ev)
	if over := len(events) - s.maxEvents; over > 0 {
		events = events[over:]
		metrics.RecordAuditEvicted(over)
	}

	err = s.writeLocked(ctx, events)
	if err == nil {
		metrics.UpdateAuditStored(len(events))
		return ev
	}

	metrics.RecordAuditPersistFallback()
	s.log.Warn(ctx, "audit log write rejected, retrying with recent events",
		logger.Error(err),
		logger.Int("events", len(events)),
		logger.Int("keep", s.fallbackKeep),
	)

	recent := tail(events, s.fallbackKeep)
	if err := s.writeLocked(ctx, recent); err != nil {
		metrics.RecordAuditPersistDropped()
		s.log.Warn(ctx, "audit event not persisted",
			logger.Error(err),
			logger.String("event_id", ev.ID),
			logger.String("type", string(ev.Type)),
		)
		return ev
	}
	metrics.RecordAuditEvicted(len(events) - len(recent))
	metrics.UpdateAuditStored(len(recent))
	return ev
}

// List returns events matching f, newest first, truncated to the limit.
// Unreadable storage lists as empty.
func (s *AuditStore) List(ctx context.Context, f ListFilter) []model.AuditEvent {
	start := time.Now()
	defer func() {
		metrics.RecordAuditListLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	events, _ := s.readLocked(ctx)
	s.mu.Unlock()

	out := events[:0]
	for _, ev := range events {
		if f.EvaluationID != "" && ev.EvaluationID != f.EvaluationID {
			continue
		}
		out = append(out, ev)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Clear deletes the persisted log. Failures are logged, not returned.
func (s *AuditStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.medium.Delete(ctx, s.key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Warn(ctx, "audit log clear failed", logger.Error(err))
		metrics.RecordErrorByComponent("audit_store", "clear")
		return
	}
	metrics.RecordAuditClear()
}

// Len reports how many events are currently persisted.
func (s *AuditStore) Len(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	events, _ := s.readLocked(ctx)
	return len(events)
}

// readLocked returns the persisted events. Unreadable content reads as empty.
// The error is non-nil only for ErrUnsupportedVersion, where the stored log
// belongs to a newer writer and must not be overwritten.
func (s *AuditStore) readLocked(ctx context.Context) ([]model.AuditEvent, error) {
	raw, err := s.medium.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.RecordAuditReadFailure("medium")
			s.log.Warn(ctx, "audit log read failed, treating as empty", logger.Error(err))
		}
		return nil, nil
	}

	events, migrated, err := decodeEnvelope(raw)
	if errors.Is(err, ErrUnsupportedVersion) {
		metrics.RecordAuditReadFailure("version")
		s.log.Warn(ctx, "audit log written by a newer version, treating as read-only", logger.Error(err))
		return nil, err
	}
	if err != nil {
		metrics.RecordAuditReadFailure("corrupt")
		s.log.Warn(ctx, "audit log unreadable, treating as empty", logger.Error(err))
		return nil, nil
	}
	if migrated {
		metrics.RecordAuditMigration()
		s.log.Debug(ctx, "audit log migrated from v1 layout", logger.Int("events", len(events)))
	}
	return events, nil
}

func (s *AuditStore) writeLocked(ctx context.Context, events []model.AuditEvent) error {
	raw, err := encodeEnvelope(events)
	if err != nil {
		return err
	}
	return s.medium.Set(ctx, s.key, raw)
}

func tail(events []model.AuditEvent, n int) []model.AuditEvent {
	if len(events) <= n {
		return events
	}
	return events[len(events)-n:]
}
