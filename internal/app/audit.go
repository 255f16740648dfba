package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/okian/evaldash/internal/adapters/repository"
	"github.com/okian/evaldash/internal/domain/actor"
	"github.com/okian/evaldash/internal/domain/dedupe"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/domain/timeline"
	"github.com/okian/evaldash/pkg/logger"
)

// sessionSource tags session events produced by the demo login.
const sessionSource = "demo"

// RecordEvent appends a caller-supplied event. Only known event types are accepted.
func (s *Service) RecordEvent(ctx context.Context, in repository.AppendInput) (model.AuditEvent, error) {
	if !in.Type.Valid() {
		return model.AuditEvent{}, fmt.Errorf("%w: %q", ErrInvalidEventType, in.Type)
	}
	in.EvaluationID = strings.TrimSpace(in.EvaluationID)
	return s.audit.Append(ctx, in), nil
}

// RecordEventOnce is RecordEvent guarded by an idempotency key. A repeated
// key returns the first event without appending again; replayed reports that.
// An empty key behaves like RecordEvent.
func (s *Service) RecordEventOnce(ctx context.Context, key string, in repository.AppendInput) (ev model.AuditEvent, replayed bool, err error) {
	return dedupe.Do(s.appendKeys, strings.TrimSpace(key), func() (model.AuditEvent, error) {
		return s.RecordEvent(ctx, in)
	})
}

// ListEvents returns audit events, newest first.
func (s *Service) ListEvents(ctx context.Context, f repository.ListFilter) []model.AuditEvent {
	return s.audit.List(ctx, f)
}

// ClearEvents deletes the whole audit log.
func (s *Service) ClearEvents(ctx context.Context) {
	s.audit.Clear(ctx)
	s.appendKeys.Reset()
	s.log().Info(ctx, "audit log cleared")
}

// Timeline lists events and groups them by day in loc, or in the service
// display location when loc is nil.
func (s *Service) Timeline(ctx context.Context, f repository.ListFilter, loc *time.Location) []timeline.Day {
	if loc == nil {
		loc = s.location
	}
	return timeline.Group(s.audit.List(ctx, f), loc)
}

// Login starts a demo session and records SESSION_LOGIN. The role is guessed
// from the email and carries no authority.
func (s *Service) Login(ctx context.Context, email, name string) (actor.User, model.AuditEvent, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return actor.User{}, model.AuditEvent{}, fmt.Errorf("%w: email %q", ErrInvalidInput, email)
	}

	u := actor.DemoLogin(email, name)
	ev := s.audit.Append(ctx, repository.AppendInput{
		Type:     model.EventSessionLogin,
		Actor:    actor.FromUser(&u),
		Metadata: model.SessionMetadata{Source: sessionSource},
	})
	s.log().Debug(ctx, "demo session started",
		logger.String("user_id", u.ID),
		logger.String("role", string(u.Role)),
	)
	return u, ev, nil
}

// Logout records SESSION_LOGOUT for a.
func (s *Service) Logout(ctx context.Context, a model.Actor) model.AuditEvent {
	return s.audit.Append(ctx, repository.AppendInput{
		Type:     model.EventSessionLogout,
		Actor:    a,
		Metadata: model.SessionMetadata{Source: sessionSource},
	})
}
