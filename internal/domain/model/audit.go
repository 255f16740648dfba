// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventType names a recorded action. The set is closed for new writes; stored
// events with unknown types are still read back.
type EventType string

// Known event types.
const (
	EventSessionLogin        EventType = "SESSION_LOGIN"
	EventSessionLogout       EventType = "SESSION_LOGOUT"
	EventEvaluationCreated   EventType = "EVALUATION_CREATED"
	EventEvaluationOpened    EventType = "EVALUATION_OPENED"
	EventAIAnalysisStarted   EventType = "AI_ANALYSIS_STARTED"
	EventAIAnalysisFinished  EventType = "AI_ANALYSIS_FINISHED"
	EventAIAnalysisFailed    EventType = "AI_ANALYSIS_FAILED"
	EventCoordinatorDecision EventType = "COORDINATOR_DECISION_SET"
	EventCoordinatorComment  EventType = "COORDINATOR_COMMENT_SET"
	EventReportPDFDownloaded EventType = "REPORT_PDF_DOWNLOADED"
	EventReportPDFUploaded   EventType = "REPORT_PDF_UPLOADED"
)

var knownEventTypes = map[EventType]struct{}{
	EventSessionLogin:        {},
	EventSessionLogout:       {},
	EventEvaluationCreated:   {},
	EventEvaluationOpened:    {},
	EventAIAnalysisStarted:   {},
	EventAIAnalysisFinished:  {},
	EventAIAnalysisFailed:    {},
	EventCoordinatorDecision: {},
	EventCoordinatorComment:  {},
	EventReportPDFDownloaded: {},
	EventReportPDFUploaded:   {},
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// Role of the actor behind an event.
type Role string

// Known roles.
const (
	RoleLeader      Role = "leader"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
	RoleSystem      Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleLeader, RoleCoordinator, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// SystemName is the display name of the system actor.
const SystemName = "Sistema"

// Actor identifies who performed an action. Empty ID and Email encode as null.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// SystemActor is attributed to events without an authenticated user.
func SystemActor() Actor {
	return Actor{Role: RoleSystem, Name: SystemName}
}

type actorJSON struct {
	ID    *string `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Role  Role    `json:"role"`
}

// MarshalJSON implements json.Marshaler.
func (a Actor) MarshalJSON() ([]byte, error) {
	return json.Marshal(actorJSON{
		ID:    nullable(a.ID),
		Name:  a.Name,
		Email: nullable(a.Email),
		Role:  a.Role,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Actor) UnmarshalJSON(data []byte) error {
	var w actorJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Actor{Name: w.Name, Role: w.Role}
	if w.ID != nil {
		a.ID = *w.ID
	}
	if w.Email != nil {
		a.Email = *w.Email
	}
	return nil
}

// AuditEvent is an immutable record of something that happened.
type AuditEvent struct {
	ID           string
	Type         EventType
	OccurredAt   time.Time
	EvaluationID string
	Actor        Actor
	Metadata     Metadata
}

// auditEventJSON is the persisted layout; "at" keeps compatibility with v1 data.
type auditEventJSON struct {
	ID           string          `json:"id"`
	Type         EventType       `json:"type"`
	At           string          `json:"at"`
	EvaluationID *string         `json:"evaluationId"`
	Actor        Actor           `json:"actor"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e AuditEvent) MarshalJSON() ([]byte, error) {
	w := auditEventJSON{
		ID:           e.ID,
		Type:         e.Type,
		At:           FormatTime(e.OccurredAt),
		EvaluationID: nullable(e.EvaluationID),
		Actor:        e.Actor,
	}
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata.Fields())
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		w.Metadata = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. An unparseable "at" yields the zero time.
func (e *AuditEvent) UnmarshalJSON(data []byte) error {
	var w auditEventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = AuditEvent{
		ID:       w.ID,
		Type:     w.Type,
		Actor:    w.Actor,
		Metadata: DecodeMetadata(w.Type, w.Metadata),
	}
	if w.EvaluationID != nil {
		e.EvaluationID = *w.EvaluationID
	}
	if ts, err := ParseTime(w.At); err == nil {
		e.OccurredAt = ts
	}
	return nil
}

// FormatTime renders t as UTC RFC 3339 with nanoseconds; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses an RFC 3339 timestamp, with or without fractional seconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
