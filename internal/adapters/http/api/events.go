// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/evaldash/internal/adapters/repository"
	"github.com/okian/evaldash/internal/domain/actor"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/domain/timeline"
)

// maxListLimit caps the limit query parameter; larger values are clamped.
const maxListLimit = repository.DefaultMaxEvents

// EventDependencies defines the audit operations the events handler needs.
type EventDependencies interface {
	RecordEventOnce(ctx context.Context, key string, in repository.AppendInput) (model.AuditEvent, bool, error)
	ListEvents(ctx context.Context, f repository.ListFilter) []model.AuditEvent
	ClearEvents(ctx context.Context)
	Timeline(ctx context.Context, f repository.ListFilter, loc *time.Location) []timeline.Day
}

// EventsHandler handles audit log requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// appendEventRequest is the body of POST /audit/events.
type appendEventRequest struct {
	Type         string          `json:"type"`
	EvaluationID *string         `json:"evaluationId"`
	Metadata     json.RawMessage `json:"metadata"`
}

func (e appendEventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	case !model.EventType(e.Type).Valid():
		return errors.New("unknown event type " + strconv.Quote(e.Type))
	}
	raw := bytes.TrimSpace(e.Metadata)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && raw[0] != '{' {
		return errors.New("metadata must be an object")
	}
	return nil
}

type eventsResponse struct {
	Events []model.AuditEvent `json:"events"`
	Count  int                `json:"count"`
}

type timelineResponse struct {
	TimeZone string         `json:"timeZone"`
	Days     []timeline.Day `json:"days"`
}

// HandlePostEvent handles POST /audit/events requests. The actor comes from
// the actor headers. Retries carrying the same Idempotency-Key replay the
// first event with 200.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	var req appendEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	t := model.EventType(req.Type)
	in := repository.AppendInput{
		Type:     t,
		Actor:    actor.FromHeaders(r.Header),
		Metadata: model.DecodeMetadata(t, req.Metadata),
	}
	if req.EvaluationID != nil {
		in.EvaluationID = *req.EvaluationID
	}

	ev, replayed, err := h.deps.RecordEventOnce(r.Context(), r.Header.Get(headerIdempotencyKey), in)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeReplayable(w, http.StatusCreated, replayed, ev)
}

// HandleListEvents handles GET /audit/events?evaluation_id=&limit= requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	f, code, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}
	events := h.deps.ListEvents(r.Context(), f)
	if events == nil {
		events = []model.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

// HandleClearEvents handles DELETE /audit/events requests.
func (h *EventsHandler) HandleClearEvents(w http.ResponseWriter, r *http.Request) {
	h.deps.ClearEvents(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// HandleTimeline handles GET /audit/timeline?evaluation_id=&limit=&tz= requests.
// Without tz the service display zone is used.
func (h *EventsHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.timeline"
	f, code, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}

	var loc *time.Location
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	days := h.deps.Timeline(r.Context(), f, loc)
	if days == nil {
		days = []timeline.Day{}
	}
	resp := timelineResponse{Days: days}
	if loc != nil {
		resp.TimeZone = loc.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseListFilter(r *http.Request) (repository.ListFilter, string, error) {
	q := r.URL.Query()
	f := repository.ListFilter{EvaluationID: strings.TrimSpace(q.Get("evaluation_id"))}

	limitStr := strings.TrimSpace(q.Get("limit"))
	if limitStr == "" {
		return f, "", nil
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		return f, "bad_request", errors.New("limit must be a positive integer")
	}
	f.Limit = min(n, maxListLimit)
	return f, "", nil
}
