package api

import (
	"context"
	"net/http"

	"github.com/okian/evaldash/internal/domain/actor"
	"github.com/okian/evaldash/internal/domain/model"
)

// SessionDependencies defines the demo session operations.
type SessionDependencies interface {
	Login(ctx context.Context, email, name string) (actor.User, model.AuditEvent, error)
	Logout(ctx context.Context, a model.Actor) model.AuditEvent
}

// SessionHandler handles the demo login flow. It issues no credentials.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type loginResponse struct {
	User  actor.User       `json:"user"`
	Event model.AuditEvent `json:"event"`
}

type logoutResponse struct {
	Event model.AuditEvent `json:"event"`
}

// HandleLogin handles POST /session/login requests.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	u, ev, err := h.deps.Login(r.Context(), req.Email, req.Name)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: u, Event: ev})
}

// HandleLogout handles POST /session/logout requests for the header actor.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ev := h.deps.Logout(r.Context(), actor.FromHeaders(r.Header))
	writeJSON(w, http.StatusOK, logoutResponse{Event: ev})
}
