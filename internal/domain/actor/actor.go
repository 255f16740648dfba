// Package actor resolves who performed an audited action.
//
// Nothing in this package authenticates anyone. Actor identity arrives already
// resolved (from request headers or a demo login) and is recorded as given.
package actor

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/evaldash/internal/domain/model"
)

// Request headers carrying an already-resolved actor.
const (
	HeaderID    = "X-Actor-Id"
	HeaderName  = "X-Actor-Name"
	HeaderEmail = "X-Actor-Email"
	HeaderRole  = "X-Actor-Role"
)

// User is a signed-in dashboard user.
type User struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

// FromUser converts u into an audit actor; nil yields the system actor.
func FromUser(u *User) model.Actor {
	if u == nil {
		return model.SystemActor()
	}
	return model.Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// FromHeaders reads the actor headers. Without an id, name or email the
// request is attributed to the system actor; an unknown role becomes system.
func FromHeaders(h http.Header) model.Actor {
	id := strings.TrimSpace(h.Get(HeaderID))
	name := strings.TrimSpace(h.Get(HeaderName))
	email := strings.TrimSpace(h.Get(HeaderEmail))
	if id == "" && name == "" && email == "" {
		return model.SystemActor()
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(h.Get(HeaderRole))))
	if !role.Valid() {
		role = model.RoleSystem
	}
	if name == "" {
		name = nameFromEmail(email)
	}
	return model.Actor{ID: id, Name: name, Email: email, Role: role}
}

// GuessRoleFromEmail maps an email to a role by substring: "admin" is admin,
// "coord" is coordinator, anything else is leader.
//
// This is a development convenience for the demo login. It is not an
// authorization mechanism and must not gate access to anything.
func GuessRoleFromEmail(email string) model.Role {
	lower := strings.ToLower(email)
	switch {
	case strings.Contains(lower, "admin"):
		return model.RoleAdmin
	case strings.Contains(lower, "coord"):
		return model.RoleCoordinator
	}
	return model.RoleLeader
}

// DemoLogin builds a user for the demo session flow. An empty name defaults
// to the local part of the email.
func DemoLogin(email, name string) User {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = nameFromEmail(email)
	}
	return User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  GuessRoleFromEmail(email),
	}
}

func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
