// Package repository persists the audit log over a pluggable durable medium.
package repository

import (
	"context"

	"github.com/okian/evaldash/internal/domain/model"
)

// Medium is a durable key/value namespace. Implementations must be safe for
// concurrent use; the audit store only ever touches one key.
type Medium interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the stored value. A full medium returns ErrQuotaExceeded.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// AuditLog is the append-only audit trail.
type AuditLog interface {
	// Append records a new event and returns it. Persistence is best effort;
	// Append never fails.
	Append(ctx context.Context, in AppendInput) model.AuditEvent
	// List returns matching events, newest first.
	List(ctx context.Context, f ListFilter) []model.AuditEvent
	// Clear removes every persisted event.
	Clear(ctx context.Context)
}

// AppendInput is what a caller supplies; id and timestamp are assigned by the store.
type AppendInput struct {
	Type         model.EventType
	Actor        model.Actor
	EvaluationID string
	Metadata     model.Metadata
}

// ListFilter narrows List. A zero Limit uses the store default.
type ListFilter struct {
	EvaluationID string
	Limit        int
}
