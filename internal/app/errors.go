package service

import (
	"errors"

	"github.com/okian/evaldash/internal/domain/dedupe"
)

// Sentinel kinds returned by Service operations.
var (
	ErrNoSource         = errors.New("no evaluation source configured")
	ErrUnavailable      = errors.New("evaluations unavailable")
	ErrNotFound         = errors.New("evaluation not found")
	ErrInvalidEventType = errors.New("invalid audit event type")
	ErrInvalidDecision  = errors.New("invalid decision status")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrInvalidInput     = errors.New("invalid input")

	// ErrInProgress is returned when a write with the same idempotency key
	// has not finished yet.
	ErrInProgress = dedupe.ErrInFlight
)
