package dedupe

import "errors"

// ErrInFlight is returned by Do when the key is still being processed.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

type options struct {
	maxSize int
}

// Option configures a Guard.
type Option func(*options)

// WithMaxSize sets how many completed keys are remembered.
// If maxSize <= 0 the guard is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}
