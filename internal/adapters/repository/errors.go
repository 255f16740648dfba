package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound           = errors.New("key not found")
	ErrQuotaExceeded      = errors.New("storage quota exceeded")
	ErrCorrupt            = errors.New("stored audit log is corrupt")
	ErrUnsupportedVersion = errors.New("unsupported audit log version")
)
