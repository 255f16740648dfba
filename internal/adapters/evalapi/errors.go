package evalapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for collaborator failures.
var (
	ErrUpstream     = errors.New("evaluation api request failed")
	ErrNotFound     = errors.New("evaluation not found")
	ErrDecode       = errors.New("evaluation api response undecodable")
	ErrInvalidInput = errors.New("invalid evaluation api input")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Route      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("evaluation api %s: http %d: %s", e.Route, e.StatusCode, e.Body)
}

// Is matches ErrUpstream for every status and ErrNotFound for 404.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}
