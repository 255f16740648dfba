package evalapi

import (
	"net/http"
	"time"

	"github.com/okian/evaldash/pkg/logger"
)

// DefaultTimeout bounds every collaborator request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
