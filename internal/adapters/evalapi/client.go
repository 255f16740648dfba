// Package evalapi is the HTTP client for the evaluation API that owns
// evaluations and coordinator decisions.
package evalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/pkg/logger"
	"github.com/okian/evaldash/pkg/metrics"
)

// Metric route labels.
const (
	routeList     = "list"
	routeDetail   = "detail"
	routeDecision = "decision"
)

const evaluationsPath = "/teachers/evaluations"

// Client talks to the evaluation API. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	log     logger.Logger

	list singleflight.Group
}

// New builds a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidInput, baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{},
		timeout: DefaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListEvaluations fetches every evaluation summary. Concurrent callers share
// a single in-flight request.
func (c *Client) ListEvaluations(ctx context.Context) ([]model.EvaluationSummary, error) {
	ch := c.list.DoChan(routeList, func() (any, error) {
		// Detached so one caller giving up does not fail the others.
		fctx := context.WithoutCancel(ctx)
		out, err := doJSON[[]model.EvaluationSummary](c, fctx, http.MethodGet, routeList, evaluationsPath, nil)
		if err != nil {
			return nil, err
		}
		return *out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]model.EvaluationSummary)
		out := make([]model.EvaluationSummary, len(shared))
		for i := range shared {
			out[i] = shared[i].Clone()
		}
		return out, nil
	}
}

// GetEvaluationDetail fetches one evaluation. A missing id matches ErrNotFound.
func (c *Client) GetEvaluationDetail(ctx context.Context, id string) (model.EvaluationDetail, error) {
	if strings.TrimSpace(id) == "" {
		return model.EvaluationDetail{}, fmt.Errorf("%w: empty evaluation id", ErrInvalidInput)
	}
	out, err := doJSON[model.EvaluationDetail](c, ctx, http.MethodGet, routeDetail, evaluationPath(id), nil)
	if err != nil {
		return model.EvaluationDetail{}, err
	}
	return *out, nil
}

// SubmitDecision records the coordinator decision upstream.
func (c *Client) SubmitDecision(ctx context.Context, id string, p model.DecisionPayload) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty evaluation id", ErrInvalidInput)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: decision status %q", ErrInvalidInput, p.Status)
	}
	_, err := doJSON[json.RawMessage](c, ctx, http.MethodPost, routeDecision, evaluationPath(id)+"/decision", p)
	return err
}

func evaluationPath(id string) string {
	return evaluationsPath + "/" + url.PathEscape(id)
}

func doJSON[T any](c *Client, ctx context.Context, method, route, path string, body any) (*T, error) {
	start := time.Now()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("%w: encode body: %v", ErrInvalidInput, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrInvalidInput, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordCollaboratorError(route, "transport")
		c.log.Warn(ctx, "evaluation api unreachable",
			logger.String("route", route),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	metrics.RecordCollaboratorRequest(route, strconv.Itoa(resp.StatusCode), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordCollaboratorError(route, "read")
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrUpstream, route, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordCollaboratorError(route, "status")
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &StatusError{Route: route, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		metrics.RecordCollaboratorError(route, "decode")
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, route, err)
	}
	return &out, nil
}

// IsNotFound reports whether err means the evaluation does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
