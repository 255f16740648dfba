// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/evaldash/internal/adapters/http/swagger"
	"github.com/okian/evaldash/internal/adapters/repository"
	service "github.com/okian/evaldash/internal/app"
	"github.com/okian/evaldash/internal/domain/actor"
	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/model"
	"github.com/okian/evaldash/internal/domain/timeline"
	"github.com/okian/evaldash/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	AdminOverview(ctx context.Context, search, school string) (service.AdminOverview, error)
	CoordinatorList(ctx context.Context, search string, decision aggregate.DecisionFilter) (service.CoordinatorView, error)
	OpenEvaluation(ctx context.Context, a model.Actor, id, source string) (model.EvaluationDetail, error)
	SetDecisionOnce(ctx context.Context, key string, a model.Actor, id string, status model.DecisionStatus, comment string) (service.DecisionResult, bool, error)

	RecordEventOnce(ctx context.Context, key string, in repository.AppendInput) (model.AuditEvent, bool, error)
	ListEvents(ctx context.Context, f repository.ListFilter) []model.AuditEvent
	ClearEvents(ctx context.Context)
	Timeline(ctx context.Context, f repository.ListFilter, loc *time.Location) []timeline.Day

	Login(ctx context.Context, email, name string) (actor.User, model.AuditEvent, error)
	Logout(ctx context.Context, a model.Actor) model.AuditEvent
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLogger sets the access and error logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	origins []string
	log     logger.Logger

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionHandler     *SessionHandler
	eventsHandler      *EventsHandler
	overviewHandler    *OverviewHandler
	coordinatorHandler *CoordinatorHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		origins: []string{"*"},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.sessionHandler = NewSessionHandler(deps)
	s.eventsHandler = NewEventsHandler(deps)
	s.overviewHandler = NewOverviewHandler(deps)
	s.coordinatorHandler = NewCoordinatorHandler(deps)
	return s
}

// Router builds the chi router with middleware and every route attached.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Content-Type", "X-Request-ID", headerIdempotencyKey,
			actor.HeaderID, actor.HeaderName, actor.HeaderEmail, actor.HeaderRole,
		},
		ExposedHeaders: []string{"X-Request-ID", headerIdempotentReplay},
		MaxAge:         300,
	}))

	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	swagger.Register(ctx, r)

	r.Route("/session", func(r chi.Router) {
		r.Post("/login", MetricsMiddleware(s.sessionHandler.HandleLogin, "session_login"))
		r.Post("/logout", MetricsMiddleware(s.sessionHandler.HandleLogout, "session_logout"))
	})

	r.Route("/audit", func(r chi.Router) {
		r.Get("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "audit_events"))
		r.Post("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "audit_events"))
		r.Delete("/events", MetricsMiddleware(s.eventsHandler.HandleClearEvents, "audit_events"))
		r.Get("/timeline", MetricsMiddleware(s.eventsHandler.HandleTimeline, "audit_timeline"))
	})

	r.Get("/admin/overview", MetricsMiddleware(s.overviewHandler.HandleOverview, "admin_overview"))

	r.Route("/coordinator/evaluations", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.coordinatorHandler.HandleList, "coordinator_list"))
		r.Get("/{id}", MetricsMiddleware(s.coordinatorHandler.HandleDetail, "coordinator_detail"))
		r.Post("/{id}/decision", MetricsMiddleware(s.coordinatorHandler.HandleDecision, "coordinator_decision"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidDecision),
		errors.Is(err, service.ErrInvalidEventType),
		errors.Is(err, service.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrInProgress):
		writeError(w, http.StatusConflict, "in_progress", WrapKind(op, ErrConflict, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", WrapKind(op, ErrTimeout, err))
	case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrNoSource):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
	}
}

// Idempotency headers for retried writes.
const (
	headerIdempotencyKey   = "Idempotency-Key"
	headerIdempotentReplay = "Idempotent-Replayed"
)

// writeReplayable writes v with status, or 200 with the replay header when the
// result came from an earlier request with the same idempotency key.
func writeReplayable(w http.ResponseWriter, status int, replayed bool, v any) {
	if replayed {
		w.Header().Set(headerIdempotentReplay, "true")
		status = http.StatusOK
	}
	writeJSON(w, status, v)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}
