package fakeapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/evaldash/internal/domain/model"
)

// Collaborator routes served by Server.
const (
	RouteList     = "/teachers/evaluations"
	RouteDetail   = "/teachers/evaluations/{id}"
	RouteDecision = "/teachers/evaluations/{id}/decision"
)

// Server is an in-memory stand-in for the evaluation API.
type Server struct {
	mu      sync.RWMutex
	order   []string
	records map[string]model.EvaluationDetail

	latency  time.Duration
	failing  atomic.Bool
	requests atomic.Int64
	router   chi.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLatency delays every response, useful to observe request coalescing.
func WithLatency(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.latency = d
		}
	}
}

// NewServer serves records in the given order.
func NewServer(records []model.EvaluationDetail, opts ...ServerOption) *Server {
	s := &Server{records: make(map[string]model.EvaluationDetail, len(records))}
	for _, opt := range opts {
		opt(s)
	}
	for _, r := range records {
		if _, dup := s.records[r.ID]; !dup {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.gate)
	r.Get(RouteList, s.handleList)
	r.Get(RouteDetail, s.handleDetail)
	r.Post(RouteDecision, s.handleDecision)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetFailing makes every request answer 503 until reset.
func (s *Server) SetFailing(failing bool) { s.failing.Store(failing) }

// Requests reports how many requests reached the server.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Decision returns the stored decision status of id.
func (s *Server) Decision(id string) (model.DecisionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r.CoordinatorDecisionStatus, ok
}

func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		if s.failing.Load() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "servicio no disponible"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]model.EvaluationSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].EvaluationSummary)
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "evaluación no encontrada"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p model.DecisionPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || !p.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "estado de decisión inválido"})
		return
	}

	s.mu.Lock()
	rec, ok := s.records[id]
	if ok {
		rec.CoordinatorDecisionStatus = p.Status
		rec.CoordinatorComment = strings.TrimSpace(p.Comment)
		s.records[id] = rec
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "evaluación no encontrada"})
		return
	}
	writeJSON(w, http.StatusOK, rec.EvaluationSummary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
