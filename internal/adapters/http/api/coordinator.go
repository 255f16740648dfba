package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/evaldash/internal/app"
	"github.com/okian/evaldash/internal/domain/actor"
	"github.com/okian/evaldash/internal/domain/aggregate"
	"github.com/okian/evaldash/internal/domain/model"
)

// defaultOpenSource tags EVALUATION_OPENED when the caller names no source.
const defaultOpenSource = "coordinator_detail"

// CoordinatorDependencies defines the coordinator dashboard operations.
type CoordinatorDependencies interface {
	CoordinatorList(ctx context.Context, search string, decision aggregate.DecisionFilter) (service.CoordinatorView, error)
	OpenEvaluation(ctx context.Context, a model.Actor, id, source string) (model.EvaluationDetail, error)
	SetDecisionOnce(ctx context.Context, key string, a model.Actor, id string, status model.DecisionStatus, comment string) (service.DecisionResult, bool, error)
}

// CoordinatorHandler handles coordinator dashboard requests.
type CoordinatorHandler struct {
	deps CoordinatorDependencies
}

// NewCoordinatorHandler creates a new coordinator handler.
func NewCoordinatorHandler(deps CoordinatorDependencies) *CoordinatorHandler {
	return &CoordinatorHandler{deps: deps}
}

// HandleList handles GET /coordinator/evaluations?search=&decision= requests.
func (h *CoordinatorHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.coordinator_list"
	q := r.URL.Query()
	view, err := h.deps.CoordinatorList(r.Context(), q.Get("search"), aggregate.DecisionFilter(q.Get("decision")))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleDetail handles GET /coordinator/evaluations/{id} requests and records
// that the header actor opened the evaluation.
func (h *CoordinatorHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	const op = "api.coordinator_detail"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = defaultOpenSource
	}
	detail, err := h.deps.OpenEvaluation(r.Context(), actor.FromHeaders(r.Header), id, source)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleDecision handles POST /coordinator/evaluations/{id}/decision requests.
func (h *CoordinatorHandler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	const op = "api.coordinator_decision"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	var req model.DecisionPayload
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Status = model.DecisionStatus(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	key := r.Header.Get(headerIdempotencyKey)
	res, replayed, err := h.deps.SetDecisionOnce(r.Context(), key, actor.FromHeaders(r.Header), id, req.Status, req.Comment)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeReplayable(w, http.StatusOK, replayed, res)
}
