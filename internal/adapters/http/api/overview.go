package api

import (
	"context"
	"net/http"

	service "github.com/okian/evaldash/internal/app"
)

// OverviewDependencies defines the admin dashboard operations.
type OverviewDependencies interface {
	AdminOverview(ctx context.Context, search, school string) (service.AdminOverview, error)
}

// OverviewHandler handles admin dashboard requests.
type OverviewHandler struct {
	deps OverviewDependencies
}

// NewOverviewHandler creates a new overview handler.
func NewOverviewHandler(deps OverviewDependencies) *OverviewHandler {
	return &OverviewHandler{deps: deps}
}

// HandleOverview handles GET /admin/overview?search=&school= requests.
func (h *OverviewHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.admin_overview"
	q := r.URL.Query()
	ov, err := h.deps.AdminOverview(r.Context(), q.Get("search"), q.Get("school"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}
