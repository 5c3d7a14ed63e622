package handler

import (
	"net/http"

	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
	"github.com/formflow/dms/internal/workflow"
)

type DashboardHandler struct {
	engine      *workflow.Engine
	templates   *repository.TemplateRepo
	assignments *repository.AssignmentRepo
}

func NewDashboardHandler(engine *workflow.Engine, templates *repository.TemplateRepo, assignments *repository.AssignmentRepo) *DashboardHandler {
	return &DashboardHandler{engine: engine, templates: templates, assignments: assignments}
}

type dashboardResponse struct {
	TemplateCount int                              `json:"templateCount"`
	StatusCounts  map[models.AssignmentStatus]int  `json:"statusCounts"`
	Assignments   []models.Assignment              `json:"assignments"`
}

// Dashboard returns the caller's work queue together with portal-wide counts.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	templateCount, err := h.templates.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	statusCounts, err := h.assignments.CountByStatus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	queue, err := h.engine.Assignments(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TemplateCount: templateCount,
		StatusCounts:  statusCounts,
		Assignments:   queue,
	})
}
