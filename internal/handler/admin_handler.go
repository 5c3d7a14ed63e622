package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
	"github.com/formflow/dms/internal/workflow"
)

type AdminHandler struct {
	engine      *workflow.Engine
	submissions *repository.SubmissionRepo
}

func NewAdminHandler(engine *workflow.Engine, submissions *repository.SubmissionRepo) *AdminHandler {
	return &AdminHandler{engine: engine, submissions: submissions}
}

// Submissions lists all payload records for a template. Admin only.
func (h *AdminHandler) Submissions(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}
	subs, err := h.submissions.ListByTemplate(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// VerifyChain runs the audit walk over a chain and reports inconsistencies
// between the stored leaf pointer and the walked structure. Admin only.
func (h *AdminHandler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if actor.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}
	report, err := h.engine.VerifyChain(r.Context(), chi.URLParam(r, "assignmentId"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
