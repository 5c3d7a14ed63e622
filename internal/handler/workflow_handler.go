package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formflow/dms/internal/repository"
	"github.com/formflow/dms/internal/workflow"
)

type WorkflowHandler struct {
	engine *workflow.Engine
}

func NewWorkflowHandler(engine *workflow.Engine) *WorkflowHandler {
	return &WorkflowHandler{engine: engine}
}

func (h *WorkflowHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req workflow.SaveDraftRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, sub, err := h.engine.SaveDraft(r.Context(), actor, req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignment": a, "submission": sub})
}

func (h *WorkflowHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req workflow.DelegateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	child, err := h.engine.Delegate(r.Context(), actor, req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

func (h *WorkflowHandler) MarkFinal(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req struct {
		AssignmentID string `json:"assignmentId"`
		Remarks      string `json:"remarks,omitempty"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.engine.MarkFinal(r.Context(), actor, req.AssignmentID, req.Remarks)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *WorkflowHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req workflow.ApproveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.engine.Approve(r.Context(), actor, req)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *WorkflowHandler) MarkBack(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req struct {
		AssignmentID  string `json:"assignmentId"`
		TargetActorID string `json:"targetActorId"`
		Remarks       string `json:"remarks,omitempty"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.engine.MarkBack(r.Context(), actor, req.AssignmentID, req.TargetActorID, req.Remarks)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *WorkflowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req struct {
		AssignmentID string `json:"assignmentId"`
		Remarks      string `json:"remarks,omitempty"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.engine.SubmitToDistributor(r.Context(), actor, req.AssignmentID, req.Remarks)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *WorkflowHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	list, err := h.engine.Assignments(r.Context(), actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assignments")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *WorkflowHandler) ApprovalTargets(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	targets, err := h.engine.ApprovalTargets(r.Context(), actor, chi.URLParam(r, "assignmentId"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (h *WorkflowHandler) Chain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.engine.Chain(r.Context(), chi.URLParam(r, "assignmentId"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

func (h *WorkflowHandler) ChainByData(w http.ResponseWriter, r *http.Request) {
	chain, err := h.engine.ChainByDataID(r.Context(), chi.URLParam(r, "submissionId"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chain)
}

// writeWorkflowError maps engine sentinels onto HTTP statuses. Stale-holder
// and stale-state conditions are conflicts; bad targets are unprocessable.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrDelegationNotAllowed),
		errors.Is(err, workflow.ErrApprovalNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrNotCurrentHolder),
		errors.Is(err, workflow.ErrAlreadyFinalized),
		errors.Is(err, workflow.ErrChainClosed),
		errors.Is(err, workflow.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrInvalidTarget),
		errors.Is(err, workflow.ErrValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, workflow.ErrTemplateInactive):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
