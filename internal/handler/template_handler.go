package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formflow/dms/internal/service"
)

type TemplateHandler struct {
	svc *service.TemplateService
}

func NewTemplateHandler(svc *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{svc: svc}
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var in service.TemplateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tpl, err := h.svc.Create(r.Context(), actor.ID, in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.svc.Get(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var in service.TemplateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tpl, err := h.svc.Update(r.Context(), actor, chi.URLParam(r, "templateId"), in)
	if err != nil {
		writeError(w, templateErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Stop(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	tpl, err := h.svc.Stop(r.Context(), actor, chi.URLParam(r, "templateId"))
	if err != nil {
		writeError(w, templateErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "templateId")); err != nil {
		writeError(w, templateErrStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *TemplateHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Recipients(r.Context(), chi.URLParam(r, "templateId"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func templateErrStatus(err error) int {
	if errors.Is(err, service.ErrPermissionDenied) {
		return http.StatusForbidden
	}
	return http.StatusNotFound
}
