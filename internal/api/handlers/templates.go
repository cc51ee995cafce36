package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/template"
)

type TemplateHandler struct {
	svc    *template.Service
	logger *zap.Logger
}

func NewTemplateHandler(svc *template.Service, logger *zap.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req template.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidTemplateIDFormat)
	if !ok {
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := urlID(w, r, "project_id", apperrors.KeyInvalidProjectIDFormat)
	if !ok {
		return
	}
	list, err := h.svc.ListByProject(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidTemplateIDFormat)
	if !ok {
		return
	}
	var req template.UpdateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidTemplateIDFormat)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Prompt template deleted successfully"})
}
