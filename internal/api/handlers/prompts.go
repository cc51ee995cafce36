package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/prompt"
)

type PromptHandler struct {
	svc    *prompt.Service
	logger *zap.Logger
}

func NewPromptHandler(svc *prompt.Service, logger *zap.Logger) *PromptHandler {
	return &PromptHandler{svc: svc, logger: logger}
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req prompt.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidPromptIDFormat)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) ListByTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := urlID(w, r, "template_id", apperrors.KeyInvalidTemplateIDFormat)
	if !ok {
		return
	}
	list, err := h.svc.ListByTemplate(r.Context(), templateID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Update returns the mutated prompt, or the new version when the body or
// model changed.
func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidPromptIDFormat)
	if !ok {
		return
	}
	var patch prompt.Patch
	if !decode(w, r, &patch) {
		return
	}
	p, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidPromptIDFormat)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Prompt deleted successfully"})
}
