package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/evaluation"
	"github.com/nikhilbhutani/promptlab/internal/models"
)

type TestHandler struct {
	svc    *evaluation.Service
	logger *zap.Logger
}

func NewTestHandler(svc *evaluation.Service, logger *zap.Logger) *TestHandler {
	return &TestHandler{svc: svc, logger: logger}
}

type textTestBody struct {
	Name      string   `json:"name"`
	UserInput string   `json:"user_input"`
	PromptIDs []string `json:"prompt_ids"`
}

type imageTestResponse struct {
	Message string               `json:"message"`
	TestID  uuid.UUID            `json:"test_id"`
	Results []models.Association `json:"results"`
}

func (h *TestHandler) CreateText(w http.ResponseWriter, r *http.Request) {
	var body textTestBody
	if !decode(w, r, &body) {
		return
	}
	ids, ok := parsePromptIDs(w, body.PromptIDs)
	if !ok {
		return
	}
	created, err := h.svc.CreateTextTest(r.Context(), evaluation.TextTestRequest{
		Name: body.Name, UserInput: body.UserInput, PromptIDs: ids,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// CreateImage takes a multipart form: name, prompt_ids (a JSON array) and
// image.
func (h *TestHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "expected multipart form")
		return
	}
	var raw []string
	if err := json.Unmarshal([]byte(r.FormValue("prompt_ids")), &raw); err != nil {
		badRequest(w, apperrors.KeyInvalidPromptIDs, "prompt_ids must be a JSON array of ids")
		return
	}
	ids, ok := parsePromptIDs(w, raw)
	if !ok {
		return
	}
	image, ok := formImage(w, r)
	if !ok {
		return
	}

	created, err := h.svc.CreateImageTest(r.Context(), evaluation.ImageTestRequest{
		Name: r.FormValue("name"), Image: image, PromptIDs: ids,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, imageTestResponse{
		Message: "Image test created successfully",
		TestID:  created.ID,
		Results: created.Results,
	})
}

func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidTestIDFormat)
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

func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidTestIDFormat)
	if !ok {
		return
	}
	var req evaluation.UpdateRequest
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

func (h *TestHandler) DeleteAssociation(w http.ResponseWriter, r *http.Request) {
	testID, ok := urlID(w, r, "id", apperrors.KeyInvalidTestIDFormat)
	if !ok {
		return
	}
	promptID, ok := urlID(w, r, "prompt_id", apperrors.KeyInvalidPromptIDFormat)
	if !ok {
		return
	}
	msg, err := h.svc.DeleteAssociation(r.Context(), testID, promptID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

func (h *TestHandler) ListByPrompt(w http.ResponseWriter, r *http.Request) {
	promptID, ok := urlID(w, r, "id", apperrors.KeyInvalidPromptIDFormat)
	if !ok {
		return
	}
	list, err := h.svc.ListByPrompt(r.Context(), promptID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func parsePromptIDs(w http.ResponseWriter, raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			badRequest(w, apperrors.KeyInvalidPromptIDFormat, s)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
