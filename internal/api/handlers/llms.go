package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/modelconfig"
)

const maxUploadBytes = 20 << 20

type LLMHandler struct {
	svc    *modelconfig.Service
	logger *zap.Logger
}

func NewLLMHandler(svc *modelconfig.Service, logger *zap.Logger) *LLMHandler {
	return &LLMHandler{svc: svc, logger: logger}
}

func (h *LLMHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req modelconfig.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *LLMHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidLLMIDFormat)
	if !ok {
		return
	}
	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *LLMHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *LLMHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidLLMIDFormat)
	if !ok {
		return
	}
	var req modelconfig.UpdateRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *LLMHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", apperrors.KeyInvalidLLMIDFormat)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "LLM deleted successfully"})
}

func (h *LLMHandler) Converse(w http.ResponseWriter, r *http.Request) {
	var req modelconfig.ConverseRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Converse(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ConverseImage takes a multipart form: llm_id, prompt, image and the
// optional max_tokens, temperature and top_p.
func (h *LLMHandler) ConverseImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "expected multipart form")
		return
	}
	llmID, err := uuid.Parse(r.FormValue("llm_id"))
	if err != nil {
		badRequest(w, apperrors.KeyInvalidLLMIDFormat, "")
		return
	}
	image, ok := formImage(w, r)
	if !ok {
		return
	}

	req := modelconfig.ConverseRequest{LLMID: llmID, Prompt: r.FormValue("prompt"), Image: image}
	if req.MaxTokens, err = formInt(r, "max_tokens"); err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "max_tokens must be an integer")
		return
	}
	if req.Temperature, err = formFloat(r, "temperature"); err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "temperature must be a number")
		return
	}
	if req.TopP, err = formFloat(r, "top_p"); err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "top_p must be a number")
		return
	}

	res, err := h.svc.Converse(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// formImage reads the "image" file of a parsed multipart form.
func formImage(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	f, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			badRequest(w, apperrors.KeyImageRequired, "")
		} else {
			badRequest(w, apperrors.KeyInvalidBody, "unreadable image part")
		}
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(w, apperrors.KeyInvalidBody, "unreadable image part")
		return nil, false
	}
	return data, true
}

// formInt returns nil when the field is absent so the gateway default
// applies.
func formInt(r *http.Request, key string) (*int, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func formFloat(r *http.Request, key string) (*float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
