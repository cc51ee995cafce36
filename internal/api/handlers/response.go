package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
)

type errorBody struct {
	ErrorKey string `json:"error_key"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindNameConflict, apperrors.KindInvalidFormat, apperrors.KindInvalidReference:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into its status and keyed body. Untagged errors
// are reported as UNEXPECTED_ERROR without leaking their text.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	e, ok := apperrors.As(err)
	if !ok {
		e = apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
	}
	status := statusFor(e.Kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("error_key", e.Key),
			zap.String("kind", e.Kind.String()),
			zap.Error(err),
		)
	}
	body := errorBody{ErrorKey: e.Key, Message: e.Message, Detail: e.Detail}
	if e.Kind == apperrors.KindInternal || e.Kind == apperrors.KindStorage {
		body.Detail = ""
	}
	writeJSON(w, status, body)
}

// urlID parses a path parameter, writing the 400 for key when malformed.
func urlID(w http.ResponseWriter, r *http.Request, param, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{ErrorKey: key, Message: apperrors.MessageFor(key)})
		return uuid.Nil, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		detail := err.Error()
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			detail = "malformed JSON"
		}
		writeJSON(w, http.StatusBadRequest, errorBody{
			ErrorKey: apperrors.KeyInvalidBody,
			Message:  apperrors.MessageFor(apperrors.KeyInvalidBody),
			Detail:   detail,
		})
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, key, detail string) {
	writeJSON(w, http.StatusBadRequest, errorBody{ErrorKey: key, Message: apperrors.MessageFor(key), Detail: detail})
}
