package modelconfig

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/llm"
)

// ConverseRequest is a one-off call that is not persisted. With Image set
// Prompt travels with the image in the user turn and UserInput is unused.
type ConverseRequest struct {
	LLMID     uuid.UUID `json:"llm_id"`
	Prompt    string    `json:"prompt"`
	UserInput string    `json:"user_input"`
	Image     []byte    `json:"-"`
	llm.Params
}

func (s *Service) Converse(ctx context.Context, req ConverseRequest) (*llm.Result, error) {
	var format string
	if req.Image != nil {
		f, err := llm.DetectImageFormat(req.Image)
		if err != nil {
			return nil, err
		}
		format = f
	}

	m, err := s.Get(ctx, req.LLMID)
	if err != nil {
		return nil, err
	}
	if err := Unseal(s.cipher, m); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
	}

	res, err := s.gateway.Invoke(ctx, llm.Request{
		Model:       *m,
		Prompt:      req.Prompt,
		UserInput:   req.UserInput,
		Image:       req.Image,
		ImageFormat: format,
		Params:      req.Params,
	})
	if err != nil {
		s.logger.Error("conversation failed", zap.String("llm_id", m.ID.String()), zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindInferenceFailure, apperrors.KeyConversationError, err)
	}
	return res, nil
}
