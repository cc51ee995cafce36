// Package evaluation creates tests by running a user input (text or image)
// through one or more prompts and records one association per pair.
package evaluation

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/crypto"
	"github.com/nikhilbhutani/promptlab/internal/llm"
	"github.com/nikhilbhutani/promptlab/internal/modelconfig"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store"
	"github.com/nikhilbhutani/promptlab/pkg/tokenizer"
)

// Outcome messages returned by DeleteAssociation.
const (
	MsgDeletedWithSingleAssociation = "Test and its single association deleted successfully"
	MsgAssociationDeleted           = "One association deleted, test retained due to multiple associations"
	MsgDeletedWithoutAssociations   = "Test deleted successfully (no associations found)"
)

type Service struct {
	store   store.Store
	gateway llm.Gateway
	cipher  crypto.Cipher
	tokens  tokenizer.Counter
	logger  *zap.Logger
}

func NewService(st store.Store, gw llm.Gateway, cipher crypto.Cipher, tokens tokenizer.Counter, logger *zap.Logger) *Service {
	return &Service{store: st, gateway: gw, cipher: cipher, tokens: tokens, logger: logger}
}

type TextTestRequest struct {
	Name      string      `json:"name"`
	UserInput string      `json:"user_input"`
	PromptIDs []uuid.UUID `json:"prompt_ids"`
}

type ImageTestRequest struct {
	Name      string
	Image     []byte
	PromptIDs []uuid.UUID
}

type UpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	UserInput *string `json:"user_input,omitempty"`
}

// Created is a new test with its results in prompt order.
type Created struct {
	models.Test
	Results []models.Association `json:"results"`
}

func (s *Service) CreateTextTest(ctx context.Context, req TextTestRequest) (*Created, error) {
	name, err := validate(req.Name, req.PromptIDs)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, &models.Test{Name: name, UserInput: req.UserInput}, req.PromptIDs, "")
}

func (s *Service) CreateImageTest(ctx context.Context, req ImageTestRequest) (*Created, error) {
	name, err := validate(req.Name, req.PromptIDs)
	if err != nil {
		return nil, err
	}
	format, err := llm.DetectImageFormat(req.Image)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, &models.Test{Name: name, Image: req.Image}, req.PromptIDs, format)
}

func validate(name string, promptIDs []uuid.UUID) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
	}
	if len(promptIDs) == 0 {
		return "", apperrors.New(apperrors.KindInvalidReference, apperrors.KeyInvalidPromptIDs).
			WithDetail("no prompt ids given")
	}
	seen := make(map[uuid.UUID]bool, len(promptIDs))
	for _, id := range promptIDs {
		if seen[id] {
			return "", apperrors.New(apperrors.KindInvalidReference, apperrors.KeyInvalidPromptIDs).
				WithDetail("duplicate prompt id %s", id)
		}
		seen[id] = true
	}
	return name, nil
}

// create writes the test and one association per prompt in a single
// transaction. Prompts are invoked sequentially in the order given; the
// first failure rolls back everything written for the test.
func (s *Service) create(ctx context.Context, test *models.Test, promptIDs []uuid.UUID, imageFormat string) (*Created, error) {
	out := &Created{}
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		prompts, err := resolvePrompts(ctx, tx, promptIDs)
		if err != nil {
			return err
		}
		if err := tx.Tests().Create(ctx, test); err != nil {
			return apperrors.FromStore(err, "", "")
		}

		results := make([]models.Association, 0, len(prompts))
		for _, p := range prompts {
			a, err := s.invoke(ctx, tx, test, p, imageFormat)
			if err != nil {
				return err
			}
			if err := tx.Tests().AddAssociation(ctx, a); err != nil {
				return apperrors.FromStore(err, "", "")
			}
			results = append(results, *a)
		}
		out.Test, out.Results = *test, results
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("test created",
		zap.String("test_id", out.ID.String()),
		zap.Int("prompts", len(out.Results)),
		zap.Bool("image", imageFormat != ""),
	)
	return out, nil
}

func resolvePrompts(ctx context.Context, tx store.Repos, ids []uuid.UUID) ([]*models.Prompt, error) {
	prompts := make([]*models.Prompt, 0, len(ids))
	var missing []string
	for _, id := range ids {
		p, err := tx.Prompts().Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				missing = append(missing, id.String())
				continue
			}
			return nil, apperrors.FromStore(err, "", "")
		}
		prompts = append(prompts, p)
	}
	if len(missing) > 0 {
		return nil, apperrors.New(apperrors.KindInvalidReference, apperrors.KeyInvalidPromptIDs).
			WithDetail("unknown prompt ids: %s", strings.Join(missing, ", "))
	}
	return prompts, nil
}

func (s *Service) invoke(ctx context.Context, tx store.Repos, test *models.Test, p *models.Prompt, imageFormat string) (*models.Association, error) {
	m, err := tx.ModelConfigs().Get(ctx, p.ModelID)
	if err != nil {
		return nil, apperrors.Reference(err, apperrors.KeyInvalidLLMReference)
	}
	if err := modelconfig.Unseal(s.cipher, m); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
	}

	req := llm.Request{Model: *m, Prompt: p.Body, UserInput: test.UserInput}
	if imageFormat != "" {
		req.UserInput = ""
		req.Image, req.ImageFormat = test.Image, imageFormat
	}

	res, err := s.gateway.Invoke(ctx, req)
	if err != nil {
		s.logger.Error("model call failed",
			zap.String("prompt_id", p.ID.String()),
			zap.String("llm_id", m.ID.String()),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(apperrors.KindInferenceFailure, apperrors.KeyConversationError, err).
			WithDetail("prompt %s", p.ID)
	}

	a := &models.Association{
		TestID:       test.ID,
		PromptID:     p.ID,
		ResponseText: res.Text,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		TotalTokens:  res.TotalTokens,
		LatencyMs:    res.LatencyMs,
		PromptTokens: s.tokens.Count(p.Body),
	}
	if imageFormat == "" {
		n := s.tokens.Count(test.UserInput)
		a.UserInputTokens = &n
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	t, err := s.store.Tests().Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyTestNotFound, "")
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.Test, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
		}
		t.Name = name
	}
	if req.UserInput != nil {
		t.UserInput = *req.UserInput
	}
	if err := s.store.Tests().Update(ctx, t); err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyTestNotFound, "")
	}
	return t, nil
}

// ListByPrompt returns the tests run against a prompt, each joined with
// that prompt's result, newest first.
func (s *Service) ListByPrompt(ctx context.Context, promptID uuid.UUID) ([]models.TestResult, error) {
	list, err := s.store.Tests().ListByPrompt(ctx, promptID)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return list, nil
}

// DeleteAssociation removes one test/prompt pairing. A test left with no
// associations is deleted with it; a test that had none is deleted
// outright.
func (s *Service) DeleteAssociation(ctx context.Context, testID, promptID uuid.UUID) (string, error) {
	var msg string
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.Tests().Get(ctx, testID); err != nil {
			return apperrors.FromStore(err, apperrors.KeyTestNotFound, "")
		}
		n, err := tx.Tests().CountAssociations(ctx, testID)
		if err != nil {
			return apperrors.FromStore(err, "", "")
		}
		if n == 0 {
			msg = MsgDeletedWithoutAssociations
			return apperrors.FromStore(tx.Tests().Delete(ctx, testID), apperrors.KeyTestNotFound, "")
		}

		ok, err := tx.Tests().AssociationExists(ctx, testID, promptID)
		if err != nil {
			return apperrors.FromStore(err, "", "")
		}
		if !ok {
			return apperrors.New(apperrors.KindNotFound, apperrors.KeyAssociationNotFound)
		}
		if err := tx.Tests().DeleteAssociation(ctx, testID, promptID); err != nil {
			return apperrors.FromStore(err, apperrors.KeyAssociationNotFound, "")
		}
		if n == 1 {
			msg = MsgDeletedWithSingleAssociation
			return apperrors.FromStore(tx.Tests().Delete(ctx, testID), apperrors.KeyTestNotFound, "")
		}
		msg = MsgAssociationDeleted
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("association deleted",
		zap.String("test_id", testID.String()),
		zap.String("prompt_id", promptID.String()),
		zap.String("outcome", msg),
	)
	return msg, nil
}
