package prompt

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store"
)

type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

type CreateRequest struct {
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	Notes      string    `json:"notes"`
	Version    *float64  `json:"version,omitempty"`
	ModelID    uuid.UUID `json:"model_id"`
	TemplateID uuid.UUID `json:"template_id"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Prompt, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
	}
	var version float64
	if req.Version != nil {
		version = *req.Version
	}
	if !ValidVersion(version) {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyInvalidVersion).
			WithDetail("version %v", version)
	}

	p := &models.Prompt{
		Name:       name,
		Body:       req.Body,
		Notes:      req.Notes,
		Version:    version,
		ModelID:    req.ModelID,
		TemplateID: req.TemplateID,
	}

	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if err := tx.Templates().LockForUpdate(ctx, req.TemplateID); err != nil {
			return apperrors.Reference(err, apperrors.KeyInvalidTemplateReference)
		}
		if _, err := tx.ModelConfigs().Get(ctx, req.ModelID); err != nil {
			return apperrors.Reference(err, apperrors.KeyInvalidLLMReference)
		}
		taken, err := tx.Prompts().NameExists(ctx, name, uuid.Nil)
		if err != nil {
			return apperrors.FromStore(err, "", "")
		}
		if taken {
			return apperrors.New(apperrors.KindNameConflict, apperrors.KeyPromptNameExists)
		}
		if err := tx.Prompts().Create(ctx, p); err != nil {
			return apperrors.FromStore(err, "", apperrors.KeyPromptNameExists)
		}
		return apperrors.FromStore(tx.Templates().AdjustPromptCount(ctx, req.TemplateID, 1), "", "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prompt created",
		zap.String("prompt_id", p.ID.String()),
		zap.String("template_id", p.TemplateID.String()),
		zap.Float64("version", p.Version),
	)
	return s.Get(ctx, p.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	p, err := s.store.Prompts().Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyPromptNotFound, "")
	}
	return p, nil
}

func (s *Service) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Prompt, error) {
	prompts, err := s.store.Prompts().ListByTemplate(ctx, templateID)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return prompts, nil
}

// Update applies p to the prompt. A change of body or model forks a new
// version at max(version)+1 of the template's chain and leaves the
// original row untouched; any other change is written in place. The
// returned prompt is the forked or the mutated row.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p Patch) (*models.Prompt, error) {
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		if trimmed == "" {
			return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
		}
		p.Name = &trimmed
	}

	var (
		resultID uuid.UUID
		forked   bool
	)
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		cur, err := tx.Prompts().Get(ctx, id)
		if err != nil {
			return apperrors.FromStore(err, apperrors.KeyPromptNotFound, "")
		}
		if p.ModelID != nil && *p.ModelID != cur.ModelID {
			if _, err := tx.ModelConfigs().Get(ctx, *p.ModelID); err != nil {
				return apperrors.Reference(err, apperrors.KeyInvalidLLMReference)
			}
		}

		if p.ChangesContent(cur) {
			next, err := s.fork(ctx, tx, cur, p)
			if err != nil {
				return err
			}
			resultID, forked = next.ID, true
			return nil
		}

		if p.Name != nil && *p.Name != cur.Name {
			taken, err := tx.Prompts().NameExists(ctx, *p.Name, cur.ID)
			if err != nil {
				return apperrors.FromStore(err, "", "")
			}
			if taken {
				return apperrors.New(apperrors.KindNameConflict, apperrors.KeyPromptNameExists)
			}
		}
		ApplyInPlace(cur, p)
		if err := tx.Prompts().Update(ctx, cur); err != nil {
			return apperrors.FromStore(err, apperrors.KeyPromptNotFound, apperrors.KeyPromptNameExists)
		}
		resultID = cur.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if forked {
		s.logger.Info("prompt version forked",
			zap.String("from_prompt_id", id.String()),
			zap.String("prompt_id", resultID.String()),
		)
	}
	return s.Get(ctx, resultID)
}

// fork appends the next version to cur's chain. The template row lock
// serializes concurrent forks so no two read the same max version.
func (s *Service) fork(ctx context.Context, tx store.Repos, cur *models.Prompt, p Patch) (*models.Prompt, error) {
	if err := tx.Templates().LockForUpdate(ctx, cur.TemplateID); err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyTemplateNotFound, "")
	}
	maxVersion, err := tx.Prompts().MaxVersion(ctx, cur.TemplateID)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}

	if !ValidVersion(maxVersion + 1) {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyInvalidVersion).
			WithDetail("version chain is full at %v", maxVersion)
	}
	next := Fork(cur, p, maxVersion+1)
	if err := tx.Prompts().Create(ctx, next); err != nil {
		return nil, apperrors.FromStore(err, "", apperrors.KeyPromptNameExists)
	}
	if err := tx.Templates().AdjustPromptCount(ctx, cur.TemplateID, 1); err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return next, nil
}

// Delete removes the prompt and its test associations and decrements the
// template's prompt count.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		cur, err := tx.Prompts().Get(ctx, id)
		if err != nil {
			return apperrors.FromStore(err, apperrors.KeyPromptNotFound, "")
		}
		if err := store.PurgePrompt(ctx, tx, id); err != nil {
			return apperrors.FromStore(err, apperrors.KeyPromptNotFound, "")
		}
		return apperrors.FromStore(tx.Templates().AdjustPromptCount(ctx, cur.TemplateID, -1), "", "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("prompt deleted", zap.String("prompt_id", id.String()))
	return nil
}
