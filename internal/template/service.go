package template

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
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ProjectID   uuid.UUID `json:"project_id"`
}

type UpdateRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.PromptTemplate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
	}
	t := &models.PromptTemplate{Name: name, Description: req.Description, ProjectID: req.ProjectID}

	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.Projects().Get(ctx, req.ProjectID); err != nil {
			return apperrors.Reference(err, apperrors.KeyInvalidProjectReference)
		}
		taken, err := tx.Templates().NameExists(ctx, name, uuid.Nil)
		if err != nil {
			return apperrors.FromStore(err, "", "")
		}
		if taken {
			return apperrors.New(apperrors.KindNameConflict, apperrors.KeyTemplateNameExists)
		}
		return apperrors.FromStore(tx.Templates().Create(ctx, t), "", apperrors.KeyTemplateNameExists)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("prompt template created",
		zap.String("template_id", t.ID.String()),
		zap.String("project_id", t.ProjectID.String()),
	)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	t, err := s.store.Templates().Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyTemplateNotFound, "")
	}
	return t, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.PromptTemplate, error) {
	if _, err := s.store.Projects().Get(ctx, projectID); err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyProjectNotFound, "")
	}
	list, err := s.store.Templates().ListByProject(ctx, projectID)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.PromptTemplate, error) {
	var out *models.PromptTemplate
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		t, err := tx.Templates().Get(ctx, id)
		if err != nil {
			return apperrors.FromStore(err, apperrors.KeyTemplateNotFound, "")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
			}
			if name != t.Name {
				taken, err := tx.Templates().NameExists(ctx, name, id)
				if err != nil {
					return apperrors.FromStore(err, "", "")
				}
				if taken {
					return apperrors.New(apperrors.KindNameConflict, apperrors.KeyTemplateNameExists)
				}
			}
			t.Name = name
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.ProjectID != nil && *req.ProjectID != t.ProjectID {
			if _, err := tx.Projects().Get(ctx, *req.ProjectID); err != nil {
				return apperrors.Reference(err, apperrors.KeyInvalidProjectReference)
			}
			t.ProjectID = *req.ProjectID
		}
		if err := tx.Templates().Update(ctx, t); err != nil {
			return apperrors.FromStore(err, apperrors.KeyTemplateNotFound, apperrors.KeyTemplateNameExists)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the template, every prompt in its version chain and their
// test associations.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var prompts int
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.Templates().Get(ctx, id); err != nil {
			return apperrors.FromStore(err, apperrors.KeyTemplateNotFound, "")
		}
		var err error
		prompts, err = store.PurgeTemplate(ctx, tx, id)
		return apperrors.FromStore(err, apperrors.KeyTemplateNotFound, "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("prompt template deleted",
		zap.String("template_id", id.String()),
		zap.Int("prompts", prompts),
	)
	return nil
}
