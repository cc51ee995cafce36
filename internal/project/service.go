package project

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
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
	}
	taken, err := s.store.Projects().NameExists(ctx, name, uuid.Nil)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	if taken {
		return nil, apperrors.New(apperrors.KindNameConflict, apperrors.KeyProjectNameExists)
	}

	p := &models.Project{Name: name, Description: req.Description}
	if err := s.store.Projects().Create(ctx, p); err != nil {
		return nil, apperrors.FromStore(err, "", apperrors.KeyProjectNameExists)
	}
	s.logger.Info("project created", zap.String("project_id", p.ID.String()))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.store.Projects().Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyProjectNotFound, "")
	}
	return p, nil
}

// List returns every project, newest first.
func (s *Service) List(ctx context.Context) ([]models.Project, error) {
	list, err := s.store.Projects().List(ctx)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.Project, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
		}
		if name != p.Name {
			taken, err := s.store.Projects().NameExists(ctx, name, id)
			if err != nil {
				return nil, apperrors.FromStore(err, "", "")
			}
			if taken {
				return nil, apperrors.New(apperrors.KindNameConflict, apperrors.KeyProjectNameExists)
			}
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if err := s.store.Projects().Update(ctx, p); err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyProjectNotFound, apperrors.KeyProjectNameExists)
	}
	return p, nil
}

// Delete removes the project together with its templates, their prompts and
// those prompts' test associations.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	var templates, prompts int
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.Projects().Get(ctx, id); err != nil {
			return apperrors.FromStore(err, apperrors.KeyProjectNotFound, "")
		}
		var err error
		templates, prompts, err = store.PurgeProject(ctx, tx, id)
		return apperrors.FromStore(err, apperrors.KeyProjectNotFound, "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("project deleted",
		zap.String("project_id", id.String()),
		zap.Int("templates", templates),
		zap.Int("prompts", prompts),
	)
	return nil
}
