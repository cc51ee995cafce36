// Package store holds the repository interfaces for every entity and the
// PostgreSQL implementation. Repositories return apperrors.ErrNotFound and
// apperrors.ErrConflict (unique violation) so services can attach their own
// keys; any other failure is a storage error.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
}

type TemplateRepository interface {
	Create(ctx context.Context, t *models.PromptTemplate) error
	Get(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.PromptTemplate, error)
	Update(ctx context.Context, t *models.PromptTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	// LockForUpdate holds a row lock on the template until the surrounding
	// transaction ends. It serializes writers on the template's version chain.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	AdjustPromptCount(ctx context.Context, id uuid.UUID, delta int) error
}

type ModelConfigRepository interface {
	Create(ctx context.Context, m *models.ModelConfig) error
	Get(ctx context.Context, id uuid.UUID) (*models.ModelConfig, error)
	List(ctx context.Context) ([]models.ModelConfig, error)
	Update(ctx context.Context, m *models.ModelConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
	NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
}

type PromptRepository interface {
	Create(ctx context.Context, p *models.Prompt) error
	// Get returns the prompt annotated with its model's name.
	Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error)
	ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Prompt, error)
	// Update writes name, notes and model_id. Body and version are immutable.
	Update(ctx context.Context, p *models.Prompt) error
	Delete(ctx context.Context, id uuid.UUID) error
	NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	// MaxVersion returns the highest version in the template's chain, or 0
	// when the chain is empty.
	MaxVersion(ctx context.Context, templateID uuid.UUID) (float64, error)
	CountByModel(ctx context.Context, modelID uuid.UUID) (int, error)
}

type TestRepository interface {
	Create(ctx context.Context, t *models.Test) error
	Get(ctx context.Context, id uuid.UUID) (*models.Test, error)
	Update(ctx context.Context, t *models.Test) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddAssociation(ctx context.Context, a *models.Association) error
	CountAssociations(ctx context.Context, testID uuid.UUID) (int, error)
	AssociationExists(ctx context.Context, testID, promptID uuid.UUID) (bool, error)
	DeleteAssociation(ctx context.Context, testID, promptID uuid.UUID) error
	DeleteAssociationsByTest(ctx context.Context, testID uuid.UUID) error
	DeleteAssociationsByPrompt(ctx context.Context, promptID uuid.UUID) error
	ListByPrompt(ctx context.Context, promptID uuid.UUID) ([]models.TestResult, error)
}

// Repos groups the repositories bound to one connection or transaction.
type Repos interface {
	Projects() ProjectRepository
	Templates() TemplateRepository
	ModelConfigs() ModelConfigRepository
	Prompts() PromptRepository
	Tests() TestRepository
}

// Store is the data-store handle threaded through every service. Its own
// repositories run in autocommit mode; WithTx runs fn inside a transaction
// that commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(tx Repos) error) error
	Ping(ctx context.Context) error
}
