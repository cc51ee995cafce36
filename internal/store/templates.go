package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type templateRepo struct {
	q querier
}

const templateColumns = `id, name, description, project_id, prompt_count, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }, t *models.PromptTemplate) error {
	return row.Scan(&t.ID, &t.Name, &t.Description, &t.ProjectID, &t.PromptCount, &t.CreatedAt, &t.UpdatedAt)
}

func (r *templateRepo) Create(ctx context.Context, t *models.PromptTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx,
		`INSERT INTO prompt_templates (id, name, description, project_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING prompt_count, created_at, updated_at`,
		t.ID, t.Name, t.Description, t.ProjectID,
	).Scan(&t.PromptCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return mapErr("insert prompt template", err)
	}
	return nil
}

func (r *templateRepo) Get(ctx context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	var t models.PromptTemplate
	row := r.q.QueryRow(ctx, `SELECT `+templateColumns+` FROM prompt_templates WHERE id = $1`, id)
	if err := scanTemplate(row, &t); err != nil {
		return nil, mapErr("get prompt template", err)
	}
	return &t, nil
}

func (r *templateRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.PromptTemplate, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+templateColumns+` FROM prompt_templates
		 WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, mapErr("list prompt templates", err)
	}
	defer rows.Close()

	templates := []models.PromptTemplate{}
	for rows.Next() {
		var t models.PromptTemplate
		if err := scanTemplate(rows, &t); err != nil {
			return nil, mapErr("scan prompt template", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list prompt templates", err)
	}
	return templates, nil
}

func (r *templateRepo) Update(ctx context.Context, t *models.PromptTemplate) error {
	err := r.q.QueryRow(ctx,
		`UPDATE prompt_templates
		 SET name = $2, description = $3, project_id = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING prompt_count, updated_at`,
		t.ID, t.Name, t.Description, t.ProjectID,
	).Scan(&t.PromptCount, &t.UpdatedAt)
	if err != nil {
		return mapErr("update prompt template", err)
	}
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM prompt_templates WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete prompt template", err)
	}
	return requireAffected("delete prompt template", tag)
}

func (r *templateRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	return nameExists(ctx, r.q, "prompt_templates", name, exclude)
}

func (r *templateRepo) LockForUpdate(ctx context.Context, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.q.QueryRow(ctx, `SELECT id FROM prompt_templates WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return mapErr("lock prompt template", err)
	}
	return nil
}

func (r *templateRepo) AdjustPromptCount(ctx context.Context, id uuid.UUID, delta int) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE prompt_templates
		 SET prompt_count = GREATEST(prompt_count + $2, 0), updated_at = now()
		 WHERE id = $1`,
		id, delta,
	)
	if err != nil {
		return mapErr("adjust prompt count", err)
	}
	return requireAffected("adjust prompt count", tag)
}
