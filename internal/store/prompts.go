package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type promptRepo struct {
	q querier
}

const promptSelect = `SELECT p.id, p.name, p.body, p.notes, p.version::float8, p.model_id,
	p.template_id, p.created_at, COALESCE(m.name, '')
	FROM prompts p LEFT JOIN model_configs m ON m.id = p.model_id`

func scanPrompt(row interface{ Scan(...any) error }, p *models.Prompt) error {
	return row.Scan(&p.ID, &p.Name, &p.Body, &p.Notes, &p.Version, &p.ModelID,
		&p.TemplateID, &p.CreatedAt, &p.ModelName)
}

func (r *promptRepo) Create(ctx context.Context, p *models.Prompt) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx,
		`INSERT INTO prompts (id, name, body, notes, version, model_id, template_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		p.ID, p.Name, p.Body, p.Notes, p.Version, p.ModelID, p.TemplateID,
	).Scan(&p.CreatedAt)
	if err != nil {
		return mapErr("insert prompt", err)
	}
	return nil
}

func (r *promptRepo) Get(ctx context.Context, id uuid.UUID) (*models.Prompt, error) {
	var p models.Prompt
	if err := scanPrompt(r.q.QueryRow(ctx, promptSelect+` WHERE p.id = $1`, id), &p); err != nil {
		return nil, mapErr("get prompt", err)
	}
	return &p, nil
}

func (r *promptRepo) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]models.Prompt, error) {
	rows, err := r.q.Query(ctx,
		promptSelect+` WHERE p.template_id = $1 ORDER BY p.version, p.created_at`, templateID)
	if err != nil {
		return nil, mapErr("list prompts", err)
	}
	defer rows.Close()

	prompts := []models.Prompt{}
	for rows.Next() {
		var p models.Prompt
		if err := scanPrompt(rows, &p); err != nil {
			return nil, mapErr("scan prompt", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list prompts", err)
	}
	return prompts, nil
}

func (r *promptRepo) Update(ctx context.Context, p *models.Prompt) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE prompts SET name = $2, notes = $3, model_id = $4 WHERE id = $1`,
		p.ID, p.Name, p.Notes, p.ModelID,
	)
	if err != nil {
		return mapErr("update prompt", err)
	}
	return requireAffected("update prompt", tag)
}

func (r *promptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete prompt", err)
	}
	return requireAffected("delete prompt", tag)
}

func (r *promptRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	return nameExists(ctx, r.q, "prompts", name, exclude)
}

func (r *promptRepo) MaxVersion(ctx context.Context, templateID uuid.UUID) (float64, error) {
	var v float64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0)::float8 FROM prompts WHERE template_id = $1`, templateID,
	).Scan(&v)
	if err != nil {
		return 0, mapErr("max prompt version", err)
	}
	return v, nil
}

func (r *promptRepo) CountByModel(ctx context.Context, modelID uuid.UUID) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM prompts WHERE model_id = $1`, modelID).Scan(&n); err != nil {
		return 0, mapErr("count prompts by model", err)
	}
	return n, nil
}
