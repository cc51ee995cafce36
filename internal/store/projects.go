package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type projectRepo struct {
	q querier
}

const projectColumns = `id, name, description, created_at, updated_at`

func (r *projectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx,
		`INSERT INTO projects (id, name, description)
		 VALUES ($1, $2, $3)
		 RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return mapErr("insert project", err)
	}
	return nil
}

func (r *projectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := r.q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr("get project", err)
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context) ([]models.Project, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapErr("list projects", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, mapErr("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list projects", err)
	}
	return projects, nil
}

func (r *projectRepo) Update(ctx context.Context, p *models.Project) error {
	err := r.q.QueryRow(ctx,
		`UPDATE projects SET name = $2, description = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		p.ID, p.Name, p.Description,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return mapErr("update project", err)
	}
	return nil
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete project", err)
	}
	return requireAffected("delete project", tag)
}

func (r *projectRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	return nameExists(ctx, r.q, "projects", name, exclude)
}
