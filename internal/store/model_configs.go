package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type modelConfigRepo struct {
	q querier
}

const modelConfigColumns = `id, name, description, provider, access_key, secret_key, model_identifier, region`

func scanModelConfig(row interface{ Scan(...any) error }, m *models.ModelConfig) error {
	return row.Scan(&m.ID, &m.Name, &m.Description, &m.Provider, &m.AccessKey, &m.SecretKey, &m.ModelID, &m.Region)
}

func (r *modelConfigRepo) Create(ctx context.Context, m *models.ModelConfig) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO model_configs (`+modelConfigColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Name, m.Description, m.Provider, m.AccessKey, m.SecretKey, m.ModelID, m.Region,
	)
	if err != nil {
		return mapErr("insert model config", err)
	}
	return nil
}

func (r *modelConfigRepo) Get(ctx context.Context, id uuid.UUID) (*models.ModelConfig, error) {
	var m models.ModelConfig
	row := r.q.QueryRow(ctx, `SELECT `+modelConfigColumns+` FROM model_configs WHERE id = $1`, id)
	if err := scanModelConfig(row, &m); err != nil {
		return nil, mapErr("get model config", err)
	}
	return &m, nil
}

func (r *modelConfigRepo) List(ctx context.Context) ([]models.ModelConfig, error) {
	rows, err := r.q.Query(ctx, `SELECT `+modelConfigColumns+` FROM model_configs ORDER BY name`)
	if err != nil {
		return nil, mapErr("list model configs", err)
	}
	defer rows.Close()

	configs := []models.ModelConfig{}
	for rows.Next() {
		var m models.ModelConfig
		if err := scanModelConfig(rows, &m); err != nil {
			return nil, mapErr("scan model config", err)
		}
		configs = append(configs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list model configs", err)
	}
	return configs, nil
}

func (r *modelConfigRepo) Update(ctx context.Context, m *models.ModelConfig) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE model_configs
		 SET name = $2, description = $3, provider = $4, access_key = $5,
		     secret_key = $6, model_identifier = $7, region = $8
		 WHERE id = $1`,
		m.ID, m.Name, m.Description, m.Provider, m.AccessKey, m.SecretKey, m.ModelID, m.Region,
	)
	if err != nil {
		return mapErr("update model config", err)
	}
	return requireAffected("update model config", tag)
}

func (r *modelConfigRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM model_configs WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete model config", err)
	}
	return requireAffected("delete model config", tag)
}

func (r *modelConfigRepo) NameExists(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	return nameExists(ctx, r.q, "model_configs", name, exclude)
}
