package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type testRepo struct {
	q querier
}

func (r *testRepo) Create(ctx context.Context, t *models.Test) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	err := r.q.QueryRow(ctx,
		`INSERT INTO tests (id, name, user_input, image_bytes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		t.ID, t.Name, t.UserInput, t.Image,
	).Scan(&t.CreatedAt)
	if err != nil {
		return mapErr("insert test", err)
	}
	return nil
}

func (r *testRepo) Get(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	var t models.Test
	err := r.q.QueryRow(ctx,
		`SELECT id, name, user_input, image_bytes, created_at FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.UserInput, &t.Image, &t.CreatedAt)
	if err != nil {
		return nil, mapErr("get test", err)
	}
	return &t, nil
}

func (r *testRepo) Update(ctx context.Context, t *models.Test) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE tests SET name = $2, user_input = $3 WHERE id = $1`,
		t.ID, t.Name, t.UserInput,
	)
	if err != nil {
		return mapErr("update test", err)
	}
	return requireAffected("update test", tag)
}

func (r *testRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return mapErr("delete test", err)
	}
	return requireAffected("delete test", tag)
}

func (r *testRepo) AddAssociation(ctx context.Context, a *models.Association) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO test_prompt_associations
		 (test_id, prompt_id, response_text, input_tokens, output_tokens, total_tokens,
		  latency_ms, prompt_tokens, user_input_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.TestID, a.PromptID, a.ResponseText, a.InputTokens, a.OutputTokens, a.TotalTokens,
		a.LatencyMs, a.PromptTokens, a.UserInputTokens,
	)
	if err != nil {
		return mapErr("insert association", err)
	}
	return nil
}

func (r *testRepo) CountAssociations(ctx context.Context, testID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM test_prompt_associations WHERE test_id = $1`, testID,
	).Scan(&n)
	if err != nil {
		return 0, mapErr("count associations", err)
	}
	return n, nil
}

func (r *testRepo) AssociationExists(ctx context.Context, testID, promptID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM test_prompt_associations WHERE test_id = $1 AND prompt_id = $2)`,
		testID, promptID,
	).Scan(&exists)
	if err != nil {
		return false, mapErr("check association", err)
	}
	return exists, nil
}

func (r *testRepo) DeleteAssociation(ctx context.Context, testID, promptID uuid.UUID) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM test_prompt_associations WHERE test_id = $1 AND prompt_id = $2`,
		testID, promptID,
	)
	if err != nil {
		return mapErr("delete association", err)
	}
	return requireAffected("delete association", tag)
}

func (r *testRepo) DeleteAssociationsByTest(ctx context.Context, testID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM test_prompt_associations WHERE test_id = $1`, testID); err != nil {
		return mapErr("delete test associations", err)
	}
	return nil
}

func (r *testRepo) DeleteAssociationsByPrompt(ctx context.Context, promptID uuid.UUID) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM test_prompt_associations WHERE prompt_id = $1`, promptID); err != nil {
		return mapErr("delete prompt associations", err)
	}
	return nil
}

func (r *testRepo) ListByPrompt(ctx context.Context, promptID uuid.UUID) ([]models.TestResult, error) {
	rows, err := r.q.Query(ctx,
		`SELECT t.id, t.name, t.user_input, t.image_bytes, t.created_at,
		        a.test_id, a.prompt_id, a.response_text, a.input_tokens, a.output_tokens,
		        a.total_tokens, a.latency_ms, a.prompt_tokens, a.user_input_tokens
		 FROM tests t
		 JOIN test_prompt_associations a ON a.test_id = t.id
		 WHERE a.prompt_id = $1
		 ORDER BY t.created_at DESC`, promptID)
	if err != nil {
		return nil, mapErr("list tests by prompt", err)
	}
	defer rows.Close()

	results := []models.TestResult{}
	for rows.Next() {
		var res models.TestResult
		err := rows.Scan(&res.ID, &res.Name, &res.UserInput, &res.Image, &res.CreatedAt,
			&res.TestID, &res.PromptID, &res.ResponseText, &res.InputTokens, &res.OutputTokens,
			&res.TotalTokens, &res.LatencyMs, &res.PromptTokens, &res.UserInputTokens)
		if err != nil {
			return nil, mapErr("scan test result", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list tests by prompt", err)
	}
	return results, nil
}
