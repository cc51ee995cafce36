package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/database/dbtest"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store"
)

type fixture struct {
	st       *store.Postgres
	project  *models.Project
	template *models.PromptTemplate
	model    *models.ModelConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewPostgres(dbtest.Pool(t))

	project := &models.Project{Name: "support"}
	require.NoError(t, st.Projects().Create(ctx, project))

	tmpl := &models.PromptTemplate{Name: "greeting", ProjectID: project.ID}
	require.NoError(t, st.Templates().Create(ctx, tmpl))

	model := &models.ModelConfig{Name: "claude", Provider: models.ProviderBedrock, ModelID: "anthropic.claude-v2"}
	require.NoError(t, st.ModelConfigs().Create(ctx, model))

	return &fixture{st: st, project: project, template: tmpl, model: model}
}

func (f *fixture) prompt(t *testing.T, name string, version float64) *models.Prompt {
	t.Helper()
	p := &models.Prompt{Name: name, Body: "Say hi", Version: version, ModelID: f.model.ID, TemplateID: f.template.ID}
	require.NoError(t, f.st.Prompts().Create(context.Background(), p))
	return p
}

func TestPostgres_UniqueNameIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.st.Projects().Create(ctx, &models.Project{Name: "support"})
	require.ErrorIs(t, err, apperrors.ErrConflict)

	exists, err := f.st.Projects().NameExists(ctx, "support", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.st.Projects().NameExists(ctx, "support", f.project.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostgres_MissingRowIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.st.Prompts().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = f.st.Tests().Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = f.st.Templates().LockForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgres_PromptReadsJoinModelName(t *testing.T) {
	f := newFixture(t)
	p := f.prompt(t, "hello", 0)

	got, err := f.st.Prompts().Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "claude", got.ModelName)
	assert.Equal(t, 0.0, got.Version)
}

func TestPostgres_MaxVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.st.Prompts().MaxVersion(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	f.prompt(t, "hello", 0)
	f.prompt(t, "hello_v_1.0", 1)
	f.prompt(t, "hello_v_2.5", 2.5)

	v, err = f.st.Prompts().MaxVersion(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	list, err := f.st.Prompts().ListByTemplate(ctx, f.template.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "hello_v_2.5", list[2].Name)
}

func TestPostgres_WithTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.st.WithTx(ctx, func(tx store.Repos) error {
		require.NoError(t, tx.Templates().AdjustPromptCount(ctx, f.template.ID, 1))
		require.NoError(t, tx.Projects().Create(ctx, &models.Project{Name: "scratch"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	tmpl, err := f.st.Templates().Get(ctx, f.template.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tmpl.PromptCount)

	projects, err := f.st.Projects().List(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestPostgres_AssociationsAndListByPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prompt(t, "hello", 0)

	inputTokens := 3
	for _, name := range []string{"first", "second"} {
		test := &models.Test{Name: name, UserInput: "hi there"}
		require.NoError(t, f.st.Tests().Create(ctx, test))
		require.NoError(t, f.st.Tests().AddAssociation(ctx, &models.Association{
			TestID: test.ID, PromptID: p.ID, ResponseText: "hello", TotalTokens: 15,
			PromptTokens: 2, UserInputTokens: &inputTokens,
		}))
	}

	inUse, err := f.st.Prompts().CountByModel(ctx, f.model.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, inUse)

	list, err := f.st.Tests().ListByPrompt(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	require.NotNil(t, list[0].UserInputTokens)
	assert.Equal(t, 3, *list[0].UserInputTokens)

	n, err := f.st.Tests().CountAssociations(ctx, list[0].Test.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = f.st.Tests().AddAssociation(ctx, &models.Association{TestID: list[0].Test.ID, PromptID: p.ID})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestPostgres_PurgeProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.prompt(t, "hello", 0)

	test := &models.Test{Name: "t"}
	require.NoError(t, f.st.Tests().Create(ctx, test))
	require.NoError(t, f.st.Tests().AddAssociation(ctx, &models.Association{TestID: test.ID, PromptID: p.ID}))

	var templates, prompts int
	err := f.st.WithTx(ctx, func(tx store.Repos) error {
		var err error
		templates, prompts, err = store.PurgeProject(ctx, tx, f.project.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, templates)
	assert.Equal(t, 1, prompts)

	_, err = f.st.Prompts().Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// The test row itself survives; only its association went with the prompt.
	_, err = f.st.Tests().Get(ctx, test.ID)
	assert.NoError(t, err)
}
