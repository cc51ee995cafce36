package template

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store/storetest"
)

func setup(t *testing.T) (*Service, *storetest.Store, uuid.UUID) {
	t.Helper()
	st := storetest.New()
	p := &models.Project{Name: "proj"}
	require.NoError(t, st.Projects().Create(context.Background(), p))
	return NewService(st, zap.NewNop()), st, p.ID
}

func TestCreate(t *testing.T) {
	svc, st, projectID := setup(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, CreateRequest{Name: "greeting", ProjectID: projectID})
	require.NoError(t, err)
	assert.Equal(t, 0, tmpl.PromptCount)

	_, err = svc.Create(ctx, CreateRequest{Name: "greeting", ProjectID: projectID})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyTemplateNameExists))

	_, err = svc.Create(ctx, CreateRequest{Name: "other", ProjectID: uuid.New()})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyInvalidProjectReference))
	assert.Equal(t, apperrors.KindInvalidReference, apperrors.KindOf(err))

	assert.Equal(t, 1, st.Counts().Templates)
}

func TestListByProject(t *testing.T) {
	svc, _, projectID := setup(t)
	ctx := context.Background()
	for _, n := range []string{"a", "b"} {
		_, err := svc.Create(ctx, CreateRequest{Name: n, ProjectID: projectID})
		require.NoError(t, err)
	}

	list, err := svc.ListByProject(ctx, projectID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListByProject(ctx, uuid.New())
	assert.True(t, apperrors.HasKey(err, apperrors.KeyProjectNotFound))
}

func TestUpdate(t *testing.T) {
	svc, st, projectID := setup(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateRequest{Name: "a", ProjectID: projectID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "b", ProjectID: projectID})
	require.NoError(t, err)

	moved := &models.Project{Name: "proj2"}
	require.NoError(t, st.Projects().Create(ctx, moved))

	desc := "d"
	got, err := svc.Update(ctx, a.ID, UpdateRequest{Description: &desc, ProjectID: &moved.ID})
	require.NoError(t, err)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, moved.ID, got.ProjectID)

	b := "b"
	_, err = svc.Update(ctx, a.ID, UpdateRequest{Name: &b})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyTemplateNameExists))

	missing := uuid.New()
	_, err = svc.Update(ctx, a.ID, UpdateRequest{ProjectID: &missing})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyInvalidProjectReference))

	_, err = svc.Update(ctx, uuid.New(), UpdateRequest{Description: &desc})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyTemplateNotFound))
}

func TestDelete_Cascades(t *testing.T) {
	svc, st, projectID := setup(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, CreateRequest{Name: "a", ProjectID: projectID})
	require.NoError(t, err)

	model := &models.ModelConfig{Name: "claude"}
	require.NoError(t, st.ModelConfigs().Create(ctx, model))
	for _, n := range []string{"P1", "P1_v_1.0"} {
		require.NoError(t, st.Prompts().Create(ctx, &models.Prompt{Name: n, ModelID: model.ID, TemplateID: tmpl.ID}))
	}

	require.NoError(t, svc.Delete(ctx, tmpl.ID))
	c := st.Counts()
	assert.Equal(t, 0, c.Templates)
	assert.Equal(t, 0, c.Prompts)
	assert.Equal(t, 1, c.Projects)

	err = svc.Delete(ctx, tmpl.ID)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyTemplateNotFound))
}

func TestDelete_RollsBackOnStorageError(t *testing.T) {
	svc, st, projectID := setup(t)
	ctx := context.Background()
	tmpl, err := svc.Create(ctx, CreateRequest{Name: "a", ProjectID: projectID})
	require.NoError(t, err)
	model := &models.ModelConfig{Name: "claude"}
	require.NoError(t, st.ModelConfigs().Create(ctx, model))
	require.NoError(t, st.Prompts().Create(ctx, &models.Prompt{Name: "P1", ModelID: model.ID, TemplateID: tmpl.ID}))

	st.FailOn("DeleteTemplate", errors.New("connection reset"))

	err = svc.Delete(ctx, tmpl.ID)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	c := st.Counts()
	assert.Equal(t, 1, c.Templates)
	assert.Equal(t, 1, c.Prompts, "prompt deletion is rolled back")
}
