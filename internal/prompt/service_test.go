package prompt

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store/storetest"
)

type fixture struct {
	st       *storetest.Store
	svc      *Service
	template uuid.UUID
	model    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := storetest.New()

	project := &models.Project{Name: "proj"}
	require.NoError(t, st.Projects().Create(ctx, project))
	tmpl := &models.PromptTemplate{Name: "tmpl", ProjectID: project.ID}
	require.NoError(t, st.Templates().Create(ctx, tmpl))
	model := &models.ModelConfig{Name: "claude", Provider: models.ProviderBedrock}
	require.NoError(t, st.ModelConfigs().Create(ctx, model))

	return &fixture{
		st:       st,
		svc:      NewService(st, zap.NewNop()),
		template: tmpl.ID,
		model:    model.ID,
	}
}

func (f *fixture) create(t *testing.T, name, body string) *models.Prompt {
	t.Helper()
	p, err := f.svc.Create(context.Background(), CreateRequest{
		Name: name, Body: body, ModelID: f.model, TemplateID: f.template,
	})
	require.NoError(t, err)
	return p
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.create(t, "P1", "Hello")

	assert.Equal(t, 0.0, p.Version)
	assert.Equal(t, "claude", p.ModelName)

	tmpl, err := f.st.Templates().Get(ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, 1, tmpl.PromptCount)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "P1", "Hello")
	negative, tooLarge, tooPrecise := -1.0, 100000.0, 0.25

	tests := []struct {
		name string
		req  CreateRequest
		key  string
	}{
		{"duplicate name", CreateRequest{Name: "P1", ModelID: f.model, TemplateID: f.template}, apperrors.KeyPromptNameExists},
		{"blank name", CreateRequest{Name: "  ", ModelID: f.model, TemplateID: f.template}, apperrors.KeyNameRequired},
		{"negative version", CreateRequest{Name: "P2", Version: &negative, ModelID: f.model, TemplateID: f.template}, apperrors.KeyInvalidVersion},
		{"version out of range", CreateRequest{Name: "P2", Version: &tooLarge, ModelID: f.model, TemplateID: f.template}, apperrors.KeyInvalidVersion},
		{"version with two decimals", CreateRequest{Name: "P2", Version: &tooPrecise, ModelID: f.model, TemplateID: f.template}, apperrors.KeyInvalidVersion},
		{"unknown template", CreateRequest{Name: "P2", ModelID: f.model, TemplateID: uuid.New()}, apperrors.KeyInvalidTemplateReference},
		{"unknown model", CreateRequest{Name: "P2", ModelID: uuid.New(), TemplateID: f.template}, apperrors.KeyInvalidLLMReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.HasKey(err, tt.key), "got %v", err)
		})
	}
	assert.Equal(t, 1, f.st.Counts().Prompts, "no row written on failure")
}

// Scenario: P1 "Hello" v0; body change forks P1_v_1.0; a notes-only
// change to the fork mutates it in place.
func TestUpdate_ForkThenMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")

	forked, err := f.svc.Update(ctx, p1.ID, Patch{Body: strPtr("Hello world")})
	require.NoError(t, err)

	assert.NotEqual(t, p1.ID, forked.ID)
	assert.Equal(t, "P1_v_1.0", forked.Name)
	assert.Equal(t, 1.0, forked.Version)
	assert.Equal(t, "Hello world", forked.Body)
	assert.Equal(t, f.template, forked.TemplateID)

	orig, err := f.svc.Get(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", orig.Body)
	assert.Equal(t, 0.0, orig.Version)

	mutated, err := f.svc.Update(ctx, forked.ID, Patch{Notes: strPtr("x")})
	require.NoError(t, err)
	assert.Equal(t, forked.ID, mutated.ID)
	assert.Equal(t, 1.0, mutated.Version)
	assert.Equal(t, "x", mutated.Notes)
	assert.Equal(t, "Hello world", mutated.Body)

	assert.Equal(t, 2, f.st.Counts().Prompts)
	tmpl, err := f.st.Templates().Get(ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.PromptCount)
}

func TestUpdate_ModelChangeForks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")

	other := &models.ModelConfig{Name: "gpt", Provider: models.ProviderOpenAI}
	require.NoError(t, f.st.ModelConfigs().Create(ctx, other))

	forked, err := f.svc.Update(ctx, p1.ID, Patch{ModelID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, forked.ModelID)
	assert.Equal(t, "gpt", forked.ModelName)
	assert.Equal(t, "Hello", forked.Body)
	assert.Equal(t, 1.0, forked.Version)
}

func TestUpdate_ForkToUnknownModel(t *testing.T) {
	f := newFixture(t)
	p1 := f.create(t, "P1", "Hello")
	missing := uuid.New()

	_, err := f.svc.Update(context.Background(), p1.ID, Patch{ModelID: &missing})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyInvalidLLMReference))
	assert.Equal(t, 1, f.st.Counts().Prompts)
}

func TestUpdate_VersionIsMaxOfChainPlusOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v5 := 5.0
	_, err := f.svc.Create(ctx, CreateRequest{Name: "seed", Version: &v5, ModelID: f.model, TemplateID: f.template})
	require.NoError(t, err)
	p1 := f.create(t, "P1", "Hello")

	forked, err := f.svc.Update(ctx, p1.ID, Patch{Body: strPtr("changed")})
	require.NoError(t, err)
	assert.Equal(t, 6.0, forked.Version)
	assert.Equal(t, "P1_v_6.0", forked.Name)
}

func TestUpdate_MetadataOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")
	f.create(t, "P2", "Other")

	renamed, err := f.svc.Update(ctx, p1.ID, Patch{Name: strPtr("P1-renamed"), Body: strPtr("Hello")})
	require.NoError(t, err)
	assert.Equal(t, p1.ID, renamed.ID)
	assert.Equal(t, "P1-renamed", renamed.Name)
	assert.Equal(t, 0.0, renamed.Version)

	_, err = f.svc.Update(ctx, p1.ID, Patch{Name: strPtr("P2")})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyPromptNameExists))

	// Renaming to its own name is not a conflict.
	_, err = f.svc.Update(ctx, p1.ID, Patch{Name: strPtr("P1-renamed")})
	assert.NoError(t, err)
	assert.Equal(t, 2, f.st.Counts().Prompts)
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), uuid.New(), Patch{Notes: strPtr("x")})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.True(t, apperrors.HasKey(err, apperrors.KeyPromptNotFound))
}

func TestUpdate_ConcurrentForksAreMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := "body " + string(rune('a'+i))
			_, err := f.svc.Update(ctx, p1.ID, Patch{Body: &body})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	chain, err := f.svc.ListByTemplate(ctx, f.template)
	require.NoError(t, err)
	require.Len(t, chain, n+1)

	versions := make([]float64, 0, len(chain))
	for _, p := range chain {
		versions = append(versions, p.Version)
	}
	sort.Float64s(versions)
	for i, v := range versions {
		assert.Equal(t, float64(i), v, "versions must have no gaps or duplicates")
	}
}

func TestUpdate_ForkPastVersionLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	last := VersionLimit
	p, err := f.svc.Create(ctx, CreateRequest{
		Name: "P1", Body: "Hello", Version: &last, ModelID: f.model, TemplateID: f.template,
	})
	require.NoError(t, err)

	body := "Hello world"
	_, err = f.svc.Update(ctx, p.ID, Patch{Body: &body})
	require.Error(t, err)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyInvalidVersion))
	assert.Equal(t, 1, f.st.Counts().Prompts)
}

func TestUpdate_StorageFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")
	f.st.FailOn("AdjustPromptCount", errors.New("disk full"))

	_, err := f.svc.Update(ctx, p1.ID, Patch{Body: strPtr("new")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindStorage, apperrors.KindOf(err))
	assert.Equal(t, 1, f.st.Counts().Prompts)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.create(t, "P1", "Hello")
	f.create(t, "P2", "Other")

	test := &models.Test{Name: "t"}
	require.NoError(t, f.st.Tests().Create(ctx, test))
	require.NoError(t, f.st.Tests().AddAssociation(ctx, &models.Association{TestID: test.ID, PromptID: p1.ID}))

	require.NoError(t, f.svc.Delete(ctx, p1.ID))

	_, err := f.svc.Get(ctx, p1.ID)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyPromptNotFound))
	assert.Equal(t, 0, f.st.Counts().Associations)

	tmpl, err := f.st.Templates().Get(ctx, f.template)
	require.NoError(t, err)
	assert.Equal(t, 1, tmpl.PromptCount)

	err = f.svc.Delete(ctx, p1.ID)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyPromptNotFound))
}
