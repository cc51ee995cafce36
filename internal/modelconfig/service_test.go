package modelconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/crypto"
	"github.com/nikhilbhutani/promptlab/internal/llm/llmtest"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store/storetest"
)

func newService(t *testing.T) (*Service, *storetest.Store, *llmtest.Gateway) {
	t.Helper()
	cipher, err := crypto.New("test-credentials-key")
	require.NoError(t, err)
	st := storetest.New()
	gw := llmtest.New()
	return NewService(st, cipher, gw, zap.NewNop()), st, gw
}

func TestCreate_SealsCredentials(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateRequest{
		Name: "claude", AccessKey: "AKIA123", SecretKey: "s3cret",
		ModelID: "anthropic.claude-3-haiku", Region: "us-east-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderBedrock, m.Provider)

	stored, err := st.ModelConfigs().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "AKIA123", stored.AccessKey)
	assert.NotEqual(t, "s3cret", stored.SecretKey)

	require.NoError(t, Unseal(svc.cipher, stored))
	assert.Equal(t, "AKIA123", stored.AccessKey)
	assert.Equal(t, "s3cret", stored.SecretKey)
}

func TestCreate_Validation(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateRequest{Name: "claude"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{Name: "claude"})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMNameExists))

	_, err = svc.Create(ctx, CreateRequest{Name: "x", Provider: "ollama"})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyInvalidProvider))

	_, err = svc.Create(ctx, CreateRequest{Name: ""})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyNameRequired))

	assert.Equal(t, 1, st.Counts().ModelConfigs)
}

func TestUpdate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	m, err := svc.Create(ctx, CreateRequest{Name: "claude", Region: "us-east-1"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Name: "gpt", Provider: models.ProviderOpenAI})
	require.NoError(t, err)

	region := "eu-west-1"
	updated, err := svc.Update(ctx, m.ID, UpdateRequest{Region: &region})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", updated.Region)
	assert.Equal(t, "claude", updated.Name)

	name := "gpt"
	_, err = svc.Update(ctx, m.ID, UpdateRequest{Name: &name})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMNameExists))

	_, err = svc.Update(ctx, uuid.New(), UpdateRequest{Region: &region})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMNotFound))
}

func TestDelete_InUse(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	m, err := svc.Create(ctx, CreateRequest{Name: "claude"})
	require.NoError(t, err)

	require.NoError(t, st.Prompts().Create(ctx, &models.Prompt{Name: "P1", ModelID: m.ID, TemplateID: uuid.New()}))

	err = svc.Delete(ctx, m.ID)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMInUse))
	assert.Equal(t, 1, st.Counts().ModelConfigs)
}

func TestDelete(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	m, err := svc.Create(ctx, CreateRequest{Name: "claude"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, m.ID))
	assert.Equal(t, 0, st.Counts().ModelConfigs)

	err = svc.Delete(ctx, m.ID)
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMNotFound))
}

func TestConverse(t *testing.T) {
	svc, _, gw := newService(t)
	ctx := context.Background()
	m, err := svc.Create(ctx, CreateRequest{Name: "claude", AccessKey: "AKIA123"})
	require.NoError(t, err)

	res, err := svc.Converse(ctx, ConverseRequest{LLMID: m.ID, Prompt: "be brief", UserInput: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "reply to be brief", res.Text)

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "AKIA123", reqs[0].Model.AccessKey, "gateway receives opened credentials")
	assert.Equal(t, "hi", reqs[0].UserInput)
}

func TestConverse_Errors(t *testing.T) {
	svc, _, gw := newService(t)
	ctx := context.Background()

	_, err := svc.Converse(ctx, ConverseRequest{LLMID: uuid.New()})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyLLMNotFound))

	m, err := svc.Create(ctx, CreateRequest{Name: "claude"})
	require.NoError(t, err)

	gw.FailOnCall(1, errors.New("throttled"))
	_, err = svc.Converse(ctx, ConverseRequest{LLMID: m.ID})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyConversationError))
	assert.Equal(t, apperrors.KindInferenceFailure, apperrors.KindOf(err))

	_, err = svc.Converse(ctx, ConverseRequest{LLMID: m.ID, Image: []byte("GIF89a not really")})
	// GIF89a magic is enough for sniffing.
	assert.NoError(t, err)

	_, err = svc.Converse(ctx, ConverseRequest{LLMID: m.ID, Image: []byte{}})
	assert.True(t, apperrors.HasKey(err, apperrors.KeyImageRequired))
}
