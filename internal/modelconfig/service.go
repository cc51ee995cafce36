// Package modelconfig manages the model configurations prompts are bound to
// and forwards raw conversations to them.
package modelconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
	"github.com/nikhilbhutani/promptlab/internal/crypto"
	"github.com/nikhilbhutani/promptlab/internal/llm"
	"github.com/nikhilbhutani/promptlab/internal/models"
	"github.com/nikhilbhutani/promptlab/internal/store"
)

type Service struct {
	store   store.Store
	cipher  crypto.Cipher
	gateway llm.Gateway
	logger  *zap.Logger
}

func NewService(st store.Store, cipher crypto.Cipher, gw llm.Gateway, logger *zap.Logger) *Service {
	return &Service{store: st, cipher: cipher, gateway: gw, logger: logger}
}

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	AccessKey   string `json:"access_key"`
	SecretKey   string `json:"secret_key"`
	ModelID     string `json:"llm_model_id"`
	Region      string `json:"region"`
}

type UpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Provider    *string `json:"provider,omitempty"`
	AccessKey   *string `json:"access_key,omitempty"`
	SecretKey   *string `json:"secret_key,omitempty"`
	ModelID     *string `json:"llm_model_id,omitempty"`
	Region      *string `json:"region,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.ModelConfig, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
	}
	provider := req.Provider
	if provider == "" {
		provider = models.ProviderBedrock
	}
	if !models.ValidProvider(provider) {
		return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyInvalidProvider).
			WithDetail("provider %q", provider)
	}

	m := &models.ModelConfig{
		Name:        name,
		Description: req.Description,
		Provider:    provider,
		ModelID:     req.ModelID,
		Region:      req.Region,
	}
	if err := s.seal(m, req.AccessKey, req.SecretKey); err != nil {
		return nil, err
	}

	taken, err := s.store.ModelConfigs().NameExists(ctx, name, uuid.Nil)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	if taken {
		return nil, apperrors.New(apperrors.KindNameConflict, apperrors.KeyLLMNameExists)
	}
	if err := s.store.ModelConfigs().Create(ctx, m); err != nil {
		return nil, apperrors.FromStore(err, "", apperrors.KeyLLMNameExists)
	}

	s.logger.Info("model config created",
		zap.String("llm_id", m.ID.String()),
		zap.String("provider", m.Provider),
	)
	return m, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ModelConfig, error) {
	m, err := s.store.ModelConfigs().Get(ctx, id)
	if err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyLLMNotFound, "")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]models.ModelConfig, error) {
	list, err := s.store.ModelConfigs().List(ctx)
	if err != nil {
		return nil, apperrors.FromStore(err, "", "")
	}
	return list, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*models.ModelConfig, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyNameRequired)
		}
		if name != m.Name {
			taken, err := s.store.ModelConfigs().NameExists(ctx, name, id)
			if err != nil {
				return nil, apperrors.FromStore(err, "", "")
			}
			if taken {
				return nil, apperrors.New(apperrors.KindNameConflict, apperrors.KeyLLMNameExists)
			}
		}
		m.Name = name
	}
	if req.Provider != nil {
		if !models.ValidProvider(*req.Provider) {
			return nil, apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyInvalidProvider).
				WithDetail("provider %q", *req.Provider)
		}
		m.Provider = *req.Provider
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.ModelID != nil {
		m.ModelID = *req.ModelID
	}
	if req.Region != nil {
		m.Region = *req.Region
	}
	if req.AccessKey != nil {
		if m.AccessKey, err = s.cipher.Seal(*req.AccessKey); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
		}
	}
	if req.SecretKey != nil {
		if m.SecretKey, err = s.cipher.Seal(*req.SecretKey); err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
		}
	}

	if err := s.store.ModelConfigs().Update(ctx, m); err != nil {
		return nil, apperrors.FromStore(err, apperrors.KeyLLMNotFound, apperrors.KeyLLMNameExists)
	}
	return m, nil
}

// Delete refuses to remove a configuration that prompts still reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Repos) error {
		if _, err := tx.ModelConfigs().Get(ctx, id); err != nil {
			return apperrors.FromStore(err, apperrors.KeyLLMNotFound, "")
		}
		n, err := tx.Prompts().CountByModel(ctx, id)
		if err != nil {
			return apperrors.FromStore(err, "", "")
		}
		if n > 0 {
			return apperrors.New(apperrors.KindInvalidReference, apperrors.KeyLLMInUse).
				WithDetail("%d prompts", n)
		}
		return apperrors.FromStore(tx.ModelConfigs().Delete(ctx, id), apperrors.KeyLLMNotFound, "")
	})
	if err != nil {
		return err
	}
	s.logger.Info("model config deleted", zap.String("llm_id", id.String()))
	return nil
}

func (s *Service) seal(m *models.ModelConfig, accessKey, secretKey string) error {
	var err error
	if m.AccessKey, err = s.cipher.Seal(accessKey); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
	}
	if m.SecretKey, err = s.cipher.Seal(secretKey); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, apperrors.KeyUnexpectedError, err)
	}
	return nil
}

// Unseal replaces m's stored credentials with their plaintext.
func Unseal(c crypto.Cipher, m *models.ModelConfig) error {
	access, err := c.Open(m.AccessKey)
	if err != nil {
		return fmt.Errorf("open access key for %s: %w", m.Name, err)
	}
	secret, err := c.Open(m.SecretKey)
	if err != nil {
		return fmt.Errorf("open secret key for %s: %w", m.Name, err)
	}
	m.AccessKey, m.SecretKey = access, secret
	return nil
}
