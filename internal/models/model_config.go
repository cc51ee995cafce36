package models

import (
	"github.com/google/uuid"
)

const (
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ValidProvider reports whether p names a supported inference provider.
func ValidProvider(p string) bool {
	switch p {
	case ProviderBedrock, ProviderOpenAI, ProviderAnthropic:
		return true
	}
	return false
}

// ModelConfig binds a remote model to the credentials used to call it.
// AccessKey and SecretKey hold ciphertext when credential encryption is on.
type ModelConfig struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Provider    string    `json:"provider" db:"provider"`
	AccessKey   string    `json:"-" db:"access_key"`
	SecretKey   string    `json:"-" db:"secret_key"`
	ModelID     string    `json:"llm_model_id" db:"model_identifier"`
	Region      string    `json:"region" db:"region"`
}
