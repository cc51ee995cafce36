package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prompt is one version of a prompt body bound to a model configuration.
// Prompts sharing a TemplateID form that template's version chain.
type Prompt struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Body       string    `json:"body" db:"body"`
	Notes      string    `json:"notes" db:"notes"`
	Version    float64   `json:"version" db:"version"`
	ModelID    uuid.UUID `json:"model_id" db:"model_id"`
	TemplateID uuid.UUID `json:"template_id" db:"template_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`

	// ModelName is joined in on reads; it is not stored on the prompt row.
	ModelName string `json:"llm_model_name,omitempty" db:"-"`
}

// VersionedName is the name given to a prompt forked at version v.
// The version is always rendered with exactly one fractional digit.
func VersionedName(base string, v float64) string {
	return fmt.Sprintf("%s_v_%.1f", base, v)
}
