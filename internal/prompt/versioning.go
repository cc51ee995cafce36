package prompt

import (
	"math"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

// VersionLimit is the largest version the NUMERIC(6, 1) column holds.
const VersionLimit = 99999.9

// ValidVersion reports whether v is stored without loss: within
// [0, VersionLimit] and with at most one fractional digit.
func ValidVersion(v float64) bool {
	if math.IsNaN(v) || v < 0 || v > VersionLimit {
		return false
	}
	tenths := v * 10
	return math.Abs(tenths-math.Round(tenths)) < 1e-6
}

// Patch is a partial prompt update. Nil fields are left unchanged.
type Patch struct {
	Name    *string    `json:"name,omitempty"`
	Body    *string    `json:"body,omitempty"`
	Notes   *string    `json:"notes,omitempty"`
	ModelID *uuid.UUID `json:"model_id,omitempty"`
}

// ChangesContent reports whether applying p to cur must fork a new version:
// the body or the model binding differs from the stored one.
func (p Patch) ChangesContent(cur *models.Prompt) bool {
	if p.Body != nil && *p.Body != cur.Body {
		return true
	}
	return p.ModelID != nil && *p.ModelID != cur.ModelID
}

// Fork builds the next version of cur at version v. The name is derived
// from cur's name; a name in p is ignored. cur is not modified.
func Fork(cur *models.Prompt, p Patch, v float64) *models.Prompt {
	next := &models.Prompt{
		Name:       models.VersionedName(cur.Name, v),
		Body:       cur.Body,
		Notes:      cur.Notes,
		Version:    v,
		ModelID:    cur.ModelID,
		TemplateID: cur.TemplateID,
	}
	if p.Body != nil {
		next.Body = *p.Body
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.ModelID != nil {
		next.ModelID = *p.ModelID
	}
	return next
}

// ApplyInPlace copies the metadata fields of p onto cur. Body and version
// are never written here.
func ApplyInPlace(cur *models.Prompt, p Patch) {
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Notes != nil {
		cur.Notes = *p.Notes
	}
	if p.ModelID != nil {
		cur.ModelID = *p.ModelID
	}
}
