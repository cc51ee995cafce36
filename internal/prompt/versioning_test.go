package prompt

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

func strPtr(s string) *string { return &s }

func TestChangesContent(t *testing.T) {
	model := uuid.New()
	cur := &models.Prompt{Name: "P1", Body: "Hello", Notes: "n", ModelID: model}

	tests := []struct {
		name  string
		patch Patch
		want  bool
	}{
		{"empty patch", Patch{}, false},
		{"name only", Patch{Name: strPtr("P2")}, false},
		{"notes only", Patch{Notes: strPtr("x")}, false},
		{"same body", Patch{Body: strPtr("Hello")}, false},
		{"same model", Patch{ModelID: &model}, false},
		{"new body", Patch{Body: strPtr("Hello world")}, true},
		{"new model", Patch{ModelID: func() *uuid.UUID { id := uuid.New(); return &id }()}, true},
		{"new body with notes", Patch{Body: strPtr("Bye"), Notes: strPtr("x")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.patch.ChangesContent(cur))
		})
	}
}

func TestFork_DerivesFromCurrent(t *testing.T) {
	cur := &models.Prompt{
		ID: uuid.New(), Name: "P1", Body: "Hello", Notes: "keep",
		Version: 0, ModelID: uuid.New(), TemplateID: uuid.New(),
	}

	next := Fork(cur, Patch{Name: strPtr("ignored"), Body: strPtr("Hello world")}, 1)

	assert.Equal(t, "P1_v_1.0", next.Name)
	assert.Equal(t, "Hello world", next.Body)
	assert.Equal(t, "keep", next.Notes)
	assert.Equal(t, 1.0, next.Version)
	assert.Equal(t, cur.ModelID, next.ModelID)
	assert.Equal(t, cur.TemplateID, next.TemplateID)
	assert.Equal(t, uuid.Nil, next.ID)
	assert.Equal(t, "Hello", cur.Body, "current prompt is not modified")
}

func TestApplyInPlace_NeverTouchesBody(t *testing.T) {
	cur := &models.Prompt{Name: "P1", Body: "Hello", Version: 3}
	ApplyInPlace(cur, Patch{Name: strPtr("renamed"), Notes: strPtr("x"), Body: strPtr("ignored")})

	assert.Equal(t, "renamed", cur.Name)
	assert.Equal(t, "x", cur.Notes)
	assert.Equal(t, "Hello", cur.Body)
	assert.Equal(t, 3.0, cur.Version)
}

func TestVersionedName_OneFractionalDigit(t *testing.T) {
	assert.Equal(t, "P1_v_1.0", models.VersionedName("P1", 1))
	assert.Equal(t, "P1_v_12.0", models.VersionedName("P1", 12))
	assert.Equal(t, "P1_v_2.5", models.VersionedName("P1", 2.5))
}

func TestValidVersion(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1, 2.5, 12.3, VersionLimit} {
		assert.True(t, ValidVersion(v), "%v", v)
	}
	for _, v := range []float64{-0.1, -1, 0.25, 1.05, 100000, math.NaN()} {
		assert.False(t, ValidVersion(v), "%v", v)
	}
}
