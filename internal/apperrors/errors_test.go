package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesCatalogueMessage(t *testing.T) {
	err := New(KindNotFound, KeyProjectNotFound)
	assert.Equal(t, "Project not found", err.Message)
	assert.Equal(t, KindNotFound, err.Kind)
}

func TestMessageFor_UnknownKeyFallsBack(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", MessageFor("NO_SUCH_KEY"))
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := New(KindNameConflict, KeyPromptNameExists)
	wrapped := fmt.Errorf("update prompt: %w", base)

	assert.Equal(t, KindNameConflict, KindOf(wrapped))
	assert.True(t, HasKey(wrapped, KeyPromptNameExists))
	assert.True(t, errors.Is(wrapped, New(KindNameConflict, KeyPromptNameExists)))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	base := New(KindInvalidReference, KeyInvalidPromptIDs)
	detailed := base.WithDetail("missing %d ids", 2)

	assert.Empty(t, base.Detail)
	assert.Equal(t, "missing 2 ids", detailed.Detail)
	assert.Contains(t, detailed.Error(), "missing 2 ids")
}

func TestStorage_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage(cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorage, err.Kind)
	assert.Equal(t, KeyDatabaseError, err.Key)
}

func TestFromStore(t *testing.T) {
	nf := fmt.Errorf("get project: %w", ErrNotFound)
	assert.True(t, HasKey(FromStore(nf, KeyProjectNotFound, ""), KeyProjectNotFound))
	assert.Equal(t, KindNotFound, KindOf(FromStore(nf, KeyProjectNotFound, "")))

	dup := fmt.Errorf("insert project: %w", ErrConflict)
	assert.Equal(t, KindNameConflict, KindOf(FromStore(dup, "", KeyProjectNameExists)))

	// Without a key for the sentinel it is a storage failure.
	assert.Equal(t, KindStorage, KindOf(FromStore(dup, KeyProjectNotFound, "")))

	keyed := New(KindInvalidReference, KeyInvalidPromptIDs)
	assert.Same(t, keyed, FromStore(keyed, KeyProjectNotFound, ""))

	assert.NoError(t, FromStore(nil, KeyProjectNotFound, ""))
}
