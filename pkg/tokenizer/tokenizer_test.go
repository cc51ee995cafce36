package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBPE_Count(t *testing.T) {
	bpe, err := NewBPE("r50k_base")
	require.NoError(t, err)

	assert.Equal(t, 0, bpe.Count(""))
	assert.Equal(t, 2, bpe.Count("hello world"))
	assert.Equal(t, bpe.Count("You are a helpful assistant."), bpe.Count("You are a helpful assistant."))
}

func TestNewBPE_UnknownEncoding(t *testing.T) {
	_, err := NewBPE("no_such_encoding")
	assert.Error(t, err)
}

func TestEstimate_Count(t *testing.T) {
	var e Estimate
	assert.Equal(t, 0, e.Count("   "))
	assert.Equal(t, 1, e.Count("hi"))
	assert.Equal(t, 4, e.Count("one two three"))
}
