package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientDeterministic(t *testing.T) {
	c := NewLocalClient()

	r1, err := c.Answer(context.Background(), "is water wet?", []string{"https://example.com"})
	require.NoError(t, err)
	r2, err := c.Answer(context.Background(), "is water wet?", []string{"https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.NotEmpty(t, r1.Text)
	assert.Len(t, r1.ModelHash, 64)
	assert.Len(t, r1.InputHash, 64)
	assert.Len(t, r1.OutputHash, 64)
}

func TestLocalClientDistinctQuestionsDistinctProofs(t *testing.T) {
	c := NewLocalClient()

	r1, err := c.Answer(context.Background(), "question one", nil)
	require.NoError(t, err)
	r2, err := c.Answer(context.Background(), "question two", nil)
	require.NoError(t, err)

	assert.NotEqual(t, r1.InputHash, r2.InputHash)
	assert.NotEqual(t, r1.OutputHash, r2.OutputHash)
	// same model either way
	assert.Equal(t, r1.ModelHash, r2.ModelHash)
}

func TestLocalClientHonoursCancelledContext(t *testing.T) {
	c := NewLocalClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Answer(ctx, "anything", nil)
	assert.Error(t, err)
}

func TestBuildPromptIncludesReferences(t *testing.T) {
	p := buildPrompt("q", []string{"https://a", "https://b"})
	assert.Contains(t, p, "Question: q")
	assert.Contains(t, p, "- https://a")
	assert.Contains(t, p, "- https://b")

	assert.NotContains(t, buildPrompt("q", nil), "Reference material")
}
