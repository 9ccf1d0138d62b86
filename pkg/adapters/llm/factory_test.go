package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient(&Config{Provider: "anthropic", APIKey: "key", Model: "claude-sonnet-4-5"})
	require.NoError(t, err)
	assert.NotNil(t, client)

	_, err = NewClient(&Config{Provider: "anthropic", Model: "claude-sonnet-4-5"})
	assert.ErrorContains(t, err, "API key is required")

	_, err = NewClient(&Config{Provider: "openai", APIKey: "key"})
	assert.ErrorContains(t, err, "unsupported LLM provider: openai")
}
