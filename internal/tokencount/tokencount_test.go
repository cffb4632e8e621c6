package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount_ClaudeFallsBackToCharHeuristic(t *testing.T) {
	text := "01234567" // 8 chars
	got := Count("claude-sonnet-4-20250514", text)
	assert.Equal(t, 2, got)
}

func TestCount_EmptyText(t *testing.T) {
	assert.Equal(t, 0, Count("claude-haiku-4-5", ""))
	assert.Equal(t, 0, Count("gpt-4o-mini", ""))
}

func TestContextLimit_KnownAndUnknownModels(t *testing.T) {
	assert.Equal(t, 200_000, ContextLimit("claude-sonnet-4-20250514"))
	assert.Equal(t, 128_000, ContextLimit("gpt-4o-mini"))
	// Unknown models fall back by family, not to one flat number.
	assert.Equal(t, defaultOpenAIContextLimit, ContextLimit("gpt-5-nobody-has-heard-of"))
	assert.Equal(t, defaultAnthropicContextLimit, ContextLimit("claude-nobody-has-heard-of"))
}

func TestCount_OpenAIUsesTiktoken(t *testing.T) {
	got := Count("gpt-4o-mini", "hello world")
	assert.Greater(t, got, 0)
	// A real BPE tokenizer should not need one token per 4 characters for
	// plain English text; this just guards against silently falling back
	// to the heuristic for a model tiktoken is supposed to recognize.
	assert.Less(t, got, charHeuristic("hello world"))
}
