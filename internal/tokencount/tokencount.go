// Package tokencount estimates how many tokens a prompt will consume for a
// given model, so the scheduler can pack batches against a model's context
// window without ever calling the model itself.
package tokencount

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// ContextLimit is the total context window (input + output) a model
// supports, in tokens. An unknown model falls back to a conservative
// per-family default — 128k for the OpenAI family, 200k for the
// Anthropic family — rather than failing the batch scheduler outright.
// When several table prefixes match, the longest one wins.
func ContextLimit(model string) int {
	best, bestLimit := "", 0
	for prefix, limit := range contextLimits {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best, bestLimit = prefix, limit
		}
	}
	if best != "" {
		return bestLimit
	}
	if strings.HasPrefix(model, "claude") {
		return defaultAnthropicContextLimit
	}
	return defaultOpenAIContextLimit
}

const (
	defaultOpenAIContextLimit    = 128_000
	defaultAnthropicContextLimit = 200_000
)

var contextLimits = map[string]int{
	"gpt-4o":           128_000,
	"gpt-4o-mini":      128_000,
	"gpt-4-turbo":      128_000,
	"gpt-4":            8_192,
	"gpt-3.5-turbo":    16_385,
	"claude-sonnet-4":  200_000,
	"claude-haiku-4-5": 200_000,
	"claude-opus-4":    200_000,
	"claude-3":         200_000,
	"gemini-1.5":       1_000_000,
	"gemini-2":         1_000_000,
}

// Count returns an estimated token count for text under model's tokenizer.
//
// OpenAI-family models (anything tiktoken recognizes, via
// tiktoken.EncodingForModel) get an exact BPE count. Every other model —
// in practice the Claude family, for which no public Go tokenizer exists —
// falls back to ceil(len(text)/4), a heuristic recorded in DESIGN.md. The
// heuristic deliberately over-counts slightly: BPE token-to-character
// ratios for English-like source text cluster close to 4, and
// overestimating keeps batches under budget rather than over.
func Count(model, text string) int {
	if enc, ok := openAIEncoding(model); ok {
		tokens := enc.Encode(text, nil, nil)
		return len(tokens)
	}
	return charHeuristic(text)
}

func charHeuristic(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

var (
	encodingCacheMu sync.Mutex
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
)

// openAIEncoding returns a cached tiktoken encoder for model, or false if
// model isn't one tiktoken recognizes (e.g. any Claude or Gemini model).
func openAIEncoding(model string) (*tiktoken.Tiktoken, bool) {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()

	if enc, ok := encodingCache[model]; ok {
		return enc, enc != nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encodingCache[model] = nil
		return nil, false
	}
	encodingCache[model] = enc
	return enc, true
}
