package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FunctionKey computes the 16-hex-character truncated SHA-256 cache key
// for a function's source text, after whitespace normalization (every run
// of whitespace collapses to a single space, then the result is trimmed).
// This makes the key stable across reindentation and blank-line edits
// that don't change program text.
func FunctionKey(source string) string {
	normalized := normalizeWhitespace(source)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// ProjectKey computes the 8-hex-character short hash used to namespace a
// batch-state file to its working directory, so two concurrent projects
// sharing one cache directory never collide.
func ProjectKey(workingDir string) string {
	sum := sha256.Sum256([]byte(workingDir))
	return hex.EncodeToString(sum[:])[:8]
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
