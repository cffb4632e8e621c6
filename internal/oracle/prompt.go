package oracle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// systemPrompt instructs the oracle to emit exactly one JSON object and
// nothing else. It is fixed rather than templated per call site.
const systemPrompt = `You are renaming identifiers in minified JavaScript source code to improve readability.
For each function you are given, infer what it does from its body, parameters, and any call advisory comments, then suggest clearer names.
Respond with ONLY a single JSON object (optionally inside a Markdown fenced code block) of the form:
{
  "<function-id>": {
    "functionName": "optional new declaration name",
    "description": "optional one-sentence description",
    "renames": {"oldIdentifier": "newIdentifier", ...}
  },
  ...
}
Every function ID you were given must appear as a key, even if you suggest no renames for it (use an empty "renames" object in that case).
Do not rename parameters or local variables whose purpose is unclear; omit them from "renames" rather than guessing.`

// safeIdentifierRun matches runs of characters safe to echo back into a
// generated advisory comment: letters, digits, underscore, dollar, arrow,
// comma, and whitespace. Anything else (backticks, comment terminators,
// control characters) is stripped, closing the one channel through which
// unusual source content could otherwise inject text into the prompt.
var safeIdentifierRun = regexp.MustCompile(`[^A-Za-z0-9_$,\->\s]+`)

// BuildAdvisoryComment renders the "// Calls: old1→new1, old2→new2, …"
// line that Coordinator.Process builds for each function and
// BuildUserPrompt places just ahead of the function's source, restricted
// to known-name entries this function actually calls.
func BuildAdvisoryComment(callees []string, knownNames map[string]string) string {
	type pair struct{ old, new string }
	var pairs []pair
	for _, callee := range callees {
		if renamed, ok := knownNames[callee]; ok {
			pairs = append(pairs, pair{old: callee, new: renamed})
		}
	}
	if len(pairs) == 0 {
		return ""
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].old < pairs[j].old })

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, sanitize(p.old)+"→"+sanitize(p.new))
	}
	return "// Calls: " + strings.Join(parts, ", ")
}

func sanitize(s string) string {
	return safeIdentifierRun.ReplaceAllString(s, "")
}

// BuildUserPrompt assembles the per-function section of the user prompt:
// the function ID, its advisory-annotated source, and its referenced
// identifier list.
func BuildUserPrompt(fn *jsast.Function, source string, advisory string) string {
	snippet := source[fn.Start:fn.End]
	idents := jsast.ExtractReferencedIdentifiers([]byte(snippet))

	var b strings.Builder
	fmt.Fprintf(&b, "Function ID: %s\n", fn.ID)
	fmt.Fprintf(&b, "Kind: %s\n", fn.Kind)
	if advisory != "" {
		fmt.Fprintf(&b, "%s\n", advisory)
	}
	b.WriteString("Source:\n")
	b.WriteString(snippet)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Referenced identifiers: %s\n", strings.Join(idents, ", "))
	return b.String()
}

// SystemPrompt exposes the fixed system prompt for callers assembling a
// Request.
func SystemPrompt() string {
	return systemPrompt
}
