// Package rename is C5: it applies oracle-suggested rename mappings back
// onto the original source, respecting lexical scope so that a rename
// inside one function never bleeds into an unrelated shadowing binding
// somewhere else in the file.
package rename

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// ErrReassemblyInvalid is returned when the source produced by applying a
// set of renames no longer parses. This should only happen if a mapping
// supplies a name that collides with JS reserved-word syntax in a way
// the oracle's own output validation didn't catch.
var ErrReassemblyInvalid = errors.New("rename: reassembled source failed to re-parse")

// edit is one span-replacement or span-insertion to apply to source.
// Insertions use start == end and come before any replacement anchored
// at the same offset, so a description comment lands immediately before
// a renamed declaration rather than after it.
type edit struct {
	start, end int
	insert     bool
	text       string
}

// Apply re-parses source, builds its lexical scope tree, and rewrites
// every identifier named by mappings (keyed by jsast Function ID) to its
// suggested replacement — the function's own declared name first, then
// each of its local Renames — honoring scope and shadowing. Functions
// absent from mappings, or present with an empty RenameMapping, are left
// untouched. The result is re-parsed to confirm it is still valid
// JavaScript before being returned.
func Apply(ctx context.Context, source string, mappings map[string]cache.RenameMapping) (string, error) {
	result, err := jsast.NewParser().Parse(ctx, []byte(source))
	if err != nil {
		return source, fmt.Errorf("rename: parse source: %w", err)
	}

	tree, err := buildScopeTree(ctx, []byte(source), result)
	if err != nil {
		return source, err
	}

	var edits []edit
	for _, fn := range result.Functions {
		mapping, ok := mappings[fn.ID]
		if !ok {
			continue
		}
		fnScope, ok := tree.byFunctionID[fn.ID]
		if !ok {
			continue
		}

		if mapping.FunctionName != "" && fn.Name != "" && mapping.FunctionName != fn.Name {
			root := fnScope.parent
			if root == nil {
				root = fnScope
			}
			edits = append(edits, collectRenameEdits(tree, root, fn.Name, mapping.FunctionName, []byte(source))...)
		}

		for old, replacement := range mapping.Renames {
			if old == "" || replacement == "" || old == replacement {
				continue
			}
			edits = append(edits, collectRenameEdits(tree, fnScope, old, replacement, []byte(source))...)
		}

		if mapping.Description != "" {
			edits = append(edits, edit{start: fn.Start, end: fn.Start, insert: true, text: descriptionComment(mapping.Description)})
		}
	}

	rewritten := applyEdits(source, edits)

	if _, err := jsast.NewParser().Parse(ctx, []byte(rewritten)); err != nil {
		// The original source, not the broken rewrite, is what callers
		// should fall back to — return it alongside the error rather than
		// an empty string.
		return source, fmt.Errorf("%w: %v", ErrReassemblyInvalid, err)
	}
	return rewritten, nil
}

// collectRenameEdits walks root's subtree, collecting an edit for every
// identifier occurrence that resolves to old — skipping member-expression
// properties, non-computed object keys, and shorthand destructuring
// properties — and pruning recursion into any descendant scope whose own
// Declared set already rebinds old (the shadowing boundary).
func collectRenameEdits(tree *scopeTree, root *scope, old, replacement string, source []byte) []edit {
	var edits []edit
	walkForRename(tree, root.node, root, old, replacement, source, &edits)
	return edits
}

// walkForRename is the actual recursive identifier walk. current is the
// scope that applies to node; when node itself introduces a new scope
// (looked up by span in tree), the walk descends into that scope for
// node's children instead.
func walkForRename(tree *scopeTree, node *sitter.Node, current *scope, old, replacement string, source []byte, edits *[]edit) {
	if node == nil {
		return
	}

	if node.Type() == nodeIdentifier {
		if nodeText(node, source) == old {
			*edits = append(*edits, edit{start: int(node.StartByte()), end: int(node.EndByte()), text: replacement})
		}
		return
	}

	if node.Type() == nodeMemberExpression {
		if obj := node.ChildByFieldName(fieldObject); obj != nil {
			walkForRename(tree, obj, current, old, replacement, source, edits)
		}
		// node's own fieldProperty child is a plain property name, never a
		// reference to a local binding — left untouched.
		return
	}

	if node.Type() == nodePair {
		// `{ key: value }`: key is a property name, not a reference; only
		// value can reference old.
		if value := node.ChildByFieldName("value"); value != nil {
			walkForRename(tree, value, current, old, replacement, source, edits)
		}
		return
	}

	switch node.Type() {
	case nodeShorthandPropertyIdent, nodeShorthandPropertyPatt:
		// Deliberately excluded: renaming `{a}` to `{b}` would change
		// which property the object literal reads or writes, not just
		// which local name is used.
		return
	}

	nextScope := current
	if child := tree.byNodeSpan[spanOf(node)]; child != nil && child != current {
		if child.kind != scopeProgram && child.declared[old] {
			// Shadowing boundary: old is rebound somewhere in this
			// subtree, so none of its identifier occurrences here can
			// resolve to the outer binding being renamed.
			return
		}
		nextScope = child
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkForRename(tree, node.Child(i), nextScope, old, replacement, source, edits)
	}
}

func descriptionComment(description string) string {
	return "// " + description + "\n"
}

// applyEdits sorts edits by position (insertions before replacements at
// the same offset) and rewrites source in a single left-to-right pass.
// Overlapping replacement edits (two renames touching the same
// identifier span) keep only the first encountered at that start offset,
// since callers only ever produce one replacement per identifier
// occurrence.
func applyEdits(source string, edits []edit) string {
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].insert && !edits[j].insert
	})

	var out []byte
	cursor := 0
	lastReplEnd := -1
	for _, e := range edits {
		if e.insert {
			if e.start < cursor {
				continue
			}
			out = append(out, source[cursor:e.start]...)
			out = append(out, e.text...)
			cursor = e.start
			continue
		}
		if e.start < cursor || e.start < lastReplEnd {
			continue
		}
		out = append(out, source[cursor:e.start]...)
		out = append(out, e.text...)
		cursor = e.end
		lastReplEnd = e.end
	}
	out = append(out, source[cursor:]...)
	return string(out)
}
