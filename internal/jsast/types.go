// Package jsast parses minified JavaScript source into a flat function
// inventory suitable for bottom-up, LLM-assisted rename scheduling.
//
// Description:
//
//	jsast wraps tree-sitter's JavaScript grammar to produce a list of
//	Function records: stable IDs, byte spans, parameter metadata, and the
//	set of identifier names referenced in call position within each
//	function's body. It performs no semantic (binding) resolution — callee
//	names are purely lexical, by design (see Graph in package callgraph).
package jsast

import (
	"errors"
	"fmt"
)

// ErrParseFailed is returned when the source cannot be parsed as either a
// module or a script.
var ErrParseFailed = errors.New("jsast: source failed to parse")

// ErrInvalidUTF8 is returned when the source is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("jsast: source is not valid UTF-8")

// Kind tags the syntactic form of a function-like node. It is a sum type,
// not a class hierarchy — see DESIGN.md.
type Kind int

const (
	// KindUnknown is the zero value and never appears in a valid Function.
	KindUnknown Kind = iota
	// KindDeclaration is `function foo() {}`.
	KindDeclaration
	// KindExpression is `const f = function() {}` or an unassigned
	// function expression.
	KindExpression
	// KindArrow is `const f = () => {}`.
	KindArrow
	// KindMethod is a class or object method, excluding get/set/constructor.
	KindMethod
	// KindConstructor is a class `constructor(...) {}`.
	KindConstructor
	// KindGetter is a class or object `get x() {}`.
	KindGetter
	// KindSetter is a class or object `set x(v) {}`.
	KindSetter
)

// String renders the kind for logs and prompt payloads.
func (k Kind) String() string {
	switch k {
	case KindDeclaration:
		return "declaration"
	case KindExpression:
		return "expression"
	case KindArrow:
		return "arrow"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindGetter:
		return "getter"
	case KindSetter:
		return "setter"
	default:
		return "unknown"
	}
}

// Param describes one formal parameter.
//
// A destructuring pattern (object or array) collapses to an empty Name —
// the rename engine treats empty-name parameters as non-renameable.
type Param struct {
	Name       string
	IsRest     bool
	HasDefault bool
}

// Function is one parsed function record.
//
// ID is the stable "name_start_end" identifier used across every later
// pass (call-graph, scheduler, cache, renamer) to refer to the same
// function without holding onto AST pointers.
type Function struct {
	ID   string
	Name string
	Kind Kind

	// Start and End are byte offsets into the original source: Start is
	// inclusive and End exclusive, so source[Start:End] is the function.
	Start int
	End    int

	Params      []Param
	IsAsync     bool
	IsGenerator bool

	// ParentID is the ID of the nearest enclosing function, or "" for a
	// top-level (root) function.
	ParentID string
	// ChildIDs lists the IDs of functions directly nested within this one.
	ChildIDs []string

	// Callees is the set of identifier names that appear in call position
	// within this function's own body (not nested functions' bodies).
	Callees []string
}

// IsRoot reports whether this function has no enclosing function.
func (f *Function) IsRoot() bool {
	return f.ParentID == ""
}

// MakeID builds the stable "name_start_end" function identifier.
//
// name may be empty for anonymous forms; start (inclusive) and end
// (exclusive) are byte offsets in the original source.
func MakeID(name string, start, end int) string {
	return fmt.Sprintf("%s_%d_%d", name, start, end)
}

// ParseResult is the output of Parse: the complete function inventory for
// one source file.
type ParseResult struct {
	Source    string
	Functions []*Function
	// ByID indexes Functions by ID for O(1) lookup.
	ByID map[string]*Function
	// Roots lists the IDs of functions with no parent, sorted by ID.
	Roots []string
}
