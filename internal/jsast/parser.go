package jsast

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// MaxWalkDepth bounds the call-site extraction walk so pathologically
// nested expressions cannot exhaust the stack.
const MaxWalkDepth = 500

// MaxFunctions bounds the number of function records a single Parse call
// will produce, protecting the scheduler from unbounded fan-out on
// adversarial input.
const MaxFunctions = 50_000

// Parser extracts a flat Function inventory from JavaScript source using
// tree-sitter. A Parser is safe for concurrent use; each Parse call builds
// its own tree-sitter parser instance.
type Parser struct{}

// NewParser returns a ready-to-use Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse walks source once and returns every function-like construct it
// finds, with parent/child links. As each function is found, its own body
// (excluding nested function bodies) is walked to collect callee names.
// Source that tree-sitter parses with syntax errors fails with
// ErrParseFailed.
func (p *Parser) Parse(ctx context.Context, source []byte) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("jsast: parse canceled before start: %w", err)
	}
	if !utf8.Valid(source) {
		return nil, ErrInvalidUTF8
	}

	sp := sitter.NewParser()
	sp.SetLanguage(javascript.GetLanguage())

	tree, err := sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("jsast: parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: syntax error in source", ErrParseFailed)
	}

	walker := &walker{
		source: source,
		result: &ParseResult{
			Source: string(source),
			ByID:   make(map[string]*Function),
		},
	}
	walker.walk(ctx, root, nil, "")

	sort.Strings(walker.result.Roots)
	return walker.result, nil
}

// walker carries the mutable state of the first (inventory) pass.
type walker struct {
	source []byte
	result *ParseResult
}

func (w *walker) walk(ctx context.Context, node, parent *sitter.Node, parentID string) {
	if node == nil || ctx.Err() != nil {
		return
	}

	if fn := w.maybeExtract(node, parent, parentID); fn != nil {
		if len(w.result.Functions) >= MaxFunctions {
			return
		}
		w.result.Functions = append(w.result.Functions, fn)
		w.result.ByID[fn.ID] = fn
		if parentID == "" {
			w.result.Roots = append(w.result.Roots, fn.ID)
		} else if parent, ok := w.result.ByID[parentID]; ok {
			parent.ChildIDs = append(parent.ChildIDs, fn.ID)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			w.walk(ctx, node.Child(i), node, fn.ID)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(ctx, node.Child(i), node, parentID)
	}
}

// maybeExtract builds a Function from node if node is a function-like
// construct, or returns nil otherwise. Callees are collected here, by
// extractCallees over node's own body.
//
// parent is node's immediate syntactic parent (not its nearest enclosing
// function) and is consulted for name inference when node carries no
// explicit id of its own — rules (b)-(d) of the inference priority order;
// see inferName.
func (w *walker) maybeExtract(node, parent *sitter.Node, parentID string) *Function {
	var kind Kind
	switch node.Type() {
	case nodeFunctionDeclaration, nodeGeneratorFunctionDeclaration:
		kind = KindDeclaration
	case nodeFunctionExpression, nodeGeneratorFunction, nodeFunction:
		kind = KindExpression
	case nodeArrowFunction:
		kind = KindArrow
	case nodeMethodDefinition:
		kind = classifyMethod(node, w.source)
	default:
		return nil
	}

	name, isAsync, isGenerator, bodyNode, paramsNode := w.scanFunctionLike(node)
	switch node.Type() {
	case nodeGeneratorFunctionDeclaration, nodeGeneratorFunction:
		isGenerator = true
	}
	if name == "" {
		name = inferNameFromParent(node, parent, w.source)
	}
	start, end := int(node.StartByte()), int(node.EndByte())

	fn := &Function{
		ID:          MakeID(name, start, end),
		Name:        name,
		Kind:        kind,
		Start:       start,
		End:         end,
		IsAsync:     isAsync,
		IsGenerator: isGenerator,
		ParentID:    parentID,
	}
	if paramsNode != nil {
		fn.Params = extractParams(paramsNode, w.source)
	}
	if bodyNode != nil {
		fn.Callees = extractCallees(bodyNode, w.source)
	}
	return fn
}

// classifyMethod distinguishes constructor/getter/setter/method for a
// method_definition node by scanning its non-field modifier children.
func classifyMethod(node *sitter.Node, source []byte) Kind {
	name := node.ChildByFieldName(fieldName)
	if name != nil && nodeText(name, source) == "constructor" {
		return KindConstructor
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "get":
			return KindGetter
		case "set":
			return KindSetter
		}
	}
	return KindMethod
}

// scanFunctionLike walks node's direct children to pull out the name,
// async/generator flags, body, and formal-parameters node, handling the
// field-name differences between declarations, expressions, arrows, and
// methods.
func (w *walker) scanFunctionLike(node *sitter.Node) (name string, isAsync, isGenerator bool, body, params *sitter.Node) {
	if n := node.ChildByFieldName(fieldName); n != nil {
		name = nodeText(n, w.source)
	}
	if n := node.ChildByFieldName(fieldBody); n != nil {
		body = n
	}
	if n := node.ChildByFieldName(fieldParameters); n != nil {
		params = n
	} else if n := node.ChildByFieldName(fieldParameter); n != nil {
		// Single unparenthesized arrow parameter: `x => x + 1`.
		params = n
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			isAsync = true
		case "*":
			isGenerator = true
		}
	}

	return name, isAsync, isGenerator, body, params
}

// inferNameFromParent implements the fallback rungs of the name-inference
// order for a function-like node with no explicit id of its own: (b) the
// enclosing variable_declarator's name, if node is its initializer; (c) the
// identifier (or member-expression property) on the left of an enclosing
// assignment_expression, if node is its right-hand side; (d) the identifier
// key of an enclosing object pair, if node is its value. Class-method names
// (rule e) are already covered by the node's own "name" field, handled in
// scanFunctionLike. Returns "" (rule f) if none apply.
func inferNameFromParent(node, parent *sitter.Node, source []byte) string {
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case nodeVariableDeclarator:
		if parent.ChildByFieldName(fieldValue) != node {
			return ""
		}
		if n := parent.ChildByFieldName(fieldName); n != nil {
			return nodeText(n, source)
		}
	case nodeAssignmentExpr:
		if parent.ChildByFieldName(fieldRight) != node {
			return ""
		}
		left := parent.ChildByFieldName(fieldLeft)
		if left == nil {
			return ""
		}
		switch left.Type() {
		case nodeIdentifier:
			return nodeText(left, source)
		case nodeMemberExpression:
			if prop := left.ChildByFieldName(fieldProperty); prop != nil {
				return nodeText(prop, source)
			}
		}
	case nodePair:
		if parent.ChildByFieldName(fieldValue) != node {
			return ""
		}
		if key := parent.ChildByFieldName(fieldKey); key != nil {
			switch key.Type() {
			case nodePropertyIdentifier, nodeIdentifier, nodeShorthandPropertyIdent:
				return nodeText(key, source)
			case nodeString:
				return unquote(nodeText(key, source))
			}
		}
	}
	return ""
}

// extractParams reads a formal_parameters (or single bare-parameter arrow)
// node into a Param slice.
func extractParams(node *sitter.Node, source []byte) []Param {
	if node.Type() == nodeIdentifier {
		return []Param{{Name: nodeText(node, source)}}
	}

	var params []Param
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case nodeIdentifier:
			params = append(params, Param{Name: nodeText(child, source)})
		case nodeRestPattern:
			p := Param{IsRest: true}
			if id := firstIdentifier(child); id != nil {
				p.Name = nodeText(id, source)
			}
			params = append(params, p)
		case nodeAssignmentPattern:
			p := Param{HasDefault: true}
			if left := child.ChildByFieldName(fieldLeft); left != nil && left.Type() == nodeIdentifier {
				p.Name = nodeText(left, source)
			}
			params = append(params, p)
		case nodeObjectPattern, nodeArrayPattern:
			// Destructuring collapses to an unnamed, non-renameable param.
			params = append(params, Param{})
		}
	}
	return params
}

func firstIdentifier(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == nodeIdentifier {
			return node.Child(i)
		}
	}
	return nil
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// unquote strips a single layer of matching quote characters from a
// string-literal object key, e.g. `"foo"` -> `foo`. Leaves the text
// untouched if it isn't quoted the way we expect.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' || first == '\'' || first == '`') && first == last {
		return s[1 : len(s)-1]
	}
	return s
}
