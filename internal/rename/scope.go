package rename

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

// scopeKind distinguishes the three lexical scope shapes this package
// tracks. var hoists past scopeBlock to the nearest scopeFunction or
// scopeProgram; let/const/class/catch-param and function parameters do
// not.
type scopeKind int

const (
	scopeProgram scopeKind = iota
	scopeFunction
	scopeBlock
)

// scope is one node in the lexical scope tree built over the whole
// source. FunctionID is set only for scopeFunction nodes, letting the
// renamer look up "the scope owning function X" directly.
type scope struct {
	kind       scopeKind
	functionID string
	parent     *scope
	declared   map[string]bool
	node       *sitter.Node
}

// scopeTree is the result of one buildScopeTree call: the root (program)
// scope, plus an index from function ID to that function's own scope and
// from a node's byte span to whichever scope it introduces.
type scopeTree struct {
	root            *scope
	byFunctionID    map[string]*scope
	byNodeSpan      map[[2]int]*scope
}

// buildScopeTree re-walks source (already parsed once by jsast.Parser to
// produce result) and builds a lexical scope tree over it: one scope per
// function (keyed by the same jsast Function ID so the renamer can find
// it directly), one per block/for/catch that can host a let/const/class
// or catch-param binding, and a root program scope.
func buildScopeTree(ctx context.Context, source []byte, result *jsast.ParseResult) (*scopeTree, error) {
	spanIndex := make(map[[2]int]string, len(result.Functions))
	for _, fn := range result.Functions {
		spanIndex[[2]int{fn.Start, fn.End}] = fn.ID
	}

	sp := sitter.NewParser()
	sp.SetLanguage(javascript.GetLanguage())
	tree, err := sp.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("rename: re-parse for scope tree: %w", err)
	}
	defer tree.Close()

	b := &scopeBuilder{
		source:    source,
		spanIndex: spanIndex,
		tree: &scopeTree{
			byFunctionID: make(map[string]*scope, len(result.Functions)),
			byNodeSpan:   make(map[[2]int]*scope),
		},
	}

	root := &scope{kind: scopeProgram, declared: make(map[string]bool), node: tree.RootNode()}
	b.tree.root = root
	b.tree.byNodeSpan[spanOf(tree.RootNode())] = root
	b.scanDeclarationsInto(tree.RootNode(), root, nil)
	b.walk(tree.RootNode(), root)

	return b.tree, nil
}

type scopeBuilder struct {
	source    []byte
	spanIndex map[[2]int]string
	tree      *scopeTree
}

func spanOf(node *sitter.Node) [2]int {
	return [2]int{int(node.StartByte()), int(node.EndByte())}
}

// walk descends node's children under current, creating a child scope
// whenever it encounters a function-like or block-scope-introducing node,
// and recursing with that new scope active. It does not itself collect
// declarations beyond what scanDeclarationsInto already attributed to
// current when current's owning node was entered.
func (b *scopeBuilder) walk(node *sitter.Node, current *scope) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		childType := child.Type()

		switch {
		case isFunctionLike(childType):
			fnID := b.spanIndex[spanOf(child)]
			fnScope := &scope{kind: scopeFunction, functionID: fnID, parent: current, declared: make(map[string]bool), node: child}
			if fnID != "" {
				b.tree.byFunctionID[fnID] = fnScope
			}
			b.tree.byNodeSpan[spanOf(child)] = fnScope
			b.scanDeclarationsInto(child, fnScope, fnScope)
			b.walk(child, fnScope)

		case childType == nodeStatementBlock && current.kind == scopeFunction && spanOf(node) == spanOf(current.node):
			// A function's own body block shares the function's scope, so
			// the declarations in its statement list bind there.
			b.scanStatements(child, current, current)
			b.walk(child, current)

		case isBlockScopeNode(childType):
			blockScope := &scope{kind: scopeBlock, parent: current, declared: make(map[string]bool), node: child}
			b.tree.byNodeSpan[spanOf(child)] = blockScope
			b.scanDeclarationsInto(child, blockScope, nearestHoistTarget(current))
			b.walk(child, blockScope)

		default:
			b.walk(child, current)
		}
	}
}

// nearestHoistTarget returns the nearest enclosing function or program
// scope, where `var` declarations inside a block ultimately live.
func nearestHoistTarget(s *scope) *scope {
	for s != nil {
		if s.kind == scopeFunction || s.kind == scopeProgram {
			return s
		}
		s = s.parent
	}
	return nil
}

// scanDeclarationsInto records every name scopeOwner directly binds: for
// a function scope, its own parameters; for any scope, var/let/const/
// class/function declarations and catch parameters found in its direct
// statement list (not descending into nested functions or blocks, which
// own their own declarations). `var` names are instead recorded into
// hoistTarget (the nearest function/program scope) rather than
// scopeOwner itself, since `var` ignores block boundaries.
func (b *scopeBuilder) scanDeclarationsInto(node *sitter.Node, scopeOwner *scope, hoistTarget *scope) {
	if scopeOwner.kind == scopeFunction {
		if params := node.ChildByFieldName("parameters"); params != nil {
			b.collectParamNames(params, scopeOwner)
		} else if p := node.ChildByFieldName("parameter"); p != nil {
			// Single unparenthesized arrow parameter.
			for _, n := range b.bindingNames(p) {
				scopeOwner.declared[n] = true
			}
		}
		if hoistTarget == nil {
			hoistTarget = scopeOwner
		}
	}

	b.scanStatements(node, scopeOwner, hoistTarget)
}

// scanStatements walks node's direct children (statements, or a
// catch_clause's own parameter) looking for declarations that belong to
// scopeOwner (let/const/class/function, catch param) or hoistTarget
// (var), without descending into nested function/block scopes.
func (b *scopeBuilder) scanStatements(node *sitter.Node, scopeOwner, hoistTarget *scope) {
	if node.Type() == nodeCatchClause {
		if p := node.ChildByFieldName("parameter"); p != nil {
			for _, n := range b.bindingNames(p) {
				scopeOwner.declared[n] = true
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case nodeLexicalDeclaration:
			for _, n := range b.declaratorNames(child) {
				scopeOwner.declared[n] = true
			}
		case nodeVariableDeclaration:
			for _, n := range b.declaratorNames(child) {
				if hoistTarget != nil {
					hoistTarget.declared[n] = true
				} else {
					scopeOwner.declared[n] = true
				}
			}
		case "class_declaration":
			if name := child.ChildByFieldName(fieldName); name != nil {
				scopeOwner.declared[nodeText(name, b.source)] = true
			}
		case nodeFunctionDeclaration, "generator_function_declaration":
			if name := child.ChildByFieldName(fieldName); name != nil {
				scopeOwner.declared[nodeText(name, b.source)] = true
			}
		case nodeStatementBlock, nodeForStatement, nodeForInStatement, nodeCatchClause:
			// Owned by a nested block scope, created separately in walk.
		default:
			if !isFunctionLike(child.Type()) {
				b.scanStatements(child, scopeOwner, hoistTarget)
			}
		}
	}
}

func (b *scopeBuilder) declaratorNames(declNode *sitter.Node) []string {
	var names []string
	for i := 0; i < int(declNode.ChildCount()); i++ {
		child := declNode.Child(i)
		if child.Type() != nodeVariableDeclarator {
			continue
		}
		if name := child.ChildByFieldName(fieldName); name != nil {
			names = append(names, b.bindingNames(name)...)
		}
	}
	return names
}

func (b *scopeBuilder) collectParamNames(params *sitter.Node, s *scope) {
	if params.Type() == nodeIdentifier {
		s.declared[nodeText(params, b.source)] = true
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		for _, n := range b.bindingNames(params.Child(i)) {
			s.declared[n] = true
		}
	}
}

// bindingNames returns every name a single binding target introduces:
// a bare identifier, or every bound name inside a destructuring/rest/
// default pattern. Object-literal shorthand keys inside a pattern are
// included too (`{a}` binds `a`), matching the source's own destructured
// shorthand handling.
func (b *scopeBuilder) bindingNames(node *sitter.Node) []string {
	switch node.Type() {
	case nodeIdentifier:
		return []string{nodeText(node, b.source)}
	case nodeAssignmentPattern:
		if left := node.ChildByFieldName("left"); left != nil {
			return b.bindingNames(left)
		}
	case nodeRestPattern:
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == nodeIdentifier {
				return []string{nodeText(node.Child(i), b.source)}
			}
		}
	case nodeObjectPattern:
		var names []string
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch child.Type() {
			case "shorthand_property_identifier_pattern":
				names = append(names, nodeText(child, b.source))
			case "pair_pattern":
				if value := child.ChildByFieldName("value"); value != nil {
					names = append(names, b.bindingNames(value)...)
				}
			case nodeRestPattern:
				names = append(names, b.bindingNames(child)...)
			}
		}
		return names
	case nodeArrayPattern:
		var names []string
		for i := 0; i < int(node.ChildCount()); i++ {
			names = append(names, b.bindingNames(node.Child(i))...)
		}
		return names
	}
	return nil
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
