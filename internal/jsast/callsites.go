package jsast

import sitter "github.com/smacker/go-tree-sitter"

// MaxCallSitesPerFunction bounds how many callee names a single function
// body contributes, mirroring the teacher's own per-symbol call-site cap.
const MaxCallSitesPerFunction = 2048

// extractCallees walks bodyNode with an explicit stack (not recursion, to
// bound memory on deeply nested expressions) and collects every callee
// name reachable in call position, stopping at the boundary of any nested
// function-like node — those calls belong to the nested function's own
// Callees, added when the walker visits it directly.
func extractCallees(bodyNode *sitter.Node, source []byte) []string {
	if bodyNode == nil {
		return nil
	}

	type entry struct {
		node  *sitter.Node
		depth int
	}

	seen := make(map[string]struct{})
	var names []string

	stack := make([]entry, 0, 64)
	// bodyNode itself is pushed at depth 0. The nested-function boundary
	// check below applies only at depth > 0, so bodyNode is always walked,
	// even when it is itself function-like (an arrow whose expression body
	// is a function).
	stack = append(stack, entry{node: bodyNode, depth: 0})

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := top.node
		if node == nil || top.depth > MaxWalkDepth || len(names) >= MaxCallSitesPerFunction {
			continue
		}

		if top.depth > 0 && isFunctionLike(node) {
			// Nested function: its body is a separate Callees set,
			// collected when the walker visits that Function directly.
			continue
		}

		if node.Type() == nodeCallExpression {
			if name := calleeName(node, source); name != "" {
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					names = append(names, name)
				}
			}
		}
		if node.Type() == nodeNewExpression {
			if ctor := node.ChildByFieldName(fieldConstructor); ctor != nil && ctor.Type() == nodeIdentifier {
				name := nodeText(ctor, source)
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					names = append(names, name)
				}
			}
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(i); child != nil {
				stack = append(stack, entry{node: child, depth: top.depth + 1})
			}
		}
	}

	return names
}

func isFunctionLike(node *sitter.Node) bool {
	switch node.Type() {
	case nodeFunctionDeclaration, nodeGeneratorFunctionDeclaration,
		nodeFunctionExpression, nodeGeneratorFunction, nodeFunction,
		nodeArrowFunction, nodeMethodDefinition:
		return true
	default:
		return false
	}
}

// calleeName extracts the name a call_expression invokes in call
// position: the bare identifier for a simple call, or the rightmost
// property name for a member-expression call (`a.b.c()` → "c"). Computed
// member access (`a[b]()`) and any other call-target shape yield no
// name — dynamic dispatch targets are excluded from static rename
// scheduling.
func calleeName(node *sitter.Node, source []byte) string {
	fn := node.ChildByFieldName(fieldFunction)
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case nodeIdentifier:
		return nodeText(fn, source)
	case nodeMemberExpression:
		prop := fn.ChildByFieldName(fieldProperty)
		if prop == nil {
			return ""
		}
		return nodeText(prop, source)
	default:
		return ""
	}
}
