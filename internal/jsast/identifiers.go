package jsast

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ExtractReferencedIdentifiers returns every distinct identifier name
// referenced within source (parsed standalone), excluding member-access
// property names and non-computed object-literal keys — those are
// spelled out by the surrounding structure, not independently renameable
// references, and including them would just pad the oracle prompt with
// noise. Order is first-seen, for stable prompt output.
func ExtractReferencedIdentifiers(source []byte) []string {
	sp := sitter.NewParser()
	sp.SetLanguage(javascript.GetLanguage())
	tree := sp.Parse(nil, source)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	seen := make(map[string]struct{})
	var names []string

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		switch node.Type() {
		case nodeIdentifier:
			name := nodeText(node, source)
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
			return
		case nodeMemberExpression:
			// Walk only the object side; the property side is not an
			// independent reference.
			if obj := node.ChildByFieldName(fieldObject); obj != nil {
				walk(obj)
			}
			return
		case nodePair:
			// Object literal `{ key: value }`: key is a label, not a
			// reference, unless computed (`{[key]: value}`, where key IS
			// a child expression we should walk).
			if key := node.ChildByFieldName(fieldKey); key != nil && key.Type() != nodePropertyIdentifier && key.Type() != nodeString {
				walk(key)
			}
			if val := node.ChildByFieldName(fieldValue); val != nil {
				walk(val)
			}
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())

	return names
}
