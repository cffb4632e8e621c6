package rename

// tree-sitter-javascript grammar node types this package cares about,
// beyond the function-like set already enumerated in internal/jsast.
const (
	nodeProgram                = "program"
	nodeStatementBlock         = "statement_block"
	nodeForStatement           = "for_statement"
	nodeForInStatement         = "for_in_statement"
	nodeCatchClause            = "catch_clause"
	nodeVariableDeclaration    = "variable_declaration"
	nodeLexicalDeclaration     = "lexical_declaration"
	nodeVariableDeclarator     = "variable_declarator"
	nodeIdentifier             = "identifier"
	nodeMemberExpression       = "member_expression"
	nodePair                   = "pair"
	nodeShorthandPropertyIdent = "shorthand_property_identifier"
	nodeShorthandPropertyPatt  = "shorthand_property_identifier_pattern"
	nodeRestPattern            = "rest_pattern"
	nodeAssignmentPattern      = "assignment_pattern"
	nodeObjectPattern          = "object_pattern"
	nodeArrayPattern           = "array_pattern"
	nodeFunctionDeclaration    = "function_declaration"
	nodeGeneratorFunctionDecl  = "generator_function_declaration"
	nodeFunctionExpression     = "function_expression"
	nodeGeneratorFunctionExpr  = "generator_function"
	nodeFunction               = "function" // older grammar versions
	nodeArrowFunction          = "arrow_function"
	nodeMethodDefinition       = "method_definition"

	fieldName     = "name"
	fieldObject   = "object"
	fieldProperty = "property"
	fieldKey      = "key"
)

// isFunctionLike reports whether nodeType introduces a function scope —
// the same set internal/jsast's Parser extracts Function records from.
func isFunctionLike(nodeType string) bool {
	switch nodeType {
	case nodeFunctionDeclaration, nodeGeneratorFunctionDecl,
		nodeFunctionExpression, nodeGeneratorFunctionExpr, nodeFunction,
		nodeArrowFunction, nodeMethodDefinition:
		return true
	}
	return false
}

// isBlockScopeNode reports whether nodeType introduces a block scope for
// let/const/class bindings (var still hoists past these to the nearest
// function or program scope).
func isBlockScopeNode(nodeType string) bool {
	switch nodeType {
	case nodeStatementBlock, nodeForStatement, nodeForInStatement, nodeCatchClause:
		return true
	}
	return false
}
