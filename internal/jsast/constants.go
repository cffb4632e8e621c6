package jsast

// Tree-sitter-javascript grammar node types and field names this package
// depends on. Kept as a single named block so a grammar bump only touches
// one place.
const (
	nodeProgram = "program"

	nodeFunctionDeclaration          = "function_declaration"
	nodeGeneratorFunctionDeclaration = "generator_function_declaration"
	nodeFunctionExpression           = "function_expression"
	nodeGeneratorFunction            = "generator_function"
	nodeFunction                     = "function" // older grammar versions
	nodeArrowFunction                = "arrow_function"
	nodeMethodDefinition              = "method_definition"

	nodeClassDeclaration = "class_declaration"
	nodeClass            = "class"
	nodeClassBody        = "class_body"
	nodeClassHeritage    = "class_heritage"

	nodeVariableDeclarator  = "variable_declarator"
	nodeLexicalDeclaration  = "lexical_declaration"
	nodeVariableDeclaration = "variable_declaration"
	nodeAssignmentExpr      = "assignment_expression"

	nodeMemberExpression   = "member_expression"
	nodeSubscriptExpr      = "subscript_expression"
	nodeCallExpression     = "call_expression"
	nodeNewExpression      = "new_expression"

	nodeFormalParameters  = "formal_parameters"
	nodeAssignmentPattern = "assignment_pattern"
	nodeRestPattern       = "rest_pattern"
	nodeObjectPattern     = "object_pattern"
	nodeArrayPattern      = "array_pattern"

	nodeStatementBlock = "statement_block"

	nodeIdentifier              = "identifier"
	nodePropertyIdentifier      = "property_identifier"
	nodePrivatePropertyIdent    = "private_property_identifier"
	nodeShorthandPropertyIdent  = "shorthand_property_identifier"
	nodeComputedPropertyName    = "computed_property_name"

	nodePair            = "pair"
	nodeObject          = "object"
	nodeString           = "string"
	nodeTemplateString  = "template_string"
	nodeComment         = "comment"

	nodeImportStatement = "import_statement"
	nodeExportStatement = "export_statement"

	fieldName        = "name"
	fieldParameter    = "parameter"
	fieldParameters   = "parameters"
	fieldBody         = "body"
	fieldValue        = "value"
	fieldLeft         = "left"
	fieldRight        = "right"
	fieldObject       = "object"
	fieldProperty     = "property"
	fieldIndex        = "index"
	fieldFunction     = "function"
	fieldArguments    = "arguments"
	fieldConstructor  = "constructor"
	fieldSuperclass   = "superclass"
	fieldKey          = "key"
)

// modifierKeyword reports whether s is one of the non-field child tokens
// that precede a method_definition's name (static/async/get/set/*).
func modifierKeyword(s string) bool {
	switch s {
	case "static", "async", "get", "set", "*":
		return true
	default:
		return false
	}
}
