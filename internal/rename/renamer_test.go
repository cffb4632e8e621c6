package rename

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shepherdjerred/jsdeminify/internal/cache"
	"github.com/shepherdjerred/jsdeminify/internal/jsast"
)

func parse(t *testing.T, src string) *jsast.ParseResult {
	t.Helper()
	result, err := jsast.NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	return result
}

func byName(result *jsast.ParseResult, name string) *jsast.Function {
	for _, fn := range result.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestApply_RenamesParamAndItsReferences(t *testing.T) {
	src := `function f(a) { return a + 1; }`
	result := parse(t, src)
	f := byName(result, "f")
	require.NotNil(t, f)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		f.ID: {Renames: map[string]string{"a": "count"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `function f(count) { return count + 1; }`, out)
}

func TestApply_OwnNameRenamesCallersAndRecursiveSelfCalls(t *testing.T) {
	src := `
function a(n) { if (n <= 1) { return 1; } return n * a(n - 1); }
function caller() { return a(5); }
`
	result := parse(t, src)
	a := byName(result, "a")
	require.NotNil(t, a)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		a.ID: {FunctionName: "factorial"},
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "a(5)")
	assert.NotContains(t, out, "a(n - 1)")
	assert.Contains(t, out, "function factorial(n)")
	assert.Contains(t, out, "factorial(n - 1)")
	assert.Contains(t, out, "factorial(5)")
}

func TestApply_OwnNameRenamesAnonymousDeclaratorInitializer(t *testing.T) {
	src := `
const a = function(n) { return n * 2; };
function caller() { return a(5); }
`
	result := parse(t, src)
	a := byName(result, "a")
	require.NotNil(t, a, "anonymous function expression must infer its name from the enclosing declarator")

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		a.ID: {FunctionName: "double"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "const double = function(n)")
	assert.Contains(t, out, "double(5)")
	assert.NotContains(t, out, "a(5)")
}

func TestApply_StopsAtShadowingDeclaration(t *testing.T) {
	src := `
function outer(x) {
  function inner(x) {
    return x + 1;
  }
  return inner(x) + x;
}
`
	result := parse(t, src)
	outer := byName(result, "outer")
	require.NotNil(t, outer)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		outer.ID: {Renames: map[string]string{"x": "value"}},
	})
	require.NoError(t, err)

	// outer's own param and its two references in outer's own body rename...
	assert.Contains(t, out, "function outer(value)")
	assert.Contains(t, out, "inner(value) + value")
	// ...but inner's own shadowing parameter and its body reference do not.
	assert.Contains(t, out, "function inner(x)")
	assert.Contains(t, out, "return x + 1;")
}

func TestApply_SkipsMemberExpressionPropertyAndShorthandKeys(t *testing.T) {
	src := `
function f(value) {
  const obj = { value };
  return obj.value + value;
}
`
	result := parse(t, src)
	f := byName(result, "f")
	require.NotNil(t, f)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		f.ID: {Renames: map[string]string{"value": "amount"}},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "function f(amount)")
	// The shorthand property `value` inside `{ value }` is left alone to
	// avoid silently changing which property the object literal sets...
	assert.Contains(t, out, "{ value }")
	// ...and so is `.value` on the member-expression read.
	assert.Contains(t, out, "obj.value")
	// But the plain reference in the return expression still renames.
	assert.Contains(t, out, "+ amount")
}

func TestApply_InsertsDescriptionComment(t *testing.T) {
	src := `function f() { return 1; }`
	result := parse(t, src)
	f := byName(result, "f")
	require.NotNil(t, f)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		f.ID: {Description: "returns a constant"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "// returns a constant\n"))
	assert.Contains(t, out, "function f() { return 1; }")
}

func TestApply_EmptyMappingLeavesFunctionUntouched(t *testing.T) {
	src := `function f(a) { return a; }`
	result := parse(t, src)
	f := byName(result, "f")
	require.NotNil(t, f)

	out, err := Apply(context.Background(), src, map[string]cache.RenameMapping{
		f.ID: {},
	})
	require.NoError(t, err)
	assert.Equal(t, src, out)
}
