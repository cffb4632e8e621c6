package jsast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Declarations(t *testing.T) {
	src := `
function a(x, y) {
  return b(x) + c.d(y);
}

function b(x) {
  return x * 2;
}
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 2)

	var fnA, fnB *Function
	for _, fn := range result.Functions {
		switch fn.Name {
		case "a":
			fnA = fn
		case "b":
			fnB = fn
		}
	}
	require.NotNil(t, fnA)
	require.NotNil(t, fnB)

	assert.Equal(t, KindDeclaration, fnA.Kind)
	assert.True(t, fnA.IsRoot())
	assert.ElementsMatch(t, []string{"b", "d"}, fnA.Callees)
	assert.Equal(t, []Param{{Name: "x"}, {Name: "y"}}, fnA.Params)
}

func TestParse_NestedFunctionBoundary(t *testing.T) {
	src := `
function outer() {
  function inner() {
    helper();
  }
  unrelated();
}
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 2)

	var outer, inner *Function
	for _, fn := range result.Functions {
		switch fn.Name {
		case "outer":
			outer = fn
		case "inner":
			inner = fn
		}
	}
	require.NotNil(t, outer)
	require.NotNil(t, inner)

	assert.Equal(t, outer.ID, inner.ParentID)
	assert.Contains(t, outer.ChildIDs, inner.ID)

	// outer's own Callees must NOT include inner's callee ("helper") —
	// only names called directly within outer's own body.
	assert.ElementsMatch(t, []string{"unrelated"}, outer.Callees)
	assert.ElementsMatch(t, []string{"helper"}, inner.Callees)
}

func TestParse_ArrowAndDestructuredParams(t *testing.T) {
	src := `
const f = ({a, b}, ...rest) => a + b + rest.length;
const g = x => x + 1;
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 2)

	var f, g *Function
	for _, fn := range result.Functions {
		if len(fn.Params) == 2 {
			f = fn
		} else {
			g = fn
		}
	}
	require.NotNil(t, f)
	require.NotNil(t, g)

	assert.Equal(t, KindArrow, f.Kind)
	assert.Equal(t, "", f.Params[0].Name) // destructured -> unnamed
	assert.True(t, f.Params[1].IsRest)
	assert.Equal(t, "rest", f.Params[1].Name)

	assert.Equal(t, []Param{{Name: "x"}}, g.Params)

	// Neither arrow carries an explicit id; both must still be named after
	// the variable_declarator they initialize.
	assert.Equal(t, "f", f.Name)
	assert.Equal(t, "g", g.Name)
}

func TestParse_NameInference_AssignmentExpression(t *testing.T) {
	src := `
var a = function(x) { return x; };
a.b = function(y) { return y * 2; };
exports.run = function() {};
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 3)

	byStart := map[int]*Function{}
	for _, fn := range result.Functions {
		byStart[fn.Start] = fn
	}
	names := map[string]bool{}
	for _, fn := range result.Functions {
		names[fn.Name] = true
	}

	// `a = function(x){}` is a variable_declarator initializer -> rule (b).
	assert.True(t, names["a"])
	// `a.b = function(y){}` assigns to a member-expression LHS -> rule (c)
	// resolves to the property name, not the object name.
	assert.True(t, names["b"])
	assert.True(t, names["run"])
}

func TestParse_NameInference_ObjectProperty(t *testing.T) {
	src := `
var handlers = {
  onClick: function(e) { return e; },
  onClose() { return 1; },
};
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 2)

	names := map[string]bool{}
	for _, fn := range result.Functions {
		names[fn.Name] = true
	}
	// `onClick: function(e){}` is an object pair value -> rule (d).
	assert.True(t, names["onClick"])
	// `onClose() {}` shorthand method syntax parses as a method_definition
	// with its own name field -> rule (a), not (d), but must still resolve.
	assert.True(t, names["onClose"])
}

func TestParse_ClassMethodsAndConstructor(t *testing.T) {
	src := `
class Widget {
  constructor(name) {
    this.name = name;
  }
  get label() {
    return this.name;
  }
  render() {
    return draw(this.name);
  }
}
`
	result, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Functions, 3)

	kinds := map[string]Kind{}
	for _, fn := range result.Functions {
		kinds[fn.Name] = fn.Kind
	}
	assert.Equal(t, KindConstructor, kinds["constructor"])
	assert.Equal(t, KindGetter, kinds["label"])
	assert.Equal(t, KindMethod, kinds["render"])
}

func TestParse_InvalidUTF8(t *testing.T) {
	_, err := NewParser().Parse(context.Background(), []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestMakeID_StableAcrossCalls(t *testing.T) {
	assert.Equal(t, MakeID("foo", 10, 42), MakeID("foo", 10, 42))
	assert.NotEqual(t, MakeID("foo", 10, 42), MakeID("foo", 10, 43))
}
