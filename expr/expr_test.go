package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapContext struct {
	vars map[string]Value
	rand Value
	rank Value
}

func (c mapContext) Get(name string) (Value, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c mapContext) Rand() Value { return c.rand }
func (c mapContext) Rank() Value { return c.rank }

func evalString(t *testing.T, src string, ctx Context) Value {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err)
	v, err := Eval(e, ctx)
	require.NoError(t, err)
	return v
}

func TestPrecedence(t *testing.T) {
	ctx := mapContext{}
	assert.Equal(t, Value(5), evalString(t, "1+2*2", ctx))
	assert.Equal(t, Value(5), evalString(t, "2*2+1", ctx))
}

func TestGrouping(t *testing.T) {
	ctx := mapContext{}
	assert.Equal(t, Value(6), evalString(t, "(2+1)*2", ctx))
	assert.Equal(t, Value(1), evalString(t, "-(-1)", ctx))
	assert.Equal(t, Value(-14), evalString(t, "2*(1-2*4)", ctx))
}

func TestParseErrorOffsets(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{"(", 1},
		{"+", 0},
		{"4+", 2},
	}

	for _, tt := range tests {
		_, err := Parse(tt.src)
		require.Error(t, err)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, tt.offset, perr.Offset, "source %q", tt.src)
	}
}

func TestParseVariables(t *testing.T) {
	e, err := Parse("$rank")
	require.NoError(t, err)
	assert.Equal(t, ExprVar, e.Kind)
	assert.Equal(t, VarRank, e.VarKind)

	e, err = Parse("$rankvar")
	require.NoError(t, err)
	assert.Equal(t, ExprVar, e.Kind)
	assert.Equal(t, VarNamed, e.VarKind)
	assert.Equal(t, "rankvar", e.Name)

	e, err = Parse("$rand")
	require.NoError(t, err)
	assert.Equal(t, VarRand, e.VarKind)

	e, err = Parse("$randvar")
	require.NoError(t, err)
	assert.Equal(t, VarNamed, e.VarKind)
	assert.Equal(t, "randvar", e.Name)
}

func TestParseReferenceParameters(t *testing.T) {
	ctx := mapContext{vars: map[string]Value{"1": 3, "loop.index": 2}}
	assert.Equal(t, Value(3), evalString(t, "$1", ctx))
	assert.Equal(t, Value(2), evalString(t, "$loop.index", ctx))
	assert.Equal(t, Value(5), evalString(t, "$1+$loop.index", ctx))
}

func TestConstantFoldingRoundTrip(t *testing.T) {
	tests := []struct {
		src      string
		expected Value
	}{
		{"1+2*2", 5},
		{"(2+1)*2", 6},
		{"-(-1)", 1},
		{"2*(1-2*4)", -14},
		{"4%3", 1},
		{"sin(90)", 1},
	}

	for _, tt := range tests {
		e, err := Parse(tt.src)
		require.NoError(t, err)
		require.Equal(t, ExprFloat, e.Kind, "source %q did not fold to a literal", tt.src)
		assert.InDelta(t, float64(tt.expected), float64(e.Float), 1e-5)
	}
}

func TestConstantFoldingKeepsVariables(t *testing.T) {
	e, err := Parse("$x+1")
	require.NoError(t, err)
	assert.Equal(t, ExprBinary, e.Kind)
}

func TestUndefinedVariable(t *testing.T) {
	e, err := Parse("$missing")
	require.NoError(t, err)

	_, err = Eval(e, mapContext{vars: map[string]Value{}})
	require.Error(t, err)

	var uerr *UndefinedVariableError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "missing", uerr.Name)
}

func TestRandAndRank(t *testing.T) {
	ctx := mapContext{rand: 0.25, rank: 0.75}
	assert.Equal(t, Value(0.25), evalString(t, "$rand", ctx))
	assert.Equal(t, Value(0.75), evalString(t, "$rank", ctx))
}

func TestNamedVariable(t *testing.T) {
	ctx := mapContext{vars: map[string]Value{"x": 3}}
	assert.Equal(t, Value(9), evalString(t, "$x*3", ctx))
}

func TestWhitespace(t *testing.T) {
	ctx := mapContext{}
	assert.Equal(t, Value(7), evalString(t, "  3 + 4  ", ctx))
	assert.Equal(t, Value(7), evalString(t, "3\t+\t4", ctx))
}
