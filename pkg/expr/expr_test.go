package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/types"
)

func testRow() (*row.Row, *row.RowSchema) {
	r := row.NewRow([]types.SqlValue{types.NewInteger(10), types.NullValue, types.NewText("hi")})
	schema := row.NewRowSchema([]row.FieldName{
		{ColumnName: "age"},
		{ColumnName: "nickname"},
		{ColumnName: "greeting"},
	})
	return &r, schema
}

func TestEval_Constant(t *testing.T) {
	v, err := Eval(Constant(types.NewInteger(5)), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int64())
}

func TestEval_Index(t *testing.T) {
	r, schema := testRow()
	v, err := Eval(Index(row.ByName("", "age")), r, schema)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.Int64())
}

func TestEval_UnaryMinus(t *testing.T) {
	v, err := Eval(Unary(Minus, Constant(types.NewInteger(5))), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-5), v.Int64())
}

func TestEval_UnaryMinus_RejectsNonNumeric(t *testing.T) {
	_, err := Eval(Unary(Minus, Constant(types.NewText("x"))), nil, nil)
	require.Error(t, err)
}

func TestEvalCompare_Equal(t *testing.T) {
	b := Compare(Constant(types.NewInteger(5)), Constant(types.NewInteger(5)), Eq)
	result, err := EvalBool(b, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, *result)
}

func TestEvalCompare_NullPropagates(t *testing.T) {
	r, schema := testRow()
	b := Compare(Index(row.ByName("", "nickname")), Constant(types.NewText("x")), Eq)
	result, err := EvalBool(b, r, schema)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvalCompare_DatatypeMismatch(t *testing.T) {
	b := Compare(Constant(types.NewInteger(5)), Constant(types.NewText("x")), Eq)
	_, err := EvalBool(b, nil, nil)
	require.Error(t, err)
}

func TestKleeneAnd(t *testing.T) {
	tr, fa := true, false
	assert.Equal(t, &fa, kleeneAnd(&fa, &tr))
	assert.Equal(t, &fa, kleeneAnd(&tr, &fa))
	assert.Equal(t, &tr, kleeneAnd(&tr, &tr))
	assert.Nil(t, kleeneAnd(&tr, nil))
	assert.Nil(t, kleeneAnd(nil, &tr))
	// false AND NULL is false, not unknown
	assert.Equal(t, &fa, kleeneAnd(&fa, nil))
}

func TestKleeneOr(t *testing.T) {
	tr, fa := true, false
	assert.Equal(t, &tr, kleeneOr(&tr, &fa))
	assert.Equal(t, &fa, kleeneOr(&fa, &fa))
	assert.Nil(t, kleeneOr(&fa, nil))
	// true OR NULL is true, not unknown
	assert.Equal(t, &tr, kleeneOr(&tr, nil))
}

func TestLogical_And(t *testing.T) {
	b := Logical(
		Compare(Constant(types.NewInteger(1)), Constant(types.NewInteger(1)), Eq),
		Compare(Constant(types.NewInteger(2)), Constant(types.NewInteger(3)), Eq),
		And,
	)
	result, err := EvalBool(b, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, *result)
}

func TestNot(t *testing.T) {
	b := Not(Compare(Constant(types.NewInteger(1)), Constant(types.NewInteger(1)), Eq))
	result, err := EvalBool(b, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, *result)
}

func TestNot_Null(t *testing.T) {
	r, schema := testRow()
	b := Not(Compare(Index(row.ByName("", "nickname")), Constant(types.NewText("x")), Eq))
	result, err := EvalBool(b, r, schema)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestToBool(t *testing.T) {
	b, err := ToBool(types.NewBoolean(true))
	require.NoError(t, err)
	assert.True(t, b)

	b, err = ToBool(types.NullValue)
	require.NoError(t, err)
	assert.False(t, b)

	_, err = ToBool(types.NewInteger(1))
	require.Error(t, err, "integers must not coerce to boolean")
}

func TestEvalToBool(t *testing.T) {
	b := Compare(Constant(types.NewInteger(1)), Constant(types.NewInteger(1)), Eq)
	ok, err := EvalToBool(b, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEval_BooleanWrapsBoolExpr(t *testing.T) {
	e := Boolean(Compare(Constant(types.NewInteger(1)), Constant(types.NewInteger(2)), Eq))
	v, err := Eval(e, nil, nil)
	require.NoError(t, err)
	assert.False(t, v.Bool())
}
