package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/types"
)

func testSchema() *RowSchema {
	return NewRowSchema([]FieldName{
		{Correlation: "people", ColumnName: "id"},
		{Correlation: "people", ColumnName: "name"},
		{Correlation: "orders", ColumnName: "name"},
	})
}

func TestByOrdinal_Resolve(t *testing.T) {
	idx := ByOrdinal(1)
	pos, err := idx.Resolve1(testSchema())
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
}

func TestByName_Unqualified_Ambiguous(t *testing.T) {
	idx := ByName("", "name")
	_, err := idx.Resolve1(testSchema())
	require.Error(t, err)
}

func TestByName_Qualified_ResolvesExactlyOne(t *testing.T) {
	idx := ByName("orders", "name")
	pos, err := idx.Resolve1(testSchema())
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
}

func TestByName_NotFound(t *testing.T) {
	idx := ByName("", "ghost")
	_, err := idx.Resolve1(testSchema())
	require.Error(t, err)
}

func TestRow_GetAndProject(t *testing.T) {
	r := NewRow([]types.SqlValue{types.NewInteger(1), types.NewText("Alice")})
	assert.Equal(t, int64(1), r.Get(0).Int64())
	assert.Equal(t, "Alice", r.Get(1).TextValue())
	assert.Equal(t, 2, r.Len())

	projected := r.Project([]int{1, 0}, []bool{false, false})
	assert.Equal(t, "Alice", projected.Get(0).TextValue())
	assert.Equal(t, int64(1), projected.Get(1).Int64())
}

func TestRow_ProjectVoidPositionsAreNull(t *testing.T) {
	r := NewRow([]types.SqlValue{types.NewInteger(1)})
	projected := r.Project([]int{0, 0}, []bool{false, true})
	assert.False(t, projected.Get(0).IsNull())
	assert.True(t, projected.Get(1).IsNull())
}

func TestBuilder_RejectsDuplicateField(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("", "id", types.NewInteger(1)))
	err := b.Add("", "id", types.NewInteger(2))
	require.Error(t, err)
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("people", "id", types.NewInteger(1)))
	require.NoError(t, b.Add("people", "name", types.NewText("Alice")))

	r, schema := b.Build()
	assert.Equal(t, 2, schema.Len())
	pos, err := ByName("people", "name").Resolve1(schema)
	require.NoError(t, err)
	assert.Equal(t, "Alice", r.Get(pos).TextValue())
}
