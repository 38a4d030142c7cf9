package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/types"
)

func columns() []ColumnDataType {
	return []ColumnDataType{
		{Name: "id", Type: types.Integer, Nullable: false},
		{Name: "name", Type: types.Text, Nullable: false},
		{Name: "nickname", Type: types.Text, Nullable: true},
	}
}

func TestNewTableWideConstraints_Valid(t *testing.T) {
	c, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
		{Kind: Unique, ColumnNames: []types.ColumnName{"name"}},
	}, columns())
	require.NoError(t, err)
	assert.Equal(t, []types.ColumnName{"id"}, c.PrimaryKeyColumnNames())
	require.Len(t, c.PrimaryKeyColumns(), 1)
	assert.Equal(t, types.Integer, c.PrimaryKeyColumns()[0].Type)
	assert.Len(t, c.All(), 2)
}

func TestNewTableWideConstraints_RequiresExactlyOnePrimaryKey(t *testing.T) {
	_, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: Unique, ColumnNames: []types.ColumnName{"name"}},
	}, columns())
	require.Error(t, err)

	_, err = NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"name"}},
	}, columns())
	require.Error(t, err)
}

func TestNewTableWideConstraints_RejectsDuplicateColumnInOneConstraint(t *testing.T) {
	_, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"id", "id"}},
	}, columns())
	require.Error(t, err)
}

func TestNewTableWideConstraints_RejectsUndefinedColumn(t *testing.T) {
	_, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"ghost"}},
	}, columns())
	require.Error(t, err)
}

func TestNewTableWideConstraints_RejectsDuplicateConstraintSet(t *testing.T) {
	_, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
		{Kind: Unique, ColumnNames: []types.ColumnName{"id"}},
	}, columns())
	require.Error(t, err)
}

func TestTableWideConstraints_Marshal(t *testing.T) {
	c, err := NewTableWideConstraints([]TableWideConstraint{
		{Kind: PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
	}, columns())
	require.NoError(t, err)

	out, err := c.Marshal()
	require.NoError(t, err)
	require.Len(t, out.Constraints, 1)
	assert.Equal(t, "PRIMARY_KEY", out.Constraints[0].Kind)
	assert.Equal(t, []string{"id"}, out.Constraints[0].Columns)
	require.Len(t, out.PKColumns, 1)
	assert.Equal(t, "id", out.PKColumns[0].Name)
}

func TestConstraintKind_String(t *testing.T) {
	assert.Equal(t, "PRIMARY_KEY", PrimaryKey.String())
	assert.Equal(t, "UNIQUE", Unique.String())
}
