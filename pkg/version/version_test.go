package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/vtable"
)

func initialVersion() *Version {
	return Initial(vtable.Id{Database: "main", Table: "people"},
		[]types.ColumnName{"id"},
		[]schema.ColumnDataType{{Name: "name", Type: types.Text, Nullable: false}})
}

func TestInitial_DataTableName(t *testing.T) {
	v := initialVersion()
	assert.Equal(t, Number(1), v.Id().Number)
	assert.Equal(t, "people__v1", v.DataTableName())
	assert.True(t, v.HasColumn("name"))
	assert.False(t, v.HasColumn("ghost"))
}

func TestNext_AddColumn(t *testing.T) {
	v := initialVersion()
	v2, err := v.Next(AlterAction{AddColumn: &schema.ColumnDataType{Name: "age", Type: types.SmallInt, Nullable: true}})
	require.NoError(t, err)
	assert.Equal(t, Number(2), v2.Id().Number)
	assert.True(t, v2.HasColumn("age"))
	assert.True(t, v.HasColumn("name")) // the original is untouched
	assert.False(t, v.HasColumn("age"))
}

func TestNext_AddColumn_RejectsDuplicate(t *testing.T) {
	v := initialVersion()
	_, err := v.Next(AlterAction{AddColumn: &schema.ColumnDataType{Name: "name", Type: types.Text}})
	require.Error(t, err)
}

func TestNext_DropColumn(t *testing.T) {
	v := initialVersion()
	v2, err := v.Next(AlterAction{DropColumn: "name"})
	require.NoError(t, err)
	assert.False(t, v2.HasColumn("name"))
}

func TestNext_DropColumn_RejectsPrimaryKey(t *testing.T) {
	v := initialVersion()
	_, err := v.Next(AlterAction{DropColumn: "id"})
	require.Error(t, err)
}

func TestNext_DropColumn_RejectsUnknownColumn(t *testing.T) {
	v := initialVersion()
	_, err := v.Next(AlterAction{DropColumn: "ghost"})
	require.Error(t, err)
}

func TestNext_RejectsNeitherAction(t *testing.T) {
	v := initialVersion()
	_, err := v.Next(AlterAction{})
	require.Error(t, err)
}

func TestCheckInsertability(t *testing.T) {
	v := initialVersion()
	err := v.CheckInsertability(map[types.ColumnName]types.SqlValue{"name": types.NewText("Alice")})
	require.NoError(t, err)

	err = v.CheckInsertability(map[types.ColumnName]types.SqlValue{})
	require.Error(t, err)

	err = v.CheckInsertability(map[types.ColumnName]types.SqlValue{"ghost": types.NewText("x")})
	require.Error(t, err)
}

func TestLargestAccepting(t *testing.T) {
	v1 := initialVersion()
	v2, err := v1.Next(AlterAction{AddColumn: &schema.ColumnDataType{Name: "age", Type: types.SmallInt, Nullable: false}})
	require.NoError(t, err)

	// v2 requires "age"; a row without it can only be accepted by v1.
	chosen, err := LargestAccepting([]*Version{v1, v2}, map[types.ColumnName]types.SqlValue{"name": types.NewText("Alice")})
	require.NoError(t, err)
	assert.Equal(t, Number(1), chosen.Id().Number)

	chosen, err = LargestAccepting([]*Version{v1, v2}, map[types.ColumnName]types.SqlValue{
		"name": types.NewText("Alice"), "age": types.NewSmallInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, Number(2), chosen.Id().Number)
}

func TestLargestAccepting_NoneAccept(t *testing.T) {
	v1 := initialVersion()
	_, err := LargestAccepting([]*Version{v1}, map[types.ColumnName]types.SqlValue{})
	require.Error(t, err)
}

func TestLargestAccepting_NoVersions(t *testing.T) {
	_, err := LargestAccepting(nil, map[types.ColumnName]types.SqlValue{})
	require.Error(t, err)
}
