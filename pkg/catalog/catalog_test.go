package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
)

func openTx(t *testing.T) (*substrate.Tx, func()) {
	t.Helper()
	ctx := context.Background()
	sub, err := substrate.Open(ctx, substrate.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	return tx, func() { tx.Rollback(); sub.Close() }
}

func TestCreateTable(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	table, err := cat.CreateTable(ctx, tx,
		"people",
		[]schema.ColumnDataType{
			{Name: "id", Type: types.Integer, Nullable: false},
			{Name: "name", Type: types.Text, Nullable: false},
		},
		[]schema.TableWideConstraint{{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}}},
	)
	require.NoError(t, err)
	require.Len(t, table.Versions, 1)
	assert.Equal(t, version.Number(1), table.Versions[0].Id().Number)
}

func TestCreateTable_RejectsMissingPrimaryKey(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	_, err := cat.CreateTable(ctx, tx, "people",
		[]schema.ColumnDataType{{Name: "id", Type: types.Integer}}, nil)
	require.Error(t, err)
}

func TestLoad_RoundTrips(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	_, err := cat.CreateTable(ctx, tx, "people",
		[]schema.ColumnDataType{
			{Name: "id", Type: types.Integer, Nullable: false},
			{Name: "name", Type: types.Text, Nullable: false},
		},
		[]schema.TableWideConstraint{{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}}},
	)
	require.NoError(t, err)

	loaded, err := cat.Load(ctx, tx, "people")
	require.NoError(t, err)
	require.Len(t, loaded.Versions, 1)
	assert.Equal(t, []types.ColumnName{"id"}, loaded.VTable.PKColumnNames())
}

func TestLoad_UnknownTable(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	_, err := cat.Load(ctx, tx, "ghost")
	require.Error(t, err)
}

func TestAlterTable_AddColumnCreatesNewVersion(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	_, err := cat.CreateTable(ctx, tx, "people",
		[]schema.ColumnDataType{
			{Name: "id", Type: types.Integer, Nullable: false},
			{Name: "name", Type: types.Text, Nullable: false},
		},
		[]schema.TableWideConstraint{{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}}},
	)
	require.NoError(t, err)

	table, err := cat.AlterTable(ctx, tx, "people", version.AlterAction{
		AddColumn: &schema.ColumnDataType{Name: "age", Type: types.SmallInt, Nullable: true},
	})
	require.NoError(t, err)
	require.Len(t, table.Versions, 2)
	assert.True(t, table.Versions[1].HasColumn("age"))
	assert.False(t, table.Versions[0].HasColumn("age"))
}

func TestDropTable_RemovesMetadataAndDataTables(t *testing.T) {
	tx, cleanup := openTx(t)
	defer cleanup()
	ctx := context.Background()
	cat := New()

	_, err := cat.CreateTable(ctx, tx, "people",
		[]schema.ColumnDataType{{Name: "id", Type: types.Integer, Nullable: false}},
		[]schema.TableWideConstraint{{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}}},
	)
	require.NoError(t, err)

	require.NoError(t, cat.DropTable(ctx, tx, "people"))

	_, err = cat.Load(ctx, tx, "people")
	require.Error(t, err)
}
