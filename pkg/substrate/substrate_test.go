package substrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
)

func openSQLite(t *testing.T) *Substrate {
	t.Helper()
	sub, err := Open(context.Background(), DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })
	return sub
}

func TestOpen_PingsTheConnection(t *testing.T) {
	_ = openSQLite(t)
}

func TestOpen_RejectsBadDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverMySQL, "not a dsn\x00", nil)
	assert.Error(t, err)
}

func TestTx_CommitAndRollback(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()

	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))
	require.NoError(t, tx.Commit())

	tx2, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback())
	// rolling back twice must not error (sql.ErrTxDone is swallowed)
	require.NoError(t, tx2.Rollback())
}

func TestVTableMetadata_RoundTrip(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))

	constraints, err := schema.NewTableWideConstraints([]schema.TableWideConstraint{
		{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
	}, []schema.ColumnDataType{{Name: "id", Type: types.Integer}})
	require.NoError(t, err)

	require.NoError(t, tx.PutVTableMetadata(ctx, "people", constraints))
	got, err := tx.GetVTableMetadata(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, []types.ColumnName{"id"}, got.PrimaryKeyColumnNames())

	// upsert overwrites rather than duplicating
	require.NoError(t, tx.PutVTableMetadata(ctx, "people", constraints))
	require.NoError(t, tx.Commit())
}

func TestVTableMetadata_NotFound(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))

	_, err = tx.GetVTableMetadata(ctx, "ghost")
	assert.Error(t, err)
}

func TestVersionMetadata_RoundTrip(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))

	cols := []schema.ColumnDataType{{Name: "name", Type: types.Text, Nullable: false}}
	require.NoError(t, tx.PutVersionMetadata(ctx, "people", 1, cols, nil, true))
	require.NoError(t, tx.PutVersionMetadata(ctx, "people", 2, cols, nil, true))

	rows, err := tx.ListVersionMetadata(ctx, "people")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(1), rows[0].VersionNumber)
	assert.Equal(t, uint64(2), rows[1].VersionNumber)
	assert.True(t, rows[0].IsActive)
	require.Len(t, rows[0].Columns, 1)
	assert.Equal(t, types.ColumnName("name"), rows[0].Columns[0].Name)
}

func TestVersionDataTable_CreateInsertSelectDrop(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)

	cols := []schema.ColumnDataType{{Name: "name", Type: types.Text, Nullable: false}}
	require.NoError(t, tx.CreateVersionTable(ctx, "people__v1", cols))
	require.NoError(t, tx.InsertVersionRow(ctx, "people__v1", 1, map[types.ColumnName]types.SqlValue{
		"name": types.NewText("Alice"),
	}))

	rows, err := tx.SelectVersionRows(ctx, "people__v1", []types.ColumnName{"name"}, []int64{1})
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, "Alice", rows.Values[0][1])

	require.NoError(t, tx.DropDataTable(ctx, "people__v1"))
	require.NoError(t, tx.Commit())
}

func TestSelectVersionRows_EmptyRowidsSkipsQuery(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)

	rows, err := tx.SelectVersionRows(ctx, "people__v1", []types.ColumnName{"name"}, nil)
	require.NoError(t, err)
	assert.Len(t, rows.Values, 0)
}

func TestDeleteTableMetadata(t *testing.T) {
	sub := openSQLite(t)
	ctx := context.Background()
	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))

	constraints, err := schema.NewTableWideConstraints([]schema.TableWideConstraint{
		{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
	}, []schema.ColumnDataType{{Name: "id", Type: types.Integer}})
	require.NoError(t, err)
	require.NoError(t, tx.PutVTableMetadata(ctx, "people", constraints))
	require.NoError(t, tx.PutVersionMetadata(ctx, "people", 1, nil, nil, true))

	require.NoError(t, tx.DeleteTableMetadata(ctx, "people"))

	_, err = tx.GetVTableMetadata(ctx, "people")
	assert.Error(t, err)
	rows, err := tx.ListVersionMetadata(ctx, "people")
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}

func TestQuoteIdent(t *testing.T) {
	sub := openSQLite(t)
	assert.Equal(t, "`people`", sub.QuoteIdent("people"))
	assert.Equal(t, "`a``b`", sub.QuoteIdent("a`b"))
}
