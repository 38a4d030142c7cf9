package substrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// TestSubstrate_MySQLBackend exercises the same metadata/version-table paths
// as the sqlite tests, but against a real go-sql-driver/mysql connection to a
// containerized MySQL server, confirming the substrate's SQL is portable
// across both bound backends (SPEC_FULL.md's domain stack).
func TestSubstrate_MySQLBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MySQL container integration test in short mode")
	}
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("immutaschema_test"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	sub, err := Open(ctx, DriverMySQL, dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() })

	tx, err := sub.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureSystemTables(ctx))

	constraints, err := schema.NewTableWideConstraints([]schema.TableWideConstraint{
		{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
	}, []schema.ColumnDataType{{Name: "id", Type: types.Integer}})
	require.NoError(t, err)
	require.NoError(t, tx.PutVTableMetadata(ctx, "people", constraints))

	cols := []schema.ColumnDataType{{Name: "name", Type: types.Text, Nullable: false}}
	require.NoError(t, tx.CreateVersionTable(ctx, "people__v1", cols))
	require.NoError(t, tx.InsertVersionRow(ctx, "people__v1", 1, map[types.ColumnName]types.SqlValue{
		"name": types.NewText("Alice"),
	}))

	rows, err := tx.SelectVersionRows(ctx, "people__v1", []types.ColumnName{"name"}, []int64{1})
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)

	require.NoError(t, tx.Commit())
}
