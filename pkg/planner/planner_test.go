package planner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/executor"
	"github.com/kasugasql/immutaschema/pkg/parser"
	"github.com/kasugasql/immutaschema/pkg/planner"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

func TestPlanner_EndToEnd(t *testing.T) {
	ctx := context.Background()
	sub, err := substrate.Open(ctx, substrate.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	defer sub.Close()

	cat := catalog.New()
	exec := executor.NewExecutor()
	ad := parser.NewAdapter()

	tx, err := sub.Begin(ctx)
	require.NoError(t, err)

	createCmd, err := ad.Parse("CREATE TABLE people (id INTEGER NOT NULL, name TEXT NOT NULL, PRIMARY KEY (id))")
	require.NoError(t, err)
	_, err = cat.CreateTable(ctx, tx, createCmd.CreateTable.TableName, createCmd.CreateTable.Columns, createCmd.CreateTable.Constraints)
	require.NoError(t, err)

	insertCmd, err := ad.Parse("INSERT INTO people (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	insertResult, err := exec.Execute(ctx, tx, cat, planner.BuildInsert(insertCmd.Insert))
	require.NoError(t, err)
	assert.Equal(t, int64(1), insertResult.Rows[0].Get(0).Int64())

	updateCmd, err := ad.Parse("UPDATE people SET name = 'Alicia' WHERE id = 1")
	require.NoError(t, err)
	updateResult, err := exec.Execute(ctx, tx, cat, planner.BuildUpdate(updateCmd.Update))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updateResult.Rows[0].Get(0).Int64())

	selectCmd, err := ad.Parse("SELECT * FROM people WHERE id = 1")
	require.NoError(t, err)
	selectResult, err := exec.Execute(ctx, tx, cat, planner.BuildSelect(selectCmd.Select))
	require.NoError(t, err)
	require.Len(t, selectResult.Rows, 1)
	namePos, err := row.ByName("people", "name").Resolve1(selectResult.Schema)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", selectResult.Rows[0].Get(namePos).TextValue())

	deleteCmd, err := ad.Parse("DELETE FROM people")
	require.NoError(t, err)
	deleteResult, err := exec.Execute(ctx, tx, cat, planner.BuildDelete(deleteCmd.Delete))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleteResult.Rows[0].Get(0).Int64())

	require.NoError(t, tx.Commit())
}
