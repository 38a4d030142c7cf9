package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/session"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

func TestSession_StateMachine(t *testing.T) {
	ctx := context.Background()
	s := session.New(nil, time.Second)
	assert.Equal(t, session.NoDB, s.State())

	require.NoError(t, s.UseDatabase(ctx, substrate.DriverSQLite, ":memory:"))
	assert.Equal(t, session.WithDb, s.State())

	require.NoError(t, s.Begin(ctx))
	assert.Equal(t, session.WithTx, s.State())

	require.NoError(t, s.Commit())
	assert.Equal(t, session.WithDb, s.State())

	require.NoError(t, s.Close())
}

func TestSession_RejectsWrongStateTransitions(t *testing.T) {
	ctx := context.Background()
	s := session.New(nil, time.Second)

	_, err := s.Execute(ctx, "SELECT * FROM people")
	var invalid *errs.InvalidTransactionState
	require.ErrorAs(t, err, &invalid)

	err = s.Begin(ctx)
	require.ErrorAs(t, err, &invalid)

	require.NoError(t, s.UseDatabase(ctx, substrate.DriverSQLite, ":memory:"))
	err = s.UseDatabase(ctx, substrate.DriverSQLite, ":memory:")
	require.ErrorAs(t, err, &invalid)

	err = s.Commit()
	require.ErrorAs(t, err, &invalid)
}

func TestSession_EndToEndDDLAndDML(t *testing.T) {
	ctx := context.Background()
	s := session.New(nil, 5*time.Second)
	require.NoError(t, s.UseDatabase(ctx, substrate.DriverSQLite, ":memory:"))
	require.NoError(t, s.Begin(ctx))

	_, err := s.Execute(ctx, "CREATE TABLE people (id INTEGER NOT NULL, name TEXT NOT NULL, PRIMARY KEY (id))")
	require.NoError(t, err)

	insertResult, err := s.Execute(ctx, "INSERT INTO people (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	require.NotNil(t, insertResult)

	selectResult, err := s.Execute(ctx, "SELECT * FROM people WHERE id = 1")
	require.NoError(t, err)
	assert.Len(t, selectResult.Rows, 1)

	require.NoError(t, s.Commit())
	require.NoError(t, s.Close())
}

func TestSession_AbortDropsChanges(t *testing.T) {
	ctx := context.Background()
	s := session.New(nil, 5*time.Second)
	require.NoError(t, s.UseDatabase(ctx, substrate.DriverSQLite, ":memory:"))
	require.NoError(t, s.Begin(ctx))
	_, err := s.Execute(ctx, "CREATE TABLE people (id INTEGER NOT NULL, name TEXT NOT NULL, PRIMARY KEY (id))")
	require.NoError(t, err)
	require.NoError(t, s.Commit())

	require.NoError(t, s.Begin(ctx))
	_, err = s.Execute(ctx, "INSERT INTO people (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	require.NoError(t, s.Abort())

	require.NoError(t, s.Begin(ctx))
	selectResult, err := s.Execute(ctx, "SELECT * FROM people")
	require.NoError(t, err)
	assert.Len(t, selectResult.Rows, 0)
	require.NoError(t, s.Commit())
}
