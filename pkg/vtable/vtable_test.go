package vtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
)

func TestVTable_Accessors(t *testing.T) {
	constraints, err := schema.NewTableWideConstraints([]schema.TableWideConstraint{
		{Kind: schema.PrimaryKey, ColumnNames: []types.ColumnName{"id"}},
	}, []schema.ColumnDataType{{Name: "id", Type: types.Integer}})
	require.NoError(t, err)

	id := Id{Database: "main", Table: "people"}
	vt := New(id, constraints)

	assert.Equal(t, id, vt.Id())
	assert.Equal(t, constraints, vt.Constraints())
	assert.Equal(t, []types.ColumnName{"id"}, vt.PKColumnNames())
	assert.Equal(t, "people__navi", vt.NaviTableName())
}
