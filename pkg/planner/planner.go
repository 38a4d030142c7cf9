// Package planner lowers a parsed Command (C4) into the plan tree the
// executor (C11/C12) runs: SELECT becomes SeqScan optionally wrapped in
// Selection/HashJoin/Projection/Sort; INSERT/UPDATE/DELETE become their
// modification node wrapping the matching-rows sub-plan. DDL commands
// (CREATE/ALTER/DROP TABLE) bypass the plan tree entirely and are applied
// straight through the Catalog, following the original implementation's
// "DDL and DML share one transactional entry point, but DDL has no plan"
// split (§4.8/§9).
package planner

import (
	"github.com/kasugasql/immutaschema/pkg/parser"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/projection"
	"github.com/kasugasql/immutaschema/pkg/row"
)

// BuildSelect lowers a SelectCommand into a plan rooted at (optionally)
// Projection, over (optionally) Sort, over (optionally) Selection, over a
// SeqScan or HashJoin.
func BuildSelect(cmd *parser.SelectCommand) *plan.Plan {
	left := &plan.Plan{
		Type: plan.TypeSeqScan,
		Config: &plan.SeqScanConfig{
			TableName:  cmd.TableName,
			Projection: projection.Query{All: true},
		},
	}

	base := left
	if cmd.Join != nil {
		right := &plan.Plan{
			Type: plan.TypeSeqScan,
			Config: &plan.SeqScanConfig{
				TableName:  cmd.Join.Table,
				Projection: projection.Query{All: true},
			},
		}
		base = &plan.Plan{
			Type: plan.TypeHashJoin,
			Config: &plan.HashJoinConfig{
				LeftIndex:  cmd.Join.LeftIndex,
				RightIndex: cmd.Join.RightIndex,
			},
			Children: []*plan.Plan{left, right},
		}
	}

	if cmd.Where != nil {
		base = &plan.Plan{
			Type:     plan.TypeSelection,
			Config:   &plan.SelectionConfig{Condition: cmd.Where},
			Children: []*plan.Plan{base},
		}
	}

	if len(cmd.OrderBy) > 0 {
		keys := make([]plan.SortKey, len(cmd.OrderBy))
		for i, ob := range cmd.OrderBy {
			keys[i] = plan.SortKey{Index: ob.Index, Descending: ob.Descending}
		}
		base = &plan.Plan{
			Type:     plan.TypeSort,
			Config:   &plan.SortConfig{Keys: keys},
			Children: []*plan.Plan{base},
		}
	}

	if cmd.Columns != nil {
		indexes := make([]row.SchemaIndex, len(cmd.Columns))
		for i, c := range cmd.Columns {
			indexes[i] = c.Index
		}
		base = &plan.Plan{
			Type:     plan.TypeProjection,
			Config:   &plan.ProjectionConfig{Indexes: indexes},
			Children: []*plan.Plan{base},
		}
	}

	return base
}

// BuildInsert lowers an InsertCommand into Insert over InsertValues.
func BuildInsert(cmd *parser.InsertCommand) *plan.Plan {
	rows := make([]row.Row, len(cmd.Values))
	for i, v := range cmd.Values {
		rows[i] = row.NewRow(v)
	}
	return &plan.Plan{
		Type:   plan.TypeInsert,
		Config: &plan.InsertConfig{TableName: cmd.TableName},
		Children: []*plan.Plan{{
			Type: plan.TypeInsertValues,
			Config: &plan.InsertValuesConfig{
				TableName: cmd.TableName,
				Columns:   cmd.Columns,
				Values:    rows,
			},
		}},
	}
}

// BuildUpdate lowers an UpdateCommand into Update over a SeqScan, optionally
// filtered by a Selection when Where is present.
func BuildUpdate(cmd *parser.UpdateCommand) *plan.Plan {
	scan := &plan.Plan{
		Type: plan.TypeSeqScan,
		Config: &plan.SeqScanConfig{
			TableName:  cmd.TableName,
			Projection: projection.Query{All: true},
		},
	}
	child := scan
	if cmd.Where != nil {
		child = &plan.Plan{
			Type:     plan.TypeSelection,
			Config:   &plan.SelectionConfig{Condition: cmd.Where},
			Children: []*plan.Plan{scan},
		}
	}
	return &plan.Plan{
		Type: plan.TypeUpdate,
		Config: &plan.UpdateConfig{
			TableName:   cmd.TableName,
			Assignments: cmd.Assignments,
		},
		Children: []*plan.Plan{child},
	}
}

// BuildDelete lowers a DeleteCommand. With no WHERE it's an AllRows Delete
// with no child (§4.8); otherwise its child selects the matching rows.
func BuildDelete(cmd *parser.DeleteCommand) *plan.Plan {
	if cmd.Where == nil {
		return &plan.Plan{
			Type:   plan.TypeDelete,
			Config: &plan.DeleteConfig{TableName: cmd.TableName, AllRows: true},
		}
	}
	scan := &plan.Plan{
		Type: plan.TypeSeqScan,
		Config: &plan.SeqScanConfig{
			TableName:  cmd.TableName,
			Projection: projection.Query{All: true},
		},
	}
	selection := &plan.Plan{
		Type:     plan.TypeSelection,
		Config:   &plan.SelectionConfig{Condition: cmd.Where},
		Children: []*plan.Plan{scan},
	}
	return &plan.Plan{
		Type:     plan.TypeDelete,
		Config:   &plan.DeleteConfig{TableName: cmd.TableName, AllRows: false},
		Children: []*plan.Plan{selection},
	}
}
