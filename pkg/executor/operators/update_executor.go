package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/expr"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
	"github.com/kasugasql/immutaschema/pkg/vrr"
)

// UpdateOperator implements §4.8's UPDATE as SELECT-then-tombstone-then-
// INSERT: its single child (a Selection over a SeqScan, projected to every
// column) selects the rows to update; each one gets a tombstone at
// revision+1 and is re-inserted at revision+2 with Assignments applied, against
// whichever version now accepts the resulting column set.
type UpdateOperator struct {
	*BaseOperator
	config *plan.UpdateConfig
}

func NewUpdateOperator(p *plan.Plan) (*UpdateOperator, error) {
	cfg, ok := p.Config.(*plan.UpdateConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Update: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &UpdateOperator{BaseOperator: base, config: cfg}, nil
}

func (op *UpdateOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) != 1 {
		return nil, errs.NewSystemError("UpdateOperator requires exactly one child")
	}
	source, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	table, err := cat.Load(ctx, tx, op.config.TableName)
	if err != nil {
		return nil, err
	}
	pkCols := table.VTable.PKColumnNames()
	fields := source.Schema.Fields()

	var updated int64
	for _, r := range source.Rows {
		columnValues := make(map[types.ColumnName]types.SqlValue, len(fields))
		for i, f := range fields {
			columnValues[f.ColumnName] = r.Get(i)
		}

		for col, e := range op.config.Assignments {
			newVal, err := expr.Eval(e, &r, source.Schema)
			if err != nil {
				return nil, err
			}
			columnValues[col] = newVal
		}

		apk, err := buildAPK(op.config.TableName, pkCols, columnValues)
		if err != nil {
			return nil, err
		}

		probe, err := table.VRR.Probe(ctx, tx, apk)
		if err != nil {
			return nil, err
		}
		if probe.State != vrr.Exist {
			continue // row no longer live; nothing to update
		}

		if err := table.VRR.InsertTombstones(ctx, tx, []vrr.Entry{{APK: apk, Revision: probe.Revision}}); err != nil {
			return nil, err
		}

		nonPKValues := nonPKColumnValues(columnValues, pkCols)

		v, err := version.LargestAccepting(table.Versions, nonPKValues)
		if err != nil {
			return nil, err
		}
		naviRowid, err := table.VRR.Insert(ctx, tx, apk, probe.Revision+2, uint64(v.Id().Number))
		if err != nil {
			return nil, err
		}
		nonPK := make(map[types.ColumnName]types.SqlValue, len(v.NonPKColumns()))
		for _, c := range v.NonPKColumns() {
			if val, ok := nonPKValues[c.Name]; ok {
				nonPK[c.Name] = val
			} else {
				nonPK[c.Name] = types.NullValue
			}
		}
		if err := tx.InsertVersionRow(ctx, v.DataTableName(), naviRowid, nonPK); err != nil {
			return nil, err
		}
		updated++
	}

	return rowsAffectedResult(op.config.TableName, updated), nil
}
