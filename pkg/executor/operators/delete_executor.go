package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/vrr"
)

// DeleteOperator implements §4.8's DELETE: with AllRows it tombstones every
// live APK directly through the VRR (DELETE without WHERE); otherwise its
// single child (a Selection over a SeqScan projected to every column)
// selects the rows to remove, and each matched APK is tombstoned at its
// current revision.
type DeleteOperator struct {
	*BaseOperator
	config *plan.DeleteConfig
}

func NewDeleteOperator(p *plan.Plan) (*DeleteOperator, error) {
	cfg, ok := p.Config.(*plan.DeleteConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Delete: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if !cfg.AllRows {
		if err := base.BuildChildOperators(Build); err != nil {
			return nil, err
		}
	}
	return &DeleteOperator{BaseOperator: base, config: cfg}, nil
}

func (op *DeleteOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	table, err := cat.Load(ctx, tx, op.config.TableName)
	if err != nil {
		return nil, err
	}

	if op.config.AllRows {
		entries, err := table.VRR.Scan(ctx, tx)
		if err != nil {
			return nil, err
		}
		if err := table.VRR.InsertTombstones(ctx, tx, entries); err != nil {
			return nil, err
		}
		return rowsAffectedResult(op.config.TableName, int64(len(entries))), nil
	}

	if len(op.children) != 1 {
		return nil, errs.NewSystemError("DeleteOperator requires exactly one child when AllRows is false")
	}
	source, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	pkCols := table.VTable.PKColumnNames()
	fields := source.Schema.Fields()

	var deleted int64
	for _, r := range source.Rows {
		columnValues := make(map[types.ColumnName]types.SqlValue, len(fields))
		for i, f := range fields {
			columnValues[f.ColumnName] = r.Get(i)
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
			continue
		}
		if err := table.VRR.InsertTombstones(ctx, tx, []vrr.Entry{{APK: apk, Revision: probe.Revision}}); err != nil {
			return nil, err
		}
		deleted++
	}

	return rowsAffectedResult(op.config.TableName, deleted), nil
}
