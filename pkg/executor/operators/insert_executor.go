package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
	"github.com/kasugasql/immutaschema/pkg/vrr"
)

// InsertOperator implements the modification pipeline of §4.8's INSERT: for
// every row produced by its single InsertValues child, it probes the VRR
// for the row's apparent primary key, rejects a still-live APK as a unique
// violation, picks the largest version that accepts the row's non-PK
// columns, and appends one VRR entry plus one version data row.
type InsertOperator struct {
	*BaseOperator
	config *plan.InsertConfig
}

func NewInsertOperator(p *plan.Plan) (*InsertOperator, error) {
	cfg, ok := p.Config.(*plan.InsertConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Insert: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &InsertOperator{BaseOperator: base, config: cfg}, nil
}

func (op *InsertOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) != 1 {
		return nil, errs.NewSystemError("InsertOperator requires exactly one child")
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

	var inserted int64
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
		if probe.State == vrr.Exist {
			return nil, errs.NewIntegrityConstraintUniqueViolation("row already exists for primary key of %q", op.config.TableName)
		}
		revision := uint64(1)
		if probe.State == vrr.Deleted {
			revision = probe.Revision + 1
		}

		nonPKValues := nonPKColumnValues(columnValues, pkCols)

		v, err := version.LargestAccepting(table.Versions, nonPKValues)
		if err != nil {
			return nil, err
		}

		naviRowid, err := table.VRR.Insert(ctx, tx, apk, revision, uint64(v.Id().Number))
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
		inserted++
	}

	return rowsAffectedResult(op.config.TableName, inserted), nil
}

// buildAPK reads the PK columns out of columnValues, failing
// IntegrityConstraintNotNullViolation if any is absent or NULL.
func buildAPK(tableName types.TableName, pkCols []types.ColumnName, columnValues map[types.ColumnName]types.SqlValue) (vrr.APK, error) {
	values := make([]vrr.APKValue, len(pkCols))
	for i, c := range pkCols {
		v, ok := columnValues[c]
		if !ok || v.IsNull() {
			return vrr.APK{}, errs.NewIntegrityConstraintNotNullViolation(c)
		}
		values[i] = vrr.APKValue{Column: c, Value: v}
	}
	return vrr.APK{Table: tableName, Values: values}, nil
}

// rowsAffectedResult builds the one-row, one-column result every
// modification operator returns.
func rowsAffectedResult(tableName types.TableName, n int64) *Result {
	schema := row.NewRowSchema([]row.FieldName{{ColumnName: "rows_affected"}})
	return &Result{Schema: schema, Rows: []row.Row{row.NewRow([]types.SqlValue{types.NewBigInt(n)})}}
}
