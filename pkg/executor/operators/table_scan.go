package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/projection"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
)

// SeqScanOperator is the leaf node that produces the union of live rows
// across every active version of a table (§4.7): it asks the VRR for the
// latest live revision of every APK, groups the result by version, asks the
// Row Projection Planner for the per-version effective/void split, and
// glues substrate rows back to their APK by rowid.
type SeqScanOperator struct {
	*BaseOperator
	config *plan.SeqScanConfig
}

func NewSeqScanOperator(p *plan.Plan) (*SeqScanOperator, error) {
	cfg, ok := p.Config.(*plan.SeqScanConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for SeqScan: %T", p.Config)
	}
	return &SeqScanOperator{BaseOperator: NewBaseOperator(p), config: cfg}, nil
}

func (op *SeqScanOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	table, err := cat.Load(ctx, tx, op.config.TableName)
	if err != nil {
		return nil, err
	}

	projResult, err := projection.Plan(table.VTable, table.Versions, op.config.Projection)
	if err != nil {
		return nil, err
	}

	outputColumns := op.resolveOutputColumns(table)
	pkSet := make(map[types.ColumnName]bool)
	for _, c := range table.VTable.PKColumnNames() {
		pkSet[c] = true
	}

	fields := make([]row.FieldName, len(outputColumns))
	for i, c := range outputColumns {
		fields[i] = row.FieldName{Correlation: op.config.TableName, ColumnName: c}
	}
	schema := row.NewRowSchema(fields)

	entries, err := table.VRR.Scan(ctx, tx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[version.Number][]int)
	for i, e := range entries {
		n := version.Number(e.VersionNumber)
		byVersion[n] = append(byVersion[n], i)
	}

	var rows []row.Row
	for _, v := range table.Versions {
		indices := byVersion[v.Id().Number]
		if len(indices) == 0 {
			continue
		}
		split, ok := versionSplit(projResult, v.Id().Number)
		if !ok {
			continue
		}

		colType := make(map[types.ColumnName]types.SqlType, len(v.NonPKColumns()))
		for _, c := range v.NonPKColumns() {
			colType[c.Name] = c.Type
		}

		rowids := make([]int64, len(indices))
		for i, idx := range indices {
			rowids[i] = entries[idx].Rowid
		}
		substrateRows, err := tx.SelectVersionRows(ctx, v.DataTableName(), split.NonPKEffective, rowids)
		if err != nil {
			return nil, err
		}
		byRowid := make(map[int64][]interface{}, len(substrateRows.Values))
		for _, r := range substrateRows.Values {
			byRowid[driverToInt64(r[0])] = r[1:]
		}

		nonPKEffectivePos := make(map[types.ColumnName]int, len(split.NonPKEffective))
		for i, c := range split.NonPKEffective {
			nonPKEffectivePos[c] = i
		}
		nonPKVoidSet := make(map[types.ColumnName]bool, len(split.NonPKVoid))
		for _, c := range split.NonPKVoid {
			nonPKVoidSet[c] = true
		}

		for _, idx := range indices {
			e := entries[idx]
			apkByName := make(map[types.ColumnName]types.SqlValue, len(e.APK.Values))
			for _, av := range e.APK.Values {
				apkByName[av.Column] = av.Value
			}
			substrateVals := byRowid[e.Rowid]

			values := make([]types.SqlValue, len(outputColumns))
			for i, c := range outputColumns {
				switch {
				case pkSet[c]:
					if val, ok := apkByName[c]; ok {
						values[i] = val
					} else {
						values[i] = types.NullValue
					}
				case nonPKVoidSet[c]:
					values[i] = types.NullValue
				default:
					if pos, ok := nonPKEffectivePos[c]; ok && substrateVals != nil {
						values[i] = driverToSqlValue(substrateVals[pos], colType[c])
					} else {
						values[i] = types.NullValue
					}
				}
			}
			rows = append(rows, row.NewRow(values))
		}
	}

	return &Result{Schema: schema, Rows: rows}, nil
}

// resolveOutputColumns decides the stable column order of the unified
// output schema: PK columns first (declaration order), then the requested
// non-PK columns. For an explicit projection list, that list's order is
// honored verbatim.
func (op *SeqScanOperator) resolveOutputColumns(table *catalog.Table) []types.ColumnName {
	pkCols := table.VTable.PKColumnNames()
	if !op.config.Projection.All {
		return op.config.Projection.Columns
	}
	out := append([]types.ColumnName(nil), pkCols...)
	seen := make(map[types.ColumnName]bool, len(pkCols))
	for _, c := range pkCols {
		seen[c] = true
	}
	for _, v := range table.Versions {
		for _, c := range v.NonPKColumns() {
			if seen[c.Name] {
				continue
			}
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	return out
}

func versionSplit(r *projection.Result, n version.Number) (projection.VersionSplit, bool) {
	for _, s := range r.Splits() {
		if s.Number == n {
			return s.Split, true
		}
	}
	return projection.VersionSplit{}, false
}
