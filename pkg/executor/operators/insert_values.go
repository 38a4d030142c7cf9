package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

// InsertValuesOperator is a leaf that hands a literal set of rows to its
// parent (typically an Insert node) — the VALUES clause of an INSERT
// statement, already typed by the parser/planner.
type InsertValuesOperator struct {
	*BaseOperator
	config *plan.InsertValuesConfig
}

func NewInsertValuesOperator(p *plan.Plan) (*InsertValuesOperator, error) {
	cfg, ok := p.Config.(*plan.InsertValuesConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for InsertValues: %T", p.Config)
	}
	return &InsertValuesOperator{BaseOperator: NewBaseOperator(p), config: cfg}, nil
}

func (op *InsertValuesOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	fields := make([]row.FieldName, len(op.config.Columns))
	for i, c := range op.config.Columns {
		fields[i] = row.FieldName{Correlation: op.config.TableName, ColumnName: c}
	}
	return &Result{Schema: row.NewRowSchema(fields), Rows: op.config.Values}, nil
}
