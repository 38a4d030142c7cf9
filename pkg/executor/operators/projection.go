package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

// ProjectionOperator horizontally shrinks its child's rows to the listed
// schema indexes, preserving declared order.
type ProjectionOperator struct {
	*BaseOperator
	config *plan.ProjectionConfig
}

func NewProjectionOperator(p *plan.Plan) (*ProjectionOperator, error) {
	cfg, ok := p.Config.(*plan.ProjectionConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Projection: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &ProjectionOperator{BaseOperator: base, config: cfg}, nil
}

func (op *ProjectionOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) == 0 {
		return nil, errs.NewSystemError("ProjectionOperator requires exactly one child")
	}
	childResult, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	childFields := childResult.Schema.Fields()
	positions := make([]int, len(op.config.Indexes))
	void := make([]bool, len(op.config.Indexes))
	fields := make([]row.FieldName, len(op.config.Indexes))
	for i, idx := range op.config.Indexes {
		pos, err := idx.Resolve1(childResult.Schema)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
		fields[i] = childFields[pos]
	}

	rows := make([]row.Row, len(childResult.Rows))
	for i, r := range childResult.Rows {
		rows[i] = r.Project(positions, void)
	}

	return &Result{Schema: row.NewRowSchema(fields), Rows: rows}, nil
}
