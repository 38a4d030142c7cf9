package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/expr"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

// SelectionOperator filters its child's rows to those where
// expr.ToBool(Condition) evaluates true, via the three-valued evaluator
// (C10): NULL and false both drop the row.
type SelectionOperator struct {
	*BaseOperator
	config *plan.SelectionConfig
}

func NewSelectionOperator(p *plan.Plan) (*SelectionOperator, error) {
	cfg, ok := p.Config.(*plan.SelectionConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Selection: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &SelectionOperator{BaseOperator: base, config: cfg}, nil
}

func (op *SelectionOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) == 0 {
		return nil, errs.NewSystemError("SelectionOperator requires exactly one child")
	}
	childResult, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	filtered := make([]row.Row, 0, len(childResult.Rows))
	for _, r := range childResult.Rows {
		keep, err := expr.EvalToBool(op.config.Condition, &r, childResult.Schema)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, r)
		}
	}

	return &Result{Schema: childResult.Schema, Rows: filtered}, nil
}
