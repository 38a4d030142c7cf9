// Package operators implements the query/modification plan node executors
// (C11 leaf/unary/binary nodes, C12 modification nodes), following the
// Operator-interface-plus-BaseOperator dispatch pattern used throughout
// this codebase's execution layer.
package operators

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
)

func unsupportedPlanType(t plan.Type) error {
	return errs.NewSystemError("unsupported plan type: %s", t)
}

// nonPKColumnValues copies columnValues with every PK column removed, since
// version.LargestAccepting and CheckInsertability only ever check
// nonPKColumns and reject any unrecognized key, PK columns included.
func nonPKColumnValues(columnValues map[types.ColumnName]types.SqlValue, pkCols []types.ColumnName) map[types.ColumnName]types.SqlValue {
	pkSet := make(map[types.ColumnName]struct{}, len(pkCols))
	for _, c := range pkCols {
		pkSet[c] = struct{}{}
	}
	out := make(map[types.ColumnName]types.SqlValue, len(columnValues))
	for k, v := range columnValues {
		if _, isPK := pkSet[k]; isPK {
			continue
		}
		out[k] = v
	}
	return out
}

// Result is a materialized row set plus its schema — node results are
// streamed this way with no backpressure (§4.7).
type Result struct {
	Schema *row.RowSchema
	Rows   []row.Row
}

// Operator is one node of an executing plan tree.
type Operator interface {
	Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error)
	GetChildren() []Operator
}

// BaseOperator holds the plan node and its already-built children.
type BaseOperator struct {
	Plan     *plan.Plan
	children []Operator
}

// NewBaseOperator wraps p; children are attached by BuildChildOperators.
func NewBaseOperator(p *plan.Plan) *BaseOperator {
	return &BaseOperator{Plan: p}
}

// GetChildren returns the already-built child operators.
func (op *BaseOperator) GetChildren() []Operator { return op.children }

// BuildChildOperators builds one operator per plan child via buildFn.
func (op *BaseOperator) BuildChildOperators(buildFn func(p *plan.Plan) (Operator, error)) error {
	op.children = make([]Operator, 0, len(op.Plan.Children))
	for _, childPlan := range op.Plan.Children {
		child, err := buildFn(childPlan)
		if err != nil {
			return err
		}
		op.children = append(op.children, child)
	}
	return nil
}

// Build dispatches on p.Type to construct the right Operator, post-order:
// children are built (and, at Execute time, run) before the parent.
func Build(p *plan.Plan) (Operator, error) {
	switch p.Type {
	case plan.TypeSeqScan:
		return NewSeqScanOperator(p)
	case plan.TypeInsertValues:
		return NewInsertValuesOperator(p)
	case plan.TypeProjection:
		return NewProjectionOperator(p)
	case plan.TypeSelection:
		return NewSelectionOperator(p)
	case plan.TypeSort:
		return NewSortOperator(p)
	case plan.TypeHashJoin:
		return NewHashJoinOperator(p)
	case plan.TypeInsert:
		return NewInsertOperator(p)
	case plan.TypeUpdate:
		return NewUpdateOperator(p)
	case plan.TypeDelete:
		return NewDeleteOperator(p)
	default:
		return nil, unsupportedPlanType(p.Type)
	}
}
