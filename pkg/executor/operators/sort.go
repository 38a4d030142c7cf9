package operators

import (
	"context"
	"sort"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// SortOperator is a stable multi-key sort over its child's rows. NULL
// always sorts last regardless of direction, matching the engine's
// three-valued comparison semantics extended with a total order for
// display purposes.
type SortOperator struct {
	*BaseOperator
	config *plan.SortConfig
}

func NewSortOperator(p *plan.Plan) (*SortOperator, error) {
	cfg, ok := p.Config.(*plan.SortConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for Sort: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &SortOperator{BaseOperator: base, config: cfg}, nil
}

func (op *SortOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) == 0 {
		return nil, errs.NewSystemError("SortOperator requires exactly one child")
	}
	childResult, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	sorted := make([]row.Row, len(childResult.Rows))
	copy(sorted, childResult.Rows)

	positions := make([]int, len(op.config.Keys))
	for i, k := range op.config.Keys {
		pos, err := k.Index.Resolve1(childResult.Schema)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
	}

	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		for keyIdx, key := range op.config.Keys {
			pos := positions[keyIdx]
			left := sorted[i].Get(pos)
			right := sorted[j].Get(pos)

			switch {
			case left.IsNull() && right.IsNull():
				continue
			case left.IsNull():
				return false
			case right.IsNull():
				return true
			}

			cmp, err := left.Compare(right)
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}
			if cmp == types.CmpEq {
				continue
			}
			if key.Descending {
				return cmp == types.CmpGt
			}
			return cmp == types.CmpLt
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}

	return &Result{Schema: childResult.Schema, Rows: sorted}, nil
}
