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

// HashJoinOperator is a binary node computing the inner equi-join of its
// two children on LeftIndex = RightIndex (§4.7 names only inner join;
// outer variants are out of scope).
type HashJoinOperator struct {
	*BaseOperator
	config *plan.HashJoinConfig
}

func NewHashJoinOperator(p *plan.Plan) (*HashJoinOperator, error) {
	cfg, ok := p.Config.(*plan.HashJoinConfig)
	if !ok {
		return nil, errs.NewSystemError("invalid config type for HashJoin: %T", p.Config)
	}
	base := NewBaseOperator(p)
	if err := base.BuildChildOperators(Build); err != nil {
		return nil, err
	}
	return &HashJoinOperator{BaseOperator: base, config: cfg}, nil
}

func (op *HashJoinOperator) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog) (*Result, error) {
	if len(op.children) != 2 {
		return nil, errs.NewSystemError("HashJoin requires exactly 2 children, got %d", len(op.children))
	}

	leftResult, err := op.children[0].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}
	rightResult, err := op.children[1].Execute(ctx, tx, cat)
	if err != nil {
		return nil, err
	}

	leftPos, err := op.config.LeftIndex.Resolve1(leftResult.Schema)
	if err != nil {
		return nil, err
	}
	rightPos, err := op.config.RightIndex.Resolve1(rightResult.Schema)
	if err != nil {
		return nil, err
	}

	hashTable := make(map[string][]row.Row, len(rightResult.Rows))
	for _, r := range rightResult.Rows {
		k, ok := hashKey(r.Get(rightPos))
		if !ok {
			continue
		}
		hashTable[k] = append(hashTable[k], r)
	}

	fields := append(leftResult.Schema.Fields(), rightResult.Schema.Fields()...)
	schema := row.NewRowSchema(fields)

	var joined []row.Row
	for _, l := range leftResult.Rows {
		k, ok := hashKey(l.Get(leftPos))
		if !ok {
			continue
		}
		for _, r := range hashTable[k] {
			joined = append(joined, row.NewRow(append(l.Values(), r.Values()...)))
		}
	}

	return &Result{Schema: schema, Rows: joined}, nil
}

// hashKey builds a type-aware key for a join value; NULL never matches
// anything per the engine's three-valued equality (NULL = NULL is unknown,
// not true), so it is excluded from the hash table entirely.
func hashKey(v types.SqlValue) (string, bool) {
	if v.IsNull() {
		return "", false
	}
	switch v.Type() {
	case types.Text:
		return "s:" + v.TextValue(), true
	case types.Boolean:
		if v.Bool() {
			return "b:1", true
		}
		return "b:0", true
	default:
		return "i:" + v.String(), true
	}
}
