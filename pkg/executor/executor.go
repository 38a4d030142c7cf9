// Package executor drives one plan tree to completion against a substrate
// transaction: it builds the operator tree (C11/C12) via operators.Build
// and runs its root, returning the materialized Result.
package executor

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/catalog"
	"github.com/kasugasql/immutaschema/pkg/executor/operators"
	"github.com/kasugasql/immutaschema/pkg/plan"
	"github.com/kasugasql/immutaschema/pkg/substrate"
)

// Executor runs a plan tree against a transaction.
type Executor interface {
	Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog, p *plan.Plan) (*operators.Result, error)
}

// BaseExecutor is the sole Executor implementation, mirroring the stateless
// dispatch-by-plan-type pattern the operators package itself uses.
type BaseExecutor struct{}

// NewExecutor creates an Executor.
func NewExecutor() Executor {
	return &BaseExecutor{}
}

// Execute builds the operator tree rooted at p and runs it.
func (e *BaseExecutor) Execute(ctx context.Context, tx *substrate.Tx, cat *catalog.Catalog, p *plan.Plan) (*operators.Result, error) {
	op, err := operators.Build(p)
	if err != nil {
		return nil, err
	}
	return op.Execute(ctx, tx, cat)
}
