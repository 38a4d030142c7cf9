// Package expr implements the expression & predicate evaluator (C10):
// three-valued boolean logic over typed SQL values, in the same
// dispatch-on-operator-string style as the executor's selection operator,
// adapted to the engine's typed Row/SqlValue model instead of loosely typed
// map rows.
package expr

import (
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// CompareOp is a scalar comparison operator. The distilled spec names only
// `=`; the rest are additive, carried over from the original implementation
// (§4.6 / SPEC_FULL.md C16) under the same three-valued rules.
type CompareOp string

const (
	Eq CompareOp = "="
	Ne CompareOp = "<>"
	Lt CompareOp = "<"
	Le CompareOp = "<="
	Gt CompareOp = ">"
	Ge CompareOp = ">="
)

// LogicalOp combines two BoolExprs. AND is the distilled spec's only
// operator; OR is additive (C16).
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

// UnaryOp is applied to a scalar Expr.
type UnaryOp string

const (
	Minus UnaryOp = "-"
)

// Expr is a scalar expression: Constant | Index | Unary | Boolean.
type Expr struct {
	constant *types.SqlValue
	index    *row.SchemaIndex
	unaryOp  UnaryOp
	unary    *Expr
	boolean  *BoolExpr
}

// Constant wraps a literal SQL value.
func Constant(v types.SqlValue) *Expr { return &Expr{constant: &v} }

// Index wraps a column/alias lookup into a row.
func Index(idx row.SchemaIndex) *Expr { return &Expr{index: &idx} }

// Unary wraps a unary operator applied to operand.
func Unary(op UnaryOp, operand *Expr) *Expr { return &Expr{unaryOp: op, unary: operand} }

// Boolean wraps a BoolExpr so it can appear where a scalar Expr is expected
// (e.g. as the operand of a nested comparison is not supported; this is the
// WHERE-clause top level.)
func Boolean(b *BoolExpr) *Expr { return &Expr{boolean: b} }

// BoolExpr is Compare(left, right, op) | Logical(left, right, op) | Not(operand).
type BoolExpr struct {
	compareLeft, compareRight *Expr
	compareOp                 CompareOp
	logicalLeft, logicalRight *BoolExpr
	logicalOp                 LogicalOp
	not                       *BoolExpr
}

// Compare builds a Compare(left, right, op) BoolExpr.
func Compare(left, right *Expr, op CompareOp) *BoolExpr {
	return &BoolExpr{compareLeft: left, compareRight: right, compareOp: op}
}

// Logical builds a Logical(left, right, op) BoolExpr.
func Logical(left, right *BoolExpr, op LogicalOp) *BoolExpr {
	return &BoolExpr{logicalLeft: left, logicalRight: right, logicalOp: op}
}

// Not builds the unary negation of a BoolExpr.
func Not(operand *BoolExpr) *BoolExpr {
	return &BoolExpr{not: operand}
}

// Eval evaluates e against record under schema. Constant needs neither;
// Index requires both.
func Eval(e *Expr, record *row.Row, schema *row.RowSchema) (types.SqlValue, error) {
	switch {
	case e.constant != nil:
		return *e.constant, nil
	case e.index != nil:
		if record == nil || schema == nil {
			return types.SqlValue{}, errs.NewNameErrorNotFound("index evaluated without a record")
		}
		pos, err := e.index.Resolve1(schema)
		if err != nil {
			return types.SqlValue{}, err
		}
		return record.Get(pos), nil
	case e.unary != nil:
		operand, err := Eval(e.unary, record, schema)
		if err != nil {
			return types.SqlValue{}, err
		}
		switch e.unaryOp {
		case Minus:
			result, ok := operand.Negate()
			if !ok {
				return types.SqlValue{}, errs.NewInvalidParameterValue("cannot negate a %s value", operand.Type())
			}
			return result, nil
		default:
			return types.SqlValue{}, errs.NewSystemError("unknown unary operator %q", e.unaryOp)
		}
	case e.boolean != nil:
		b, err := EvalBool(e.boolean, record, schema)
		if err != nil {
			return types.SqlValue{}, err
		}
		if b == nil {
			return types.NullValue, nil
		}
		return types.NewBoolean(*b), nil
	default:
		return types.SqlValue{}, errs.NewSystemError("empty expression")
	}
}

// EvalBool evaluates a BoolExpr to Kleene three-valued logic: nil means
// NULL (unknown), otherwise the concrete boolean result.
func EvalBool(b *BoolExpr, record *row.Row, schema *row.RowSchema) (*bool, error) {
	switch {
	case b.compareOp != "":
		left, err := Eval(b.compareLeft, record, schema)
		if err != nil {
			return nil, err
		}
		right, err := Eval(b.compareRight, record, schema)
		if err != nil {
			return nil, err
		}
		return evalCompare(left, right, b.compareOp)
	case b.logicalOp != "":
		left, err := EvalBool(b.logicalLeft, record, schema)
		if err != nil {
			return nil, err
		}
		right, err := EvalBool(b.logicalRight, record, schema)
		if err != nil {
			return nil, err
		}
		switch b.logicalOp {
		case And:
			return kleeneAnd(left, right), nil
		case Or:
			return kleeneOr(left, right), nil
		default:
			return nil, errs.NewSystemError("unknown logical operator %q", b.logicalOp)
		}
	case b.not != nil:
		operand, err := EvalBool(b.not, record, schema)
		if err != nil {
			return nil, err
		}
		if operand == nil {
			return nil, nil
		}
		negated := !*operand
		return &negated, nil
	default:
		return nil, errs.NewSystemError("empty boolean expression")
	}
}

func evalCompare(left, right types.SqlValue, op CompareOp) (*bool, error) {
	cmp, err := left.Compare(right)
	if err != nil {
		return nil, err
	}
	if cmp == types.CmpNull {
		return nil, nil
	}
	var result bool
	switch op {
	case Eq:
		result = cmp == types.CmpEq
	case Ne:
		result = cmp != types.CmpEq
	case Lt:
		result = cmp == types.CmpLt
	case Le:
		result = cmp == types.CmpLt || cmp == types.CmpEq
	case Gt:
		result = cmp == types.CmpGt
	case Ge:
		result = cmp == types.CmpGt || cmp == types.CmpEq
	default:
		return nil, errs.NewSystemError("unknown comparison operator %q", op)
	}
	return &result, nil
}

func kleeneAnd(a, b *bool) *bool {
	if (a != nil && !*a) || (b != nil && !*b) {
		f := false
		return &f
	}
	if a == nil || b == nil {
		return nil
	}
	t := true
	return &t
}

func kleeneOr(a, b *bool) *bool {
	if (a != nil && *a) || (b != nil && *b) {
		t := true
		return &t
	}
	if a == nil || b == nil {
		return nil
	}
	f := false
	return &f
}

// ToBool implements the WHERE/ON coercion rule (§4.6): NotNull(Boolean(b))
// -> b; Null -> false (no error); anything else -> DataExceptionIllegalOperation.
// This is load-bearing: `SELECT ... WHERE 1` must fail, not coerce.
func ToBool(v types.SqlValue) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	if v.Type() != types.Boolean {
		return false, errs.NewDataExceptionIllegalOperation("expected boolean, got %s", v.Type())
	}
	return v.Bool(), nil
}

// EvalToBool evaluates b and maps an unknown (NULL) result to false, the
// same rule ToBool applies; it is the entry point Selection uses.
func EvalToBool(b *BoolExpr, record *row.Row, schema *row.RowSchema) (bool, error) {
	result, err := EvalBool(b, record, schema)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}
	return *result, nil
}
