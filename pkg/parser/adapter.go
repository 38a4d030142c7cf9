// Package parser implements the SQL surface (C4): a thin adapter over
// TiDB's standalone SQL parser that lowers an ast.StmtNode into the
// engine's internal Command representation (CreateTableCommand,
// AlterTableCommand, DropTableCommand, InsertCommand, UpdateCommand,
// DeleteCommand, SelectCommand).
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/expr"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
)

// Adapter wraps a TiDB parser instance and lowers its AST to Commands.
type Adapter struct {
	parser *parser.Parser
}

// NewAdapter creates a SQL Adapter.
func NewAdapter() *Adapter {
	return &Adapter{parser: parser.New()}
}

// Parse parses a single SQL statement and lowers it to a Command.
func (a *Adapter) Parse(sql string) (*Command, error) {
	stmtNodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil {
		return nil, errs.NewSyntaxError("%v", err)
	}
	if len(stmtNodes) == 0 {
		return nil, errs.NewSyntaxError("no statement found")
	}
	return a.convert(stmtNodes[0])
}

func (a *Adapter) convert(node ast.StmtNode) (*Command, error) {
	switch stmt := node.(type) {
	case *ast.CreateTableStmt:
		return a.convertCreateTable(stmt)
	case *ast.AlterTableStmt:
		return a.convertAlterTable(stmt)
	case *ast.DropTableStmt:
		return a.convertDropTable(stmt)
	case *ast.InsertStmt:
		return a.convertInsert(stmt)
	case *ast.UpdateStmt:
		return a.convertUpdate(stmt)
	case *ast.DeleteStmt:
		return a.convertDelete(stmt)
	case *ast.SelectStmt:
		return a.convertSelect(stmt)
	default:
		return nil, errs.NewSyntaxError("unsupported statement type %T", node)
	}
}

func tableNameOf(n *ast.TableName) types.TableName {
	if n == nil {
		return ""
	}
	return n.Name.String()
}

func leftTableSource(refs *ast.Join) (*ast.TableName, string) {
	if refs == nil {
		return nil, ""
	}
	ts, ok := refs.Left.(*ast.TableSource)
	if !ok {
		return nil, ""
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, ""
	}
	return tn, ts.AsName.String()
}

// sqlTypeFromTiDB maps a TiDB-rendered column type string to one of the
// supported SqlTypes. TiDB's MySQL-compatible grammar lexes BOOLEAN as a
// synonym for TINYINT(1), so any TINYINT(1) column (however it was
// spelled) is treated as BOOLEAN here.
func sqlTypeFromTiDB(fullType string) (types.SqlType, error) {
	upper := strings.ToUpper(fullType)
	base := upper
	if idx := strings.Index(base, "("); idx != -1 {
		base = base[:idx]
	}
	switch base {
	case "TINYINT":
		if strings.Contains(upper, "(1)") {
			return types.Boolean, nil
		}
		return types.SmallInt, nil
	case "SMALLINT":
		return types.SmallInt, nil
	case "INT", "INTEGER", "MEDIUMINT":
		return types.Integer, nil
	case "BIGINT":
		return types.BigInt, nil
	case "TEXT", "VARCHAR", "CHAR", "LONGTEXT", "MEDIUMTEXT":
		return types.Text, nil
	default:
		return "", errs.NewSyntaxError("unsupported column type %q", fullType)
	}
}

func (a *Adapter) convertCreateTable(stmt *ast.CreateTableStmt) (*Command, error) {
	cols := make([]schema.ColumnDataType, 0, len(stmt.Cols))
	for _, col := range stmt.Cols {
		sqlType, err := sqlTypeFromTiDB(col.Tp.String())
		if err != nil {
			return nil, err
		}
		c := schema.ColumnDataType{Name: col.Name.Name.String(), Type: sqlType, Nullable: true}
		for _, opt := range col.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull, ast.ColumnOptionPrimaryKey:
				c.Nullable = false
			}
		}
		cols = append(cols, c)
	}

	var constraints []schema.TableWideConstraint
	for _, col := range stmt.Cols {
		for _, opt := range col.Options {
			if opt.Tp == ast.ColumnOptionPrimaryKey {
				constraints = append(constraints, schema.TableWideConstraint{
					Kind:        schema.PrimaryKey,
					ColumnNames: []types.ColumnName{col.Name.Name.String()},
				})
			}
		}
	}
	for _, c := range stmt.Constraints {
		kind, ok := constraintKind(c.Tp)
		if !ok {
			continue
		}
		names := make([]types.ColumnName, 0, len(c.Keys))
		for _, k := range c.Keys {
			names = append(names, k.Column.Name.String())
		}
		constraints = append(constraints, schema.TableWideConstraint{Kind: kind, ColumnNames: names})
	}

	return &Command{
		Type: CommandCreateTable,
		CreateTable: &CreateTableCommand{
			TableName:   tableNameOf(stmt.Table),
			Columns:     cols,
			Constraints: constraints,
		},
	}, nil
}

func constraintKind(tp ast.ConstraintType) (schema.ConstraintKind, bool) {
	switch tp {
	case ast.ConstraintPrimaryKey:
		return schema.PrimaryKey, true
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return schema.Unique, true
	default:
		return 0, false
	}
}

func (a *Adapter) convertAlterTable(stmt *ast.AlterTableStmt) (*Command, error) {
	if len(stmt.Specs) != 1 {
		return nil, errs.NewSyntaxError("ALTER TABLE supports exactly one action")
	}
	spec := stmt.Specs[0]
	var action version.AlterAction
	switch spec.Tp {
	case ast.AlterTableAddColumns:
		if len(spec.NewColumns) != 1 {
			return nil, errs.NewSyntaxError("ALTER TABLE ADD COLUMN supports exactly one column")
		}
		col := spec.NewColumns[0]
		sqlType, err := sqlTypeFromTiDB(col.Tp.String())
		if err != nil {
			return nil, err
		}
		nullable := true
		for _, opt := range col.Options {
			if opt.Tp == ast.ColumnOptionNotNull {
				nullable = false
			}
		}
		action.AddColumn = &schema.ColumnDataType{Name: col.Name.Name.String(), Type: sqlType, Nullable: nullable}
	case ast.AlterTableDropColumn:
		action.DropColumn = spec.OldColumnName.Name.String()
	default:
		return nil, errs.NewSyntaxError("unsupported ALTER TABLE action")
	}

	return &Command{
		Type:       CommandAlterTable,
		AlterTable: &AlterTableCommand{TableName: tableNameOf(stmt.Table), Action: action},
	}, nil
}

func (a *Adapter) convertDropTable(stmt *ast.DropTableStmt) (*Command, error) {
	if len(stmt.Tables) != 1 {
		return nil, errs.NewSyntaxError("DROP TABLE supports exactly one table")
	}
	return &Command{
		Type:     CommandDropTable,
		DropTable: &DropTableCommand{TableName: tableNameOf(stmt.Tables[0])},
	}, nil
}

func (a *Adapter) convertInsert(stmt *ast.InsertStmt) (*Command, error) {
	tn, _ := leftTableSource(stmt.Table.TableRefs)
	if tn == nil {
		return nil, errs.NewSyntaxError("INSERT requires a table name")
	}
	if len(stmt.Columns) == 0 {
		return nil, errs.NewSyntaxError("INSERT requires an explicit column list")
	}
	cols := make([]types.ColumnName, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = c.Name.String()
	}
	if len(stmt.Lists) == 0 {
		return nil, errs.NewSyntaxError("INSERT requires at least one VALUES row")
	}
	values := make([][]types.SqlValue, 0, len(stmt.Lists))
	for _, exprs := range stmt.Lists {
		if len(exprs) != len(cols) {
			return nil, errs.NewSyntaxError("VALUES row has %d values, expected %d", len(exprs), len(cols))
		}
		vals := make([]types.SqlValue, len(exprs))
		for i, e := range exprs {
			v, err := literalValue(e)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		values = append(values, vals)
	}

	return &Command{
		Type:   CommandInsert,
		Insert: &InsertCommand{TableName: tableNameOf(tn), Columns: cols, Values: values},
	}, nil
}

func (a *Adapter) convertUpdate(stmt *ast.UpdateStmt) (*Command, error) {
	tn, _ := leftTableSource(stmt.TableRefs.TableRefs)
	if tn == nil {
		return nil, errs.NewSyntaxError("UPDATE requires a table name")
	}
	assignments := make(map[types.ColumnName]*expr.Expr, len(stmt.List))
	for _, assign := range stmt.List {
		e, err := convertScalar(assign.Expr)
		if err != nil {
			return nil, err
		}
		assignments[assign.Column.Name.String()] = e
	}
	var where *expr.BoolExpr
	if stmt.Where != nil {
		w, err := convertBool(stmt.Where)
		if err != nil {
			return nil, err
		}
		where = w
	}

	return &Command{
		Type:   CommandUpdate,
		Update: &UpdateCommand{TableName: tableNameOf(tn), Assignments: assignments, Where: where},
	}, nil
}

func (a *Adapter) convertDelete(stmt *ast.DeleteStmt) (*Command, error) {
	tn, _ := leftTableSource(stmt.TableRefs.TableRefs)
	if tn == nil {
		return nil, errs.NewSyntaxError("DELETE requires a table name")
	}
	var where *expr.BoolExpr
	if stmt.Where != nil {
		w, err := convertBool(stmt.Where)
		if err != nil {
			return nil, err
		}
		where = w
	}

	return &Command{
		Type:   CommandDelete,
		Delete: &DeleteCommand{TableName: tableNameOf(tn), Where: where},
	}, nil
}

func (a *Adapter) convertSelect(stmt *ast.SelectStmt) (*Command, error) {
	if stmt.From == nil || stmt.From.TableRefs == nil {
		return nil, errs.NewSyntaxError("SELECT requires a FROM clause")
	}
	tn, alias := leftTableSource(stmt.From.TableRefs)
	if tn == nil {
		return nil, errs.NewSyntaxError("SELECT requires a table name")
	}
	correlation := alias
	if correlation == "" {
		correlation = tableNameOf(tn)
	}

	var join *JoinClause
	if stmt.From.TableRefs.Right != nil {
		j, err := convertJoin(stmt.From.TableRefs)
		if err != nil {
			return nil, err
		}
		join = j
	}

	var columns []SelectColumn
	if stmt.Fields != nil {
		for _, field := range stmt.Fields.Fields {
			if field.WildCard != nil {
				columns = nil
				break
			}
			colExpr, ok := field.Expr.(*ast.ColumnNameExpr)
			if !ok {
				return nil, errs.NewSyntaxError("SELECT supports only column references and *")
			}
			corr := colExpr.Name.Table.String()
			alias := field.AsName.String()
			columns = append(columns, SelectColumn{
				Index: row.ByName(corr, colExpr.Name.Name.String()),
				Alias: alias,
			})
		}
	}

	var where *expr.BoolExpr
	if stmt.Where != nil {
		w, err := convertBool(stmt.Where)
		if err != nil {
			return nil, err
		}
		where = w
	}

	var orderBy []OrderByItem
	if stmt.OrderBy != nil {
		for _, item := range stmt.OrderBy.Items {
			colExpr, ok := item.Expr.(*ast.ColumnNameExpr)
			if !ok {
				return nil, errs.NewSyntaxError("ORDER BY supports only column references")
			}
			orderBy = append(orderBy, OrderByItem{
				Index:      row.ByName(colExpr.Name.Table.String(), colExpr.Name.Name.String()),
				Descending: item.Desc,
			})
		}
	}

	return &Command{
		Type: CommandSelect,
		Select: &SelectCommand{
			TableName:   tableNameOf(tn),
			Correlation: correlation,
			Join:        join,
			Columns:     columns,
			Where:       where,
			OrderBy:     orderBy,
		},
	}, nil
}

func convertJoin(node ast.ResultSetNode) (*JoinClause, error) {
	j, ok := node.(*ast.Join)
	if !ok {
		ts, ok := node.(*ast.TableSource)
		if !ok {
			return nil, errs.NewSyntaxError("unsupported FROM clause shape")
		}
		return joinFromSource(ts, nil)
	}
	if j.Tp != ast.CrossJoin && j.Tp != 0 {
		return nil, errs.NewSyntaxError("only inner joins are supported")
	}
	ts, ok := j.Right.(*ast.TableSource)
	if !ok {
		return nil, errs.NewSyntaxError("unsupported JOIN right-hand shape")
	}
	return joinFromSource(ts, j.On)
}

func joinFromSource(ts *ast.TableSource, on *ast.OnCondition) (*JoinClause, error) {
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, errs.NewSyntaxError("JOIN requires a plain table reference")
	}
	correlation := ts.AsName.String()
	if correlation == "" {
		correlation = tableNameOf(tn)
	}
	jc := &JoinClause{Table: tableNameOf(tn), Correlation: correlation}
	if on == nil || on.Expr == nil {
		return jc, nil
	}
	bin, ok := on.Expr.(*ast.BinaryOperationExpr)
	if !ok || bin.Op != opcode.EQ {
		return nil, errs.NewSyntaxError("JOIN ON must be a single column equality")
	}
	left, ok := bin.L.(*ast.ColumnNameExpr)
	if !ok {
		return nil, errs.NewSyntaxError("JOIN ON must compare two columns")
	}
	right, ok := bin.R.(*ast.ColumnNameExpr)
	if !ok {
		return nil, errs.NewSyntaxError("JOIN ON must compare two columns")
	}
	jc.LeftIndex = row.ByName(left.Name.Table.String(), left.Name.Name.String())
	jc.RightIndex = row.ByName(right.Name.Table.String(), right.Name.Name.String())
	return jc, nil
}

func convertBool(node ast.ExprNode) (*expr.BoolExpr, error) {
	switch n := node.(type) {
	case *ast.BinaryOperationExpr:
		switch n.Op {
		case opcode.LogicAnd, opcode.LogicOr:
			left, err := convertBool(n.L)
			if err != nil {
				return nil, err
			}
			right, err := convertBool(n.R)
			if err != nil {
				return nil, err
			}
			op := expr.And
			if n.Op == opcode.LogicOr {
				op = expr.Or
			}
			return expr.Logical(left, right, op), nil
		case opcode.EQ, opcode.NE, opcode.LT, opcode.LE, opcode.GT, opcode.GE:
			left, err := convertScalar(n.L)
			if err != nil {
				return nil, err
			}
			right, err := convertScalar(n.R)
			if err != nil {
				return nil, err
			}
			return expr.Compare(left, right, compareOp(n.Op)), nil
		default:
			return nil, errs.NewSyntaxError("unsupported operator %q in boolean expression", n.Op.String())
		}
	case *ast.UnaryOperationExpr:
		if n.Op == opcode.Not {
			operand, err := convertBool(n.V)
			if err != nil {
				return nil, err
			}
			return expr.Not(operand), nil
		}
		return nil, errs.NewSyntaxError("unsupported unary operator %q in boolean expression", n.Op.String())
	case *ast.ParenthesesExpr:
		return convertBool(n.Expr)
	default:
		return nil, errs.NewSyntaxError("unsupported boolean expression %T", node)
	}
}

func compareOp(op opcode.Op) expr.CompareOp {
	switch op {
	case opcode.EQ:
		return expr.Eq
	case opcode.NE:
		return expr.Ne
	case opcode.LT:
		return expr.Lt
	case opcode.LE:
		return expr.Le
	case opcode.GT:
		return expr.Gt
	default:
		return expr.Ge
	}
}

func convertScalar(node ast.ExprNode) (*expr.Expr, error) {
	switch n := node.(type) {
	case *ast.ColumnNameExpr:
		return expr.Index(row.ByName(n.Name.Table.String(), n.Name.Name.String())), nil
	case ast.ValueExpr:
		v, err := literalValue(n)
		if err != nil {
			return nil, err
		}
		return expr.Constant(v), nil
	case *ast.UnaryOperationExpr:
		if n.Op != opcode.Minus {
			return nil, errs.NewSyntaxError("unsupported unary operator %q", n.Op.String())
		}
		operand, err := convertScalar(n.V)
		if err != nil {
			return nil, err
		}
		return expr.Unary(expr.Minus, operand), nil
	case *ast.ParenthesesExpr:
		return convertScalar(n.Expr)
	default:
		return nil, errs.NewSyntaxError("unsupported scalar expression %T", node)
	}
}

func literalValue(node ast.ExprNode) (types.SqlValue, error) {
	ve, ok := node.(ast.ValueExpr)
	if !ok {
		return types.SqlValue{}, errs.NewSyntaxError("expected a literal value, got %T", node)
	}
	v := ve.GetValue()
	switch val := v.(type) {
	case nil:
		return types.NullValue, nil
	case int64:
		return types.NarrowestInteger(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return types.SqlValue{}, errs.NewNumericValueOutOfRange(strconv.FormatUint(val, 10))
		}
		return types.NarrowestInteger(int64(val)), nil
	case string:
		return types.NewText(val), nil
	case []byte:
		return types.NewText(string(val)), nil
	default:
		return types.SqlValue{}, errs.NewSyntaxError("unsupported literal type %T", v)
	}
}
