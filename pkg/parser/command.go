package parser

import (
	"github.com/kasugasql/immutaschema/pkg/expr"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
)

// CommandType tags which of Command's fields is populated.
type CommandType string

const (
	CommandCreateTable CommandType = "CREATE_TABLE"
	CommandAlterTable  CommandType = "ALTER_TABLE"
	CommandDropTable   CommandType = "DROP_TABLE"
	CommandInsert      CommandType = "INSERT"
	CommandUpdate      CommandType = "UPDATE"
	CommandDelete      CommandType = "DELETE"
	CommandSelect      CommandType = "SELECT"
)

// Command is the internal representation §6's parser contract lowers SQL
// text into: exactly one of the seven statement shapes the engine supports.
type Command struct {
	Type         CommandType
	CreateTable  *CreateTableCommand
	AlterTable   *AlterTableCommand
	DropTable    *DropTableCommand
	Insert       *InsertCommand
	Update       *UpdateCommand
	Delete       *DeleteCommand
	Select       *SelectCommand
}

// CreateTableCommand is CREATE TABLE name (column_definition | table_constraint, ...).
type CreateTableCommand struct {
	TableName   types.TableName
	Columns     []schema.ColumnDataType
	Constraints []schema.TableWideConstraint
}

// AlterTableCommand is ALTER TABLE name action, where action is exactly one
// AddColumn or DropColumn (§6).
type AlterTableCommand struct {
	TableName types.TableName
	Action    version.AlterAction
}

// DropTableCommand is DROP TABLE name.
type DropTableCommand struct {
	TableName types.TableName
}

// InsertCommand is INSERT INTO name (columns) VALUES (rows...).
type InsertCommand struct {
	TableName types.TableName
	Columns   []types.ColumnName
	Values    [][]types.SqlValue
}

// UpdateCommand is UPDATE name SET column = expr, ... [WHERE expr].
// Where is nil when the statement carries no WHERE clause (every live row
// of the table is a candidate).
type UpdateCommand struct {
	TableName   types.TableName
	Assignments map[types.ColumnName]*expr.Expr
	Where       *expr.BoolExpr
}

// DeleteCommand is DELETE FROM name [WHERE expr]. Where nil means DELETE
// without WHERE: every live row is tombstoned.
type DeleteCommand struct {
	TableName types.TableName
	Where     *expr.BoolExpr
}

// SelectColumn is one SELECT list entry: a field reference, optionally
// re-aliased. Wildcard (`SELECT *`) is represented by a nil Columns slice
// on SelectCommand rather than an explicit entry.
type SelectColumn struct {
	Index row.SchemaIndex
	Alias types.ColumnName // "" keeps the source column's name
}

// JoinClause is the one inner join §6's from_item tree supports: a second
// table correlated by alias (defaulting to its table name) and an
// equality ON condition between a left- and right-side column.
type JoinClause struct {
	Table       types.TableName
	Correlation string
	LeftIndex   row.SchemaIndex
	RightIndex  row.SchemaIndex
}

// SelectCommand is SELECT select_fields FROM from_item [JOIN ...] [WHERE
// expr] [ORDER BY ...]. Columns nil means `SELECT *`.
type SelectCommand struct {
	TableName   types.TableName
	Correlation string
	Join        *JoinClause
	Columns     []SelectColumn
	Where       *expr.BoolExpr
	OrderBy     []OrderByItem
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Index      row.SchemaIndex
	Descending bool
}
