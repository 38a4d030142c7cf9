// Package plan defines the query/modification plan node taxonomy (C11):
// Leaf / Unary / Binary nodes, each carrying a typed Config defined here,
// following the config-struct-per-node convention the executor dispatches
// on by Type.
package plan

import (
	"github.com/kasugasql/immutaschema/pkg/expr"
	"github.com/kasugasql/immutaschema/pkg/projection"
	"github.com/kasugasql/immutaschema/pkg/row"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// Type tags a Plan node with its operator kind.
type Type string

const (
	TypeSeqScan     Type = "SEQ_SCAN"
	TypeInsertValues Type = "INSERT_VALUES"
	TypeProjection  Type = "PROJECTION"
	TypeSelection   Type = "SELECTION"
	TypeSort        Type = "SORT"
	TypeHashJoin    Type = "HASH_JOIN"
	TypeInsert      Type = "INSERT"
	TypeUpdate      Type = "UPDATE"
	TypeDelete      Type = "DELETE"
)

// Plan is one node of the plan tree: a Type tag, its typed Config, children
// (empty for leaves, one for unary nodes, two for binary nodes) and the
// output RowSchema the node produces.
type Plan struct {
	Type         Type
	Config       interface{}
	Children     []*Plan
	OutputSchema *row.RowSchema
}

// SeqScanConfig backs TypeSeqScan: produces the union of live rows across
// every active version of TableName, each enriched to Projection's output
// schema.
type SeqScanConfig struct {
	TableName string
	Projection projection.Query
}

// InsertValuesConfig backs TypeInsertValues: a literal source of rows used
// as the input to an Insert modification.
type InsertValuesConfig struct {
	TableName string
	Columns   []types.ColumnName
	Values    []row.Row
}

// ProjectionConfig backs TypeProjection: horizontally shrinks rows to the
// listed schema indexes.
type ProjectionConfig struct {
	Indexes []row.SchemaIndex
}

// SelectionConfig backs TypeSelection: filters rows where
// expr.ToBool(Condition) is true.
type SelectionConfig struct {
	Condition *expr.BoolExpr
}

// SortKey is one (index, direction) pair of a multi-key sort.
type SortKey struct {
	Index      row.SchemaIndex
	Descending bool
}

// SortConfig backs TypeSort: a stable multi-key sort. NULL always sorts
// last regardless of direction.
type SortConfig struct {
	Keys []SortKey
}

// HashJoinConfig backs TypeHashJoin: inner equi-join on equality of
// LeftIndex (resolved against the left child's schema) and RightIndex
// (resolved against the right child's schema).
type HashJoinConfig struct {
	LeftIndex  row.SchemaIndex
	RightIndex row.SchemaIndex
}

// InsertConfig backs TypeInsert: inserts the rows produced by its single
// InsertValues/sub-plan child into TableName.
type InsertConfig struct {
	TableName string
}

// UpdateConfig backs TypeUpdate: evaluated as SELECT-then-tombstone-then-
// INSERT (§4.8). Assignments map a non-PK column name to the expression
// computing its new value; the node's single child selects the matching rows.
type UpdateConfig struct {
	TableName   string
	Assignments map[types.ColumnName]*expr.Expr
}

// DeleteConfig backs TypeDelete: tombstones the rows matched by its
// Selection-over-SeqScan child, or every live row if AllRows is set
// (DELETE without WHERE, §4.8).
type DeleteConfig struct {
	TableName string
	AllRows   bool
}
