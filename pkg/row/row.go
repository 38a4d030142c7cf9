// Package row implements the positional row value (C3): a tuple of SQL
// values interpreted against a RowSchema of aliased field names.
package row

import (
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// FieldName identifies one field of a RowSchema, optionally qualified by the
// table/alias it came from (the "correlation"), following the original
// implementation's (correlation, column_name) addressing.
type FieldName struct {
	Correlation string // table name or alias; empty if unqualified
	ColumnName  types.ColumnName
}

// RowSchema is the ordered list of field names a Row's positions are
// interpreted against.
type RowSchema struct {
	fields []FieldName
}

// NewRowSchema builds a RowSchema from field names, in order.
func NewRowSchema(fields []FieldName) *RowSchema {
	return &RowSchema{fields: append([]FieldName(nil), fields...)}
}

// Fields returns the schema's field names in order.
func (s *RowSchema) Fields() []FieldName { return append([]FieldName(nil), s.fields...) }

// Len is the number of fields in the schema.
func (s *RowSchema) Len() int { return len(s.fields) }

// SchemaIndex addresses one or more positions of a RowSchema: either a fixed
// ordinal, or a name lookup (optionally qualified) that resolves against the
// schema at evaluation time.
type SchemaIndex struct {
	ordinal     int // used when byName is false
	byName      bool
	correlation string // "" means unqualified
	columnName  types.ColumnName
}

// ByOrdinal addresses a single fixed position.
func ByOrdinal(i int) SchemaIndex { return SchemaIndex{ordinal: i} }

// ByName addresses a position by (possibly qualified) column name, resolved
// against a RowSchema at Resolve time.
func ByName(correlation string, column types.ColumnName) SchemaIndex {
	return SchemaIndex{byName: true, correlation: correlation, columnName: column}
}

// Resolve returns the ordinal positions in schema that this index matches.
// A name index may match zero, one, or several positions (ambiguity is the
// caller's concern — see Resolve1 for the AST-evaluator use case in C10).
func (idx SchemaIndex) Resolve(schema *RowSchema) []int {
	if !idx.byName {
		return []int{idx.ordinal}
	}
	var matches []int
	for i, f := range schema.fields {
		if f.ColumnName != idx.columnName {
			continue
		}
		if idx.correlation != "" && f.Correlation != idx.correlation {
			continue
		}
		matches = append(matches, i)
	}
	return matches
}

// Resolve1 resolves idx to exactly one position, failing NameErrorNotFound
// on zero matches and NameErrorAmbiguous on more than one — the rule C10's
// Index expression requires.
func (idx SchemaIndex) Resolve1(schema *RowSchema) (int, error) {
	matches := idx.Resolve(schema)
	switch len(matches) {
	case 0:
		return 0, errs.NewNameErrorNotFound(idx.describe())
	case 1:
		return matches[0], nil
	default:
		return 0, errs.NewNameErrorAmbiguous(idx.describe())
	}
}

func (idx SchemaIndex) describe() string {
	if !idx.byName {
		return "<ordinal>"
	}
	if idx.correlation == "" {
		return idx.columnName
	}
	return idx.correlation + "." + idx.columnName
}

// Row is a positional tuple of SQL values.
type Row struct {
	values []types.SqlValue
}

// NewRow wraps a slice of values as a Row. The slice is copied.
func NewRow(values []types.SqlValue) Row {
	return Row{values: append([]types.SqlValue(nil), values...)}
}

// Get returns the value at ordinal position i.
func (r Row) Get(i int) types.SqlValue { return r.values[i] }

// Len is the number of values in the row.
func (r Row) Len() int { return len(r.values) }

// Values exposes the row's positional values, in order.
func (r Row) Values() []types.SqlValue { return append([]types.SqlValue(nil), r.values...) }

// Project returns a narrower row over just the listed ordinal positions,
// preserving order. void marks positions that have no backing value and
// must be materialized as NULL instead of read from r.
func (r Row) Project(positions []int, void []bool) Row {
	out := make([]types.SqlValue, len(positions))
	for i, p := range positions {
		if void[i] {
			out[i] = types.NullValue
			continue
		}
		out[i] = r.values[p]
	}
	return Row{values: out}
}

// Builder incrementally constructs a Row, rejecting duplicate column names
// with NameErrorDuplicate at build time (§9 "Mutable row helpers in
// construction"); the resulting Row is immutable.
type Builder struct {
	fields []FieldName
	values []types.SqlValue
	seen   map[string]bool
}

// NewBuilder creates an empty row Builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// Add appends one (name, value) field. correlation may be empty.
func (b *Builder) Add(correlation string, column types.ColumnName, value types.SqlValue) error {
	key := correlation + "\x00" + column
	if b.seen[key] {
		return errs.NewNameErrorDuplicate(column)
	}
	b.seen[key] = true
	b.fields = append(b.fields, FieldName{Correlation: correlation, ColumnName: column})
	b.values = append(b.values, value)
	return nil
}

// Build finalizes the Row and its RowSchema.
func (b *Builder) Build() (Row, *RowSchema) {
	return Row{values: append([]types.SqlValue(nil), b.values...)}, NewRowSchema(b.fields)
}
