// Package schema holds the table-wide schema descriptors: column data types
// and the table-wide constraint set (PRIMARY KEY / UNIQUE).
package schema

import (
	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// ColumnDataType pairs a column name with its SQL type and a per-version
// nullability flag.
type ColumnDataType struct {
	Name     types.ColumnName
	Type     types.SqlType
	Nullable bool
}

// ConstraintKind distinguishes the two table-wide constraint shapes.
type ConstraintKind int

const (
	PrimaryKey ConstraintKind = iota
	Unique
)

// TableWideConstraint is exactly one of PrimaryKey{cols} or Unique{cols}.
type TableWideConstraint struct {
	Kind        ConstraintKind
	ColumnNames []types.ColumnName
}

// TableWideConstraints is the validated set of constraints for one table.
// PK column data types are extracted once at construction and reused by
// every version (they never change after CREATE TABLE).
type TableWideConstraints struct {
	constraints []TableWideConstraint
	pkColumns   []ColumnDataType
}

// NewTableWideConstraints validates constraints against columnDefinitions
// and extracts the PK column data types. Validates:
//   - exactly one PrimaryKey;
//   - no two constraints reference the same ordered column set;
//   - every constraint column is defined in columnDefinitions;
//   - column names inside a single constraint are unique.
func NewTableWideConstraints(constraints []TableWideConstraint, columnDefinitions []ColumnDataType) (*TableWideConstraints, error) {
	byName := make(map[types.ColumnName]ColumnDataType, len(columnDefinitions))
	for _, c := range columnDefinitions {
		byName[c.Name] = c
	}

	var pk *TableWideConstraint
	seenSets := make(map[string]bool)
	for i := range constraints {
		c := &constraints[i]

		seen := make(map[types.ColumnName]bool, len(c.ColumnNames))
		for _, name := range c.ColumnNames {
			if seen[name] {
				return nil, errs.NewDdlError("column %q listed twice in the same constraint", name)
			}
			seen[name] = true
			if _, ok := byName[name]; !ok {
				return nil, errs.NewDdlError("constraint references undefined column %q", name)
			}
		}

		key := constraintSetKey(c.ColumnNames)
		if seenSets[key] {
			return nil, errs.NewDdlError("duplicate constraint over columns %v", c.ColumnNames)
		}
		seenSets[key] = true

		if c.Kind == PrimaryKey {
			if pk != nil {
				return nil, errs.NewDdlError("table defines more than one PRIMARY KEY")
			}
			pk = c
		}
	}
	if pk == nil {
		return nil, errs.NewDdlError("table defines no PRIMARY KEY")
	}

	pkCols := make([]ColumnDataType, 0, len(pk.ColumnNames))
	for _, name := range pk.ColumnNames {
		pkCols = append(pkCols, byName[name])
	}

	return &TableWideConstraints{
		constraints: append([]TableWideConstraint(nil), constraints...),
		pkColumns:   pkCols,
	}, nil
}

func constraintSetKey(names []types.ColumnName) string {
	s := ""
	for _, n := range names {
		s += n + "\x00"
	}
	return s
}

// PrimaryKeyColumns returns the PK column data types, in declaration order.
func (c *TableWideConstraints) PrimaryKeyColumns() []ColumnDataType {
	return append([]ColumnDataType(nil), c.pkColumns...)
}

// PrimaryKeyColumnNames is a convenience accessor over PrimaryKeyColumns.
func (c *TableWideConstraints) PrimaryKeyColumnNames() []types.ColumnName {
	names := make([]types.ColumnName, len(c.pkColumns))
	for i, col := range c.pkColumns {
		names[i] = col.Name
	}
	return names
}

// All returns every declared constraint, PK included.
func (c *TableWideConstraints) All() []TableWideConstraint {
	return append([]TableWideConstraint(nil), c.constraints...)
}

// serializedConstraint and serializedTableWideConstraints are the JSON
// round-trip shapes used by the substrate adapter's metadata tables (§4.5).
type serializedConstraint struct {
	Kind    string   `json:"kind"`
	Columns []string `json:"columns"`
}

type serializedTableWideConstraints struct {
	Constraints []serializedConstraint `json:"constraints"`
	PKColumns   []serializedColumnType `json:"pk_columns"`
}

type serializedColumnType struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func (k ConstraintKind) String() string {
	if k == PrimaryKey {
		return "PRIMARY_KEY"
	}
	return "UNIQUE"
}

// Marshal renders the constraint set as the JSON-tagged shape the substrate
// adapter encodes and persists in `_vtable_metadata`.
func (c *TableWideConstraints) Marshal() (serializedTableWideConstraints, error) {
	out := serializedTableWideConstraints{
		Constraints: make([]serializedConstraint, len(c.constraints)),
		PKColumns:   make([]serializedColumnType, len(c.pkColumns)),
	}
	for i, cons := range c.constraints {
		out.Constraints[i] = serializedConstraint{Kind: cons.Kind.String(), Columns: cons.ColumnNames}
	}
	for i, col := range c.pkColumns {
		out.PKColumns[i] = serializedColumnType{Name: col.Name, Type: string(col.Type), Nullable: col.Nullable}
	}
	return out, nil
}
