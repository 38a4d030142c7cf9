// Package version implements the version model (C6): one version's number,
// non-PK column data types and per-version constraints, plus the
// derivation rules (initial, next) and the insertability check that drives
// "largest version that accepts a row".
package version

import (
	"fmt"

	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/vtable"
)

// Number is a version's ordinal, starting at 1.
type Number uint64

// Id identifies one version of a VTable.
type Id struct {
	VTable vtable.Id
	Number Number
}

// AlterAction is one schema change that derives a new version from the
// previous one.
type AlterAction struct {
	AddColumn  *schema.ColumnDataType // non-nil for AddColumn
	DropColumn types.ColumnName       // non-empty for DropColumn
}

// Version is one immutable schema generation of a table.
type Version struct {
	id              Id
	nonPKColumns    []schema.ColumnDataType
	versionConstraints []schema.TableWideConstraint
	tableName       types.TableName
	pkColumnNames   map[types.ColumnName]bool
}

// Initial constructs VersionNumber=1 with the given non-PK columns and no
// version constraints.
func Initial(vtableID vtable.Id, pkColumnNames []types.ColumnName, nonPKColumns []schema.ColumnDataType) *Version {
	pkSet := make(map[types.ColumnName]bool, len(pkColumnNames))
	for _, n := range pkColumnNames {
		pkSet[n] = true
	}
	return &Version{
		id:            Id{VTable: vtableID, Number: 1},
		nonPKColumns:  append([]schema.ColumnDataType(nil), nonPKColumns...),
		tableName:     vtableID.Table,
		pkColumnNames: pkSet,
	}
}

// Restore reconstructs a Version at a specific number from persisted
// metadata, bypassing the Initial/Next derivation chain — used by the
// catalog when loading a table's already-created versions back from the
// substrate's `_version_metadata` table.
func Restore(vtableID vtable.Id, number Number, pkColumnNames []types.ColumnName, nonPKColumns []schema.ColumnDataType) *Version {
	pkSet := make(map[types.ColumnName]bool, len(pkColumnNames))
	for _, n := range pkColumnNames {
		pkSet[n] = true
	}
	return &Version{
		id:            Id{VTable: vtableID, Number: number},
		nonPKColumns:  append([]schema.ColumnDataType(nil), nonPKColumns...),
		tableName:     vtableID.Table,
		pkColumnNames: pkSet,
	}
}

// Id returns this version's identity.
func (v *Version) Id() Id { return v.id }

// NonPKColumns returns the non-PK columns declared in this version.
func (v *Version) NonPKColumns() []schema.ColumnDataType {
	return append([]schema.ColumnDataType(nil), v.nonPKColumns...)
}

// HasColumn reports whether name is a non-PK column of this version.
func (v *Version) HasColumn(name types.ColumnName) bool {
	for _, c := range v.nonPKColumns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// DataTableName is the substrate table holding this version's rows (§4.5):
// `<table>__v<n>`.
func (v *Version) DataTableName() string {
	return fmt.Sprintf("%s__v%d", v.tableName, v.id.Number)
}

// Next derives version N+1 by exactly one AddColumn or DropColumn action.
func (v *Version) Next(action AlterAction) (*Version, error) {
	cols := append([]schema.ColumnDataType(nil), v.nonPKColumns...)

	switch {
	case action.AddColumn != nil:
		if v.HasColumn(action.AddColumn.Name) {
			return nil, errs.NewNameErrorDuplicate(action.AddColumn.Name)
		}
		cols = append(cols, *action.AddColumn)
	case action.DropColumn != "":
		if v.pkColumnNames[action.DropColumn] {
			return nil, errs.NewDdlError("cannot drop primary key column %q", action.DropColumn)
		}
		idx := -1
		for i, c := range cols {
			if c.Name == action.DropColumn {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, errs.NewNameErrorNotFound(action.DropColumn)
		}
		for _, vc := range v.versionConstraints {
			for _, cn := range vc.ColumnNames {
				if cn == action.DropColumn {
					return nil, errs.NewDdlError("cannot drop column %q: referenced by a version constraint", action.DropColumn)
				}
			}
		}
		cols = append(cols[:idx], cols[idx+1:]...)
	default:
		return nil, errs.NewDdlError("Next requires exactly one of AddColumn or DropColumn")
	}

	return &Version{
		id:                 Id{VTable: v.id.VTable, Number: v.id.Number + 1},
		nonPKColumns:       cols,
		versionConstraints: v.versionConstraints,
		tableName:          v.tableName,
		pkColumnNames:      v.pkColumnNames,
	}, nil
}

// CheckInsertability validates columnValues against this version's non-PK
// column set: every NOT-NULL column must be present, and no key may be
// absent from the version's declared columns. It is the rule that "largest
// version that can accept a row" is built on.
func (v *Version) CheckInsertability(columnValues map[types.ColumnName]types.SqlValue) error {
	for key := range columnValues {
		if !v.HasColumn(key) {
			return errs.NewNameErrorNotFound(key)
		}
	}
	for _, col := range v.nonPKColumns {
		if col.Nullable {
			continue
		}
		val, present := columnValues[col.Name]
		if !present || val.IsNull() {
			return errs.NewIntegrityConstraintNotNullViolation(col.Name)
		}
	}
	return nil
}

// LargestAccepting picks, among versions (assumed ordered by Number
// ascending, all active), the one with the highest Number whose
// CheckInsertability succeeds against columnValues. Returns the largest
// version's own check error (IntegrityConstraintNotNullViolation or
// NameErrorNotFound) if none accept — that is the most informative single
// error to surface.
func LargestAccepting(versions []*Version, columnValues map[types.ColumnName]types.SqlValue) (*Version, error) {
	if len(versions) == 0 {
		return nil, errs.NewSystemError("no active versions for table")
	}
	var lastErr error
	for i := len(versions) - 1; i >= 0; i-- {
		if err := versions[i].CheckInsertability(columnValues); err == nil {
			return versions[i], nil
		} else if lastErr == nil {
			lastErr = err
		}
	}
	return nil, lastErr
}
