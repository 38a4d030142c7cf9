// Package vtable implements the versioned-table model (C5): a table's
// identity and table-wide constraints, owning the set of versions derived
// from it.
package vtable

import (
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// Id identifies a VTable within a database.
type Id struct {
	Database types.DatabaseName
	Table    types.TableName
}

// VTable is a table's identity plus its table-wide constraints. PK columns
// and their types are common to every version and never change after
// creation.
type VTable struct {
	id          Id
	constraints *schema.TableWideConstraints
}

// New constructs a VTable from its identity and validated constraints.
func New(id Id, constraints *schema.TableWideConstraints) *VTable {
	return &VTable{id: id, constraints: constraints}
}

// Id returns the VTable's identity.
func (v *VTable) Id() Id { return v.id }

// Constraints returns the table-wide constraints.
func (v *VTable) Constraints() *schema.TableWideConstraints { return v.constraints }

// PKColumnNames is a convenience accessor for the APK's column names.
func (v *VTable) PKColumnNames() []types.ColumnName {
	return v.constraints.PrimaryKeyColumnNames()
}

// NaviTableName is the VRR's substrate table for this VTable (§4.5): `<table>__navi`.
func (v *VTable) NaviTableName() string { return v.id.Table + "__navi" }
