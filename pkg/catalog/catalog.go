// Package catalog bridges the versioned table model (C5, C6) to the
// storage substrate (C9): it is where CREATE TABLE / ALTER TABLE turn into
// persisted VTable/Version metadata and where a table's current set of
// active versions is reconstructed for the planner and executor.
package catalog

import (
	"context"

	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/version"
	"github.com/kasugasql/immutaschema/pkg/vrr"
	"github.com/kasugasql/immutaschema/pkg/vtable"
)

// Table bundles a VTable with its currently active versions, ascending by
// VersionNumber, plus the VRR bound to it — everything the planner and
// executor need to act on one table.
type Table struct {
	VTable   *vtable.VTable
	Versions []*version.Version
	VRR      *vrr.Resolver
}

// Catalog reconstructs and persists VTable/Version metadata through a
// Substrate transaction.
type Catalog struct{}

// New creates a Catalog. It carries no state of its own: every operation
// reads/writes through the Tx it is given, matching §9's "no global state"
// design note.
func New() *Catalog { return &Catalog{} }

// CreateTable validates constraints, creates VersionNumber=1, and persists
// the VTable/version metadata plus the navi and v1 data tables.
func (c *Catalog) CreateTable(ctx context.Context, tx *substrate.Tx, tableName types.TableName, columns []schema.ColumnDataType, constraints []schema.TableWideConstraint) (*Table, error) {
	twc, err := schema.NewTableWideConstraints(constraints, columns)
	if err != nil {
		return nil, err
	}
	vtID := vtable.Id{Table: tableName}
	vt := vtable.New(vtID, twc)

	pkSet := make(map[types.ColumnName]bool)
	for _, c := range twc.PrimaryKeyColumnNames() {
		pkSet[c] = true
	}
	var nonPK []schema.ColumnDataType
	for _, col := range columns {
		if !pkSet[col.Name] {
			nonPK = append(nonPK, col)
		}
	}

	v1 := version.Initial(vtID, vt.PKColumnNames(), nonPK)

	if err := tx.EnsureSystemTables(ctx); err != nil {
		return nil, err
	}
	if err := tx.PutVTableMetadata(ctx, tableName, twc); err != nil {
		return nil, err
	}
	if err := tx.PutVersionMetadata(ctx, tableName, uint64(v1.Id().Number), nonPK, nil, true); err != nil {
		return nil, err
	}
	if err := tx.CreateVersionTable(ctx, v1.DataTableName(), nonPK); err != nil {
		return nil, err
	}

	resolver := vrr.New(vt)
	if err := resolver.CreateTable(ctx, tx); err != nil {
		return nil, err
	}

	return &Table{VTable: vt, Versions: []*version.Version{v1}, VRR: resolver}, nil
}

// AlterTable derives version N+1 from the latest active version and
// persists it.
func (c *Catalog) AlterTable(ctx context.Context, tx *substrate.Tx, tableName types.TableName, action version.AlterAction) (*Table, error) {
	t, err := c.Load(ctx, tx, tableName)
	if err != nil {
		return nil, err
	}
	latest := t.Versions[len(t.Versions)-1]
	next, err := latest.Next(action)
	if err != nil {
		return nil, err
	}
	if err := tx.PutVersionMetadata(ctx, tableName, uint64(next.Id().Number), next.NonPKColumns(), nil, true); err != nil {
		return nil, err
	}
	if err := tx.CreateVersionTable(ctx, next.DataTableName(), next.NonPKColumns()); err != nil {
		return nil, err
	}
	t.Versions = append(t.Versions, next)
	return t, nil
}

// DropTable removes every version's data table, the VRR table, and the
// table's system catalog rows (§3: "DROP TABLE is optional and left to
// substrate cascade" — no tombstoning, the data is gone).
func (c *Catalog) DropTable(ctx context.Context, tx *substrate.Tx, tableName types.TableName) error {
	t, err := c.Load(ctx, tx, tableName)
	if err != nil {
		return err
	}
	for _, v := range t.Versions {
		if err := tx.DropDataTable(ctx, v.DataTableName()); err != nil {
			return err
		}
	}
	if err := tx.DropNaviTable(ctx, t.VTable.NaviTableName()); err != nil {
		return err
	}
	return tx.DeleteTableMetadata(ctx, tableName)
}

// Load reconstructs a Table from persisted metadata.
func (c *Catalog) Load(ctx context.Context, tx *substrate.Tx, tableName types.TableName) (*Table, error) {
	twc, err := tx.GetVTableMetadata(ctx, tableName)
	if err != nil {
		return nil, err
	}
	vtID := vtable.Id{Table: tableName}
	vt := vtable.New(vtID, twc)

	rows, err := tx.ListVersionMetadata(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.NewNameErrorNotFound(tableName)
	}
	versions := make([]*version.Version, 0, len(rows))
	for _, r := range rows {
		if !r.IsActive {
			continue
		}
		versions = append(versions, version.Restore(vtID, version.Number(r.VersionNumber), vt.PKColumnNames(), r.Columns))
	}

	return &Table{VTable: vt, Versions: versions, VRR: vrr.New(vt)}, nil
}
