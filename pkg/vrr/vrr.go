// Package vrr implements the Version-Revision Resolver (C8): the
// append-only index mapping each row's apparent primary key to
// (rowid, revision, version_number), stored as one substrate table per
// VTable (`<table>__navi`, §4.4–§4.5).
package vrr

import (
	"context"
	"fmt"
	"strings"

	"github.com/kasugasql/immutaschema/pkg/substrate"
	"github.com/kasugasql/immutaschema/pkg/types"
	"github.com/kasugasql/immutaschema/pkg/vtable"
)

// APK is the apparent primary key: an ordered list of (column, value) pairs
// addressed against one VTable.
type APK struct {
	Table  types.TableName
	Values []APKValue
}

// APKValue is one column of an APK.
type APKValue struct {
	Column types.ColumnName
	Value  types.SqlValue
}

// Entry is one row of the VRR's logical relation.
type Entry struct {
	Rowid         int64
	APK           APK
	Revision      uint64
	VersionNumber uint64 // meaningful only when Live is true
	Live          bool   // false = tombstone (version_number IS NULL)
}

// ProbeResult is the tri-state outcome of Probe.
type ProbeResult struct {
	State    ProbeState
	Rowid    int64
	Revision uint64
	Version  uint64 // valid when State == Exist
}

type ProbeState int

const (
	NotExist ProbeState = iota
	Deleted
	Exist
)

// Resolver is the VRR for one VTable. The navi table carries an explicit
// surrogate `_navi_rowid` column (rather than relying on a substrate-specific
// implicit rowid) so the same shape works against both the sqlite and mysql
// backends bound in SPEC_FULL.md's domain stack, modulo each backend's own
// auto-increment spelling: its value is what the adapter hands back to
// the version data table as `_navi_rowid`.
type Resolver struct {
	vt *vtable.VTable
}

// New creates a Resolver bound to vt's navi table.
func New(vt *vtable.VTable) *Resolver {
	return &Resolver{vt: vt}
}

func quote(ident string) string { return "`" + strings.ReplaceAll(ident, "`", "``") + "`" }

// CreateTable initializes the per-VTable VRR substrate table (§4.4).
func (r *Resolver) CreateTable(ctx context.Context, tx *substrate.Tx) error {
	pkCols := r.vt.PKColumnNames()
	pkTypes := r.vt.Constraints().PrimaryKeyColumns()
	autoIncrement := "AUTOINCREMENT"
	if tx.Driver() == substrate.DriverMySQL {
		autoIncrement = "AUTO_INCREMENT"
	}
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quote(r.vt.NaviTableName()))
	fmt.Fprintf(&b, " (_navi_rowid INTEGER PRIMARY KEY %s, ", autoIncrement)
	for _, c := range pkTypes {
		fmt.Fprintf(&b, "%s %s NOT NULL, ", quote(c.Name), c.Type)
	}
	b.WriteString("revision INTEGER NOT NULL, version_number INTEGER NULL, UNIQUE (")
	names := make([]string, len(pkCols))
	for i, c := range pkCols {
		names[i] = quote(c)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(", revision))")
	_, err := tx.Execute(ctx, b.String())
	return err
}

// Insert registers a new live entry. The caller chooses the revision (1 for
// a fresh INSERT; one past the APK's latest revision, tombstones included,
// otherwise) and receives the surrogate `_navi_rowid` that must back the row
// in the version's data table as `_navi_rowid`.
func (r *Resolver) Insert(ctx context.Context, tx *substrate.Tx, apk APK, revision uint64, versionNumber uint64) (int64, error) {
	cols := make([]string, 0, len(apk.Values)+2)
	placeholders := make([]string, 0, len(apk.Values)+2)
	args := make([]interface{}, 0, len(apk.Values)+2)
	for _, v := range apk.Values {
		cols = append(cols, quote(v.Column))
		placeholders = append(placeholders, "?")
		args = append(args, driverValue(v.Value))
	}
	cols = append(cols, "revision", "version_number")
	placeholders = append(placeholders, "?", "?")
	args = append(args, revision, versionNumber)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.vt.NaviTableName()), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return tx.Execute(ctx, query, args...)
}

// insertTombstone appends revision+1 with version_number=NULL for apk. The
// tombstone row gets its own surrogate `_navi_rowid`, distinct from any live row's.
func (r *Resolver) insertTombstone(ctx context.Context, tx *substrate.Tx, apk APK, revision uint64) error {
	cols := make([]string, 0, len(apk.Values)+2)
	placeholders := make([]string, 0, len(apk.Values)+2)
	args := make([]interface{}, 0, len(apk.Values)+2)
	for _, v := range apk.Values {
		cols = append(cols, quote(v.Column))
		placeholders = append(placeholders, "?")
		args = append(args, driverValue(v.Value))
	}
	cols = append(cols, "revision", "version_number")
	placeholders = append(placeholders, "?", "NULL")
	args = append(args, revision)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(r.vt.NaviTableName()), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err := tx.Execute(ctx, query, args...)
	return err
}

// Probe performs a latest-revision lookup for apk, distinguishing
// never-existed, deleted, and live.
func (r *Resolver) Probe(ctx context.Context, tx *substrate.Tx, apk APK) (ProbeResult, error) {
	where := make([]string, len(apk.Values))
	args := make([]interface{}, len(apk.Values))
	for i, v := range apk.Values {
		where[i] = quote(v.Column) + " = ?"
		args[i] = driverValue(v.Value)
	}
	query := fmt.Sprintf(
		"SELECT _navi_rowid, revision, version_number FROM %s WHERE %s ORDER BY revision DESC LIMIT 1",
		quote(r.vt.NaviTableName()), strings.Join(where, " AND "))
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return ProbeResult{}, err
	}
	if len(rows.Values) == 0 {
		return ProbeResult{State: NotExist}, nil
	}
	row := rows.Values[0]
	rowid := asInt64(row[0])
	revision := uint64(asInt64(row[1]))
	if row[2] == nil {
		return ProbeResult{State: Deleted, Rowid: rowid, Revision: revision}, nil
	}
	return ProbeResult{State: Exist, Rowid: rowid, Revision: revision, Version: uint64(asInt64(row[2]))}, nil
}

// Scan returns, for each APK, the entry with the maximum revision where
// version_number IS NOT NULL — live rows only; a tombstone hides all prior
// revisions of its APK (§4.4).
func (r *Resolver) Scan(ctx context.Context, tx *substrate.Tx) ([]Entry, error) {
	pkCols := r.vt.PKColumnNames()
	quotedPK := make([]string, len(pkCols))
	for i, c := range pkCols {
		quotedPK[i] = quote(c)
	}
	selectList := strings.Join(quotedPK, ", ")
	query := fmt.Sprintf(`
		SELECT n._navi_rowid, %s, n.revision, n.version_number
		FROM %s n
		INNER JOIN (
			SELECT %s, MAX(revision) AS max_rev
			FROM %s
			GROUP BY %s
		) latest ON %s AND n.revision = latest.max_rev
		WHERE n.version_number IS NOT NULL
	`,
		qualify("n", quotedPK), quote(r.vt.NaviTableName()),
		selectList, quote(r.vt.NaviTableName()), selectList,
		joinOn(quotedPK),
	)
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows.Values))
	for _, row := range rows.Values {
		rowid := asInt64(row[0])
		apkValues := make([]APKValue, len(pkCols))
		for i, c := range pkCols {
			apkValues[i] = APKValue{Column: c, Value: fromDriver(row[1+i])}
		}
		revision := uint64(asInt64(row[1+len(pkCols)]))
		versionNumber := uint64(asInt64(row[2+len(pkCols)]))
		out = append(out, Entry{
			Rowid:         rowid,
			APK:           APK{Table: r.vt.Id().Table, Values: apkValues},
			Revision:      revision,
			VersionNumber: versionNumber,
			Live:          true,
		})
	}
	return out, nil
}

func qualify(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

func joinOn(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = "n." + c + " = latest." + c
	}
	return strings.Join(out, " AND ")
}

// InsertTombstones appends a new row with revision+1 and version_number=NULL
// for each of the given live entries.
func (r *Resolver) InsertTombstones(ctx context.Context, tx *substrate.Tx, entries []Entry) error {
	for _, e := range entries {
		if err := r.insertTombstone(ctx, tx, e.APK, e.Revision+1); err != nil {
			return err
		}
	}
	return nil
}

// InsertTombstonesAll tombstones the latest live revision of every APK in
// the table (DELETE-without-WHERE).
func (r *Resolver) InsertTombstonesAll(ctx context.Context, tx *substrate.Tx) error {
	entries, err := r.Scan(ctx, tx)
	if err != nil {
		return err
	}
	return r.InsertTombstones(ctx, tx, entries)
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func driverValue(v types.SqlValue) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case types.Text:
		return v.TextValue()
	case types.Boolean:
		return v.Bool()
	default:
		return v.Int64()
	}
}

func fromDriver(v interface{}) types.SqlValue {
	switch x := v.(type) {
	case nil:
		return types.NullValue
	case string:
		return types.NewText(x)
	case int64:
		return types.NarrowestInteger(x)
	case float64:
		return types.NarrowestInteger(int64(x))
	case bool:
		return types.NewBoolean(x)
	default:
		return types.NullValue
	}
}
