// Package substrate is the storage substrate adapter (C9): it maps
// versions and VRR entries onto tables of an underlying transactional SQL
// engine reached through database/sql, and is the sole place in the module
// that speaks the substrate's SQL dialect. Every other package speaks in
// typed structures.
package substrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/kasugasql/immutaschema/pkg/errs"
	"github.com/kasugasql/immutaschema/pkg/schema"
	"github.com/kasugasql/immutaschema/pkg/types"
)

// Driver names the two backends this spec wires per SPEC_FULL.md's domain
// stack table.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverMySQL  Driver = "mysql"
)

// Substrate owns the connection pool and exposes CREATE TABLE / INSERT /
// SELECT / UPDATE / DELETE plus transactions, as described by the §6
// substrate contract.
type Substrate struct {
	driver Driver
	db     *sql.DB
	logger *log.Logger
}

// Open connects to dsn using driver, following the teacher's Connect/ping
// pattern (pkg/resource/mysql_source.go).
func Open(ctx context.Context, driver Driver, dsn string, logger *log.Logger) (*Substrate, error) {
	driverName := string(driver)
	if driver == DriverSQLite {
		driverName = "sqlite"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errs.NewSystemError("opening substrate connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errs.NewSystemError("pinging substrate: %v", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Substrate{driver: driver, db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Substrate) Close() error { return s.db.Close() }

// Tx is a single substrate transaction handle, matching the §6 contract's
// Execute / Query / Begin / Commit / Rollback shape.
type Tx struct {
	sub *sql.Tx
	s   *Substrate
}

// Driver reports which backend this transaction is running against, for
// callers (e.g. pkg/vrr) that must emit backend-specific DDL.
func (t *Tx) Driver() Driver { return t.s.driver }

// Begin opens a new transaction.
func (s *Substrate) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, errs.NewSystemError("beginning substrate transaction: %v", err)
	}
	return &Tx{sub: tx, s: s}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.sub.Commit(); err != nil {
		return errs.NewSystemError("committing transaction: %v", err)
	}
	return nil
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	if err := t.sub.Rollback(); err != nil && err != sql.ErrTxDone {
		return errs.NewSystemError("rolling back transaction: %v", err)
	}
	return nil
}

// Execute runs a statement expected to produce no row set, returning the
// substrate-assigned last insert rowid when applicable (INSERT).
func (t *Tx) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	t.s.logger.Printf("substrate execute: %s", query)
	res, err := t.sub.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errs.NewIntegrityConstraintUniqueViolation("%v", err)
		}
		return 0, errs.NewSystemError("executing %q: %v", query, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, nil // not every statement has a meaningful rowid (e.g. CREATE TABLE)
	}
	return id, nil
}

// Rows is the substrate's result set: column names plus positional values,
// one []interface{} per row, already widened to driver-native Go types.
type Rows struct {
	Columns []string
	Values  [][]interface{}
}

// Query runs a SELECT and materializes the full result set (no
// backpressure, matching §4.7's executor model).
func (t *Tx) Query(ctx context.Context, query string, args ...interface{}) (*Rows, error) {
	t.s.logger.Printf("substrate query: %s", query)
	rows, err := t.sub.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewSystemError("querying %q: %v", query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.NewSystemError("reading columns: %v", err)
	}

	out := &Rows{Columns: cols}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errs.NewSystemError("scanning row: %v", err)
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewSystemError("iterating rows: %v", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// QuoteIdent quotes an identifier safely for the active driver, matching
// the §6 contract's "all identifiers and values must be safely quoted"
// requirement.
func (s *Substrate) QuoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// sqlTypeName renders a types.SqlType as the substrate's column type.
func sqlTypeName(t types.SqlType) string {
	switch t {
	case types.SmallInt:
		return "SMALLINT"
	case types.Integer:
		return "INTEGER"
	case types.BigInt:
		return "BIGINT"
	case types.Text:
		return "TEXT"
	case types.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// --- Metadata tables (§6 persisted layout) -------------------------------

// EnsureSystemTables creates `_vtable_metadata` and `_version_metadata` if
// absent.
func (t *Tx) EnsureSystemTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _vtable_metadata (
			table_name TEXT PRIMARY KEY,
			table_wide_constraints TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS _version_metadata (
			table_name TEXT NOT NULL,
			version_number INTEGER NOT NULL,
			column_data_types TEXT NOT NULL,
			version_constraints TEXT NOT NULL,
			is_active BOOLEAN NOT NULL,
			PRIMARY KEY (table_name, version_number)
		)`,
	}
	for _, s := range stmts {
		if _, err := t.Execute(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// PutVTableMetadata upserts the table-wide constraints blob for tableName.
func (t *Tx) PutVTableMetadata(ctx context.Context, tableName string, constraints *schema.TableWideConstraints) error {
	marshaled, err := constraints.Marshal()
	if err != nil {
		return errs.NewSystemError("marshaling table-wide constraints: %v", err)
	}
	blob, err := json.Marshal(marshaled)
	if err != nil {
		return errs.NewSystemError("encoding table-wide constraints: %v", err)
	}
	_, err = t.Execute(ctx, t.upsertSQL(
		`INSERT INTO _vtable_metadata (table_name, table_wide_constraints) VALUES (?, ?)
		 ON CONFLICT(table_name) DO UPDATE SET table_wide_constraints = excluded.table_wide_constraints`,
		`INSERT INTO _vtable_metadata (table_name, table_wide_constraints) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE table_wide_constraints = VALUES(table_wide_constraints)`,
	), tableName, string(blob))
	return err
}

// upsertSQL picks the sqlite-flavored statement (standard ON CONFLICT, which
// MySQL's grammar does not parse) or the mysql-flavored one (ON DUPLICATE KEY
// UPDATE, which sqlite does not parse) for the active driver.
func (t *Tx) upsertSQL(sqliteStmt, mysqlStmt string) string {
	if t.s.driver == DriverMySQL {
		return mysqlStmt
	}
	return sqliteStmt
}

// GetVTableMetadata reads back the constraints blob for tableName.
func (t *Tx) GetVTableMetadata(ctx context.Context, tableName string) (*schema.TableWideConstraints, error) {
	rows, err := t.Query(ctx, `SELECT table_wide_constraints FROM _vtable_metadata WHERE table_name = ?`, tableName)
	if err != nil {
		return nil, err
	}
	if len(rows.Values) == 0 {
		return nil, errs.NewNameErrorNotFound(tableName)
	}
	blob, _ := rows.Values[0][0].(string)
	return unmarshalConstraints(blob)
}

func unmarshalConstraints(blob string) (*schema.TableWideConstraints, error) {
	var payload struct {
		Constraints []struct {
			Kind    string   `json:"kind"`
			Columns []string `json:"columns"`
		} `json:"constraints"`
		PKColumns []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Nullable bool   `json:"nullable"`
		} `json:"pk_columns"`
	}
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return nil, errs.NewSystemError("decoding table-wide constraints: %v", err)
	}

	constraints := make([]schema.TableWideConstraint, len(payload.Constraints))
	for i, c := range payload.Constraints {
		kind := schema.Unique
		if c.Kind == "PRIMARY_KEY" {
			kind = schema.PrimaryKey
		}
		constraints[i] = schema.TableWideConstraint{Kind: kind, ColumnNames: c.Columns}
	}
	pkCols := make([]schema.ColumnDataType, len(payload.PKColumns))
	for i, c := range payload.PKColumns {
		pkCols[i] = schema.ColumnDataType{Name: c.Name, Type: types.SqlType(c.Type), Nullable: c.Nullable}
	}
	// Only PK column types are persisted; non-PK columns named by a UNIQUE
	// constraint are declared by name so the constraint validates again.
	defined := make(map[types.ColumnName]bool, len(pkCols))
	for _, c := range pkCols {
		defined[c.Name] = true
	}
	for _, c := range constraints {
		for _, name := range c.ColumnNames {
			if !defined[name] {
				defined[name] = true
				pkCols = append(pkCols, schema.ColumnDataType{Name: name})
			}
		}
	}
	return schema.NewTableWideConstraints(constraints, pkCols)
}

// PutVersionMetadata upserts one version's metadata row.
func (t *Tx) PutVersionMetadata(ctx context.Context, tableName string, versionNumber uint64, columns []schema.ColumnDataType, versionConstraints []schema.TableWideConstraint, isActive bool) error {
	colsBlob, err := json.Marshal(columns)
	if err != nil {
		return errs.NewSystemError("encoding version columns: %v", err)
	}
	consBlob, err := json.Marshal(versionConstraints)
	if err != nil {
		return errs.NewSystemError("encoding version constraints: %v", err)
	}
	_, err = t.Execute(ctx, t.upsertSQL(
		`INSERT INTO _version_metadata (table_name, version_number, column_data_types, version_constraints, is_active)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(table_name, version_number) DO UPDATE SET
		   column_data_types = excluded.column_data_types,
		   version_constraints = excluded.version_constraints,
		   is_active = excluded.is_active`,
		`INSERT INTO _version_metadata (table_name, version_number, column_data_types, version_constraints, is_active)
		 VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   column_data_types = VALUES(column_data_types),
		   version_constraints = VALUES(version_constraints),
		   is_active = VALUES(is_active)`,
	), tableName, versionNumber, string(colsBlob), string(consBlob), isActive)
	return err
}

// VersionMetadataRow is one row read back from `_version_metadata`.
type VersionMetadataRow struct {
	VersionNumber uint64
	Columns       []schema.ColumnDataType
	IsActive      bool
}

// ListVersionMetadata returns every version row for tableName, ascending by
// version_number.
func (t *Tx) ListVersionMetadata(ctx context.Context, tableName string) ([]VersionMetadataRow, error) {
	rows, err := t.Query(ctx,
		`SELECT version_number, column_data_types, is_active FROM _version_metadata WHERE table_name = ? ORDER BY version_number ASC`,
		tableName)
	if err != nil {
		return nil, err
	}
	out := make([]VersionMetadataRow, 0, len(rows.Values))
	for _, v := range rows.Values {
		num := toInt64(v[0])
		blob, _ := v[1].(string)
		var cols []schema.ColumnDataType
		if err := json.Unmarshal([]byte(blob), &cols); err != nil {
			return nil, errs.NewSystemError("decoding version %d columns for %q: %v", num, tableName, err)
		}
		out = append(out, VersionMetadataRow{
			VersionNumber: uint64(num),
			Columns:       cols,
			IsActive:      toBool(v[2]),
		})
	}
	return out, nil
}

func toInt64(v interface{}) int64 {
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

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	default:
		return false
	}
}

// --- Per-version data tables (§4.5) ---------------------------------------

// CreateVersionTable creates `<table>__v<n>` with `_navi_rowid BIGINT PK`
// plus the version's non-PK columns.
func (t *Tx) CreateVersionTable(ctx context.Context, dataTableName string, columns []schema.ColumnDataType) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (_navi_rowid BIGINT PRIMARY KEY", t.s.QuoteIdent(dataTableName))
	for _, c := range columns {
		nullability := "NULL"
		if !c.Nullable {
			nullability = "NOT NULL"
		}
		fmt.Fprintf(&b, ", %s %s %s", t.s.QuoteIdent(c.Name), sqlTypeName(c.Type), nullability)
	}
	b.WriteString(")")
	_, err := t.Execute(ctx, b.String())
	return err
}

// InsertVersionRow inserts one row's non-PK values into a version's data
// table, keyed by naviRowid (the rowid the VRR assigned).
func (t *Tx) InsertVersionRow(ctx context.Context, dataTableName string, naviRowid int64, values map[types.ColumnName]types.SqlValue) error {
	cols := []string{"_navi_rowid"}
	placeholders := []string{"?"}
	args := []interface{}{naviRowid}
	for name, v := range values {
		cols = append(cols, t.s.QuoteIdent(name))
		placeholders = append(placeholders, "?")
		args = append(args, sqlValueToDriver(v))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.s.QuoteIdent(dataTableName), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	_, err := t.Execute(ctx, query, args...)
	return err
}

// SelectVersionRows fetches the requested non-PK columns for the given
// naviRowids from a version's data table.
func (t *Tx) SelectVersionRows(ctx context.Context, dataTableName string, columns []types.ColumnName, naviRowids []int64) (*Rows, error) {
	if len(naviRowids) == 0 {
		return &Rows{Columns: append([]string{"_navi_rowid"}, columns...)}, nil
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = t.s.QuoteIdent(c)
	}
	selectList := "_navi_rowid"
	if len(quoted) > 0 {
		selectList += ", " + strings.Join(quoted, ", ")
	}
	placeholders := make([]string, len(naviRowids))
	args := make([]interface{}, len(naviRowids))
	for i, id := range naviRowids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE _navi_rowid IN (%s)",
		selectList, t.s.QuoteIdent(dataTableName), strings.Join(placeholders, ", "))
	return t.Query(ctx, query, args...)
}

// DropDataTable drops one version's data table (§3 "DROP TABLE is optional
// and left to substrate cascade").
func (t *Tx) DropDataTable(ctx context.Context, dataTableName string) error {
	_, err := t.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t.s.QuoteIdent(dataTableName)))
	return err
}

// DropNaviTable drops a table's VRR table.
func (t *Tx) DropNaviTable(ctx context.Context, naviTableName string) error {
	_, err := t.Execute(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", t.s.QuoteIdent(naviTableName)))
	return err
}

// DeleteTableMetadata removes tableName's rows from the system catalog.
func (t *Tx) DeleteTableMetadata(ctx context.Context, tableName string) error {
	if _, err := t.Execute(ctx, `DELETE FROM _version_metadata WHERE table_name = ?`, tableName); err != nil {
		return err
	}
	_, err := t.Execute(ctx, `DELETE FROM _vtable_metadata WHERE table_name = ?`, tableName)
	return err
}

func sqlValueToDriver(v types.SqlValue) interface{} {
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
