// Package db provides SQLite storage for vecdb tables.
//
// Every table is stored as a regular SQLite table holding the row values and
// one sqlite-vec vec0 virtual table per vector column, linked by rowid. The
// table schema is kept as JSON in a catalog table.
package db

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/constantino-dev/vecdb/pkg/types"
)

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table not found")
	ErrInvalidName   = errors.New("invalid name")
)

// rowIDColumn links the data table with its vec0 tables
const rowIDColumn = "_rowid"

// DistanceColumn is the key under which search distances are reported
const DistanceColumn = "_distance"

// tableNamePattern keeps table names safe for use inside derived identifiers
var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the catalog
func New(path string) (*DB, error) {
	// Register sqlite-vec extension
	sqlite_vec.Auto()

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the catalog
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vecdb_tables (
		name TEXT PRIMARY KEY,
		schema TEXT NOT NULL, -- JSON types.Schema
		created_at TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ValidateTableName checks that name can be used as a table name
func ValidateTableName(name string) error {
	if len(name) > 128 || !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: table %q must start with a letter and contain only letters, digits and underscores", ErrInvalidName, name)
	}
	return nil
}

func validateColumns(s types.Schema) error {
	for _, f := range s.Fields {
		if f.Name == rowIDColumn || f.Name == DistanceColumn {
			return fmt.Errorf("%w: column name %q is reserved", ErrInvalidName, f.Name)
		}
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func dataTable(name string) string {
	return quoteIdent("tbl_" + name)
}

// vecTable names the vec0 table of the vector field at position i
func vecTable(name string, i int) string {
	return quoteIdent(fmt.Sprintf("vec_%s_%d", name, i))
}

func sqlType(f types.Field) string {
	switch f.Type {
	case types.Utf8:
		return "TEXT"
	case types.Int64, types.Bool:
		return "INTEGER"
	case types.Float64:
		return "REAL"
	default:
		return "BLOB" // vectors, float32 little-endian
	}
}

// CreateTable stores the schema and creates the backing tables. With
// overwrite set, an existing table of the same name is dropped first.
func (db *DB) CreateTable(ctx context.Context, name string, s types.Schema, overwrite bool) error {
	return db.CreateTableWithRows(ctx, name, s, overwrite, nil)
}

// CreateTableWithRows creates a table and writes its initial rows in one
// transaction. If anything fails, including the insert, the catalog is left
// as it was and an overwritten table keeps its old contents.
func (db *DB) CreateTableWithRows(ctx context.Context, name string, s types.Schema, overwrite bool, rows []types.Row) error {
	if err := ValidateTableName(name); err != nil {
		return err
	}
	if err := validateColumns(s); err != nil {
		return err
	}
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, err := getTable(ctx, tx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrTableExists, name)
		}
		if err := dropTable(ctx, tx, name, existing.Schema); err != nil {
			return err
		}
	}

	cols := []string{quoteIdent(rowIDColumn) + " INTEGER PRIMARY KEY"}
	for _, f := range s.Fields {
		col := quoteIdent(f.Name) + " " + sqlType(f)
		if !f.Nullable {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", dataTable(name), strings.Join(cols, ", "))}
	for i, f := range s.Fields {
		if f.IsVector() {
			stmts = append(stmts, fmt.Sprintf("CREATE VIRTUAL TABLE %s USING vec0(embedding float[%d])", vecTable(name, i), f.Dims))
		}
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO vecdb_tables (name, schema, created_at) VALUES (?, ?, ?)`,
		name, string(schemaJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to register table %s: %w", name, err)
	}

	if err := insertRows(ctx, tx, name, s, rows); err != nil {
		return err
	}

	return tx.Commit()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTable(ctx context.Context, q querier, name string) (*types.TableInfo, error) {
	var info types.TableInfo
	var schemaJSON, createdStr string

	err := q.QueryRowContext(ctx, `SELECT name, schema, created_at FROM vecdb_tables WHERE name = ?`, name).
		Scan(&info.Name, &schemaJSON, &createdStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(schemaJSON), &info.Schema); err != nil {
		return nil, fmt.Errorf("corrupt schema for table %s: %w", name, err)
	}
	info.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return &info, nil
}

// GetTable returns the stored description of a table, or nil if absent
func (db *DB) GetTable(ctx context.Context, name string) (*types.TableInfo, error) {
	return getTable(ctx, db.conn, name)
}

// ListTables returns all tables ordered by name
func (db *DB) ListTables(ctx context.Context) ([]types.TableInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name, schema, created_at FROM vecdb_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []types.TableInfo
	for rows.Next() {
		var info types.TableInfo
		var schemaJSON, createdStr string
		if err := rows.Scan(&info.Name, &schemaJSON, &createdStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(schemaJSON), &info.Schema); err != nil {
			return nil, fmt.Errorf("corrupt schema for table %s: %w", info.Name, err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		tables = append(tables, info)
	}
	return tables, rows.Err()
}

// DropTable removes a table and its vector tables
func (db *DB) DropTable(ctx context.Context, name string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	info, err := getTable(ctx, tx, name)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err := dropTable(ctx, tx, name, info.Schema); err != nil {
		return err
	}
	return tx.Commit()
}

func dropTable(ctx context.Context, tx *sql.Tx, name string, s types.Schema) error {
	stmts := []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", dataTable(name))}
	for i, f := range s.Fields {
		if f.IsVector() {
			stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s", vecTable(name, i)))
		}
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", name, err)
		}
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM vecdb_tables WHERE name = ?`, name)
	return err
}

// Insert writes rows in a single transaction; either all rows are stored or
// none. Rows must already be normalized against the schema.
func (db *DB) Insert(ctx context.Context, name string, s types.Schema, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertRows(ctx, tx, name, s, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, name string, s types.Schema, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, len(s.Fields))
	marks := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = quoteIdent(f.Name)
		marks[i] = "?"
	}
	insertRow := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", dataTable(name), strings.Join(cols, ", "), strings.Join(marks, ", "))

	for n, row := range rows {
		args := make([]any, len(s.Fields))
		for i, f := range s.Fields {
			v, err := toSQLValue(f, row[f.Name])
			if err != nil {
				return fmt.Errorf("row %d: %w", n, err)
			}
			args[i] = v
		}

		res, err := tx.ExecContext(ctx, insertRow, args...)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", n, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for i, f := range s.Fields {
			blob, ok := args[i].([]byte)
			if !f.IsVector() || !ok {
				continue
			}
			// sqlite-vec virtual tables index by rowid
			_, err = tx.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s (rowid, embedding) VALUES (?, ?)", vecTable(name, i)),
				rowID, blob)
			if err != nil {
				return fmt.Errorf("failed to index row %d: %w", n, err)
			}
		}
	}
	return nil
}

func toSQLValue(f types.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if f.IsVector() {
		vec, ok := v.([]float32)
		if !ok {
			return nil, fmt.Errorf("column %s: expected []float32, got %T", f.Name, v)
		}
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			return nil, fmt.Errorf("column %s: failed to serialize vector: %w", f.Name, err)
		}
		return blob, nil
	}
	if f.Type == types.Bool {
		if b, _ := v.(bool); b {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return v, nil
}

// CountRows returns the number of rows in a table
func (db *DB) CountRows(ctx context.Context, name string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", dataTable(name))).Scan(&count)
	return count, err
}

// Scan returns up to limit rows in insertion order; limit <= 0 means all rows
func (db *DB) Scan(ctx context.Context, name string, s types.Schema, limit int) ([]types.Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", selectList(s, "d"), dataTable(name), quoteIdent(rowIDColumn))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		row, _, err := scanRow(rows, s, false)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// VectorSearch performs a k-nearest-neighbour search on a vector column
func (db *DB) VectorSearch(ctx context.Context, name string, s types.Schema, column string, query []float32, k int) ([]types.Result, error) {
	idx := -1
	for i, f := range s.Fields {
		if f.Name == column && f.IsVector() {
			idx = i
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s is not a vector column of %s", column, name)
	}
	if len(query) != s.Fields[idx].Dims {
		return nil, fmt.Errorf("query has %d dims, column %s has %d", len(query), column, s.Fields[idx].Dims)
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query: %w", err)
	}

	// sqlite-vec requires k=? constraint for KNN queries
	stmt := fmt.Sprintf(`
		SELECT %s, v.distance
		FROM (SELECT rowid, distance FROM %s WHERE embedding MATCH ? AND k = ?) v
		JOIN %s d ON d.%s = v.rowid
		ORDER BY v.distance
	`, selectList(s, "d"), vecTable(name, idx), dataTable(name), quoteIdent(rowIDColumn))

	rows, err := db.conn.QueryContext(ctx, stmt, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.Result
	for rows.Next() {
		row, dist, err := scanRow(rows, s, true)
		if err != nil {
			return nil, err
		}
		results = append(results, types.Result{Row: row, Distance: dist})
	}
	return results, rows.Err()
}

func selectList(s types.Schema, alias string) string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = alias + "." + quoteIdent(f.Name)
	}
	return strings.Join(cols, ", ")
}

func scanRow(rows *sql.Rows, s types.Schema, withDistance bool) (types.Row, float64, error) {
	dest := make([]any, len(s.Fields), len(s.Fields)+1)
	for i, f := range s.Fields {
		switch f.Type {
		case types.Utf8:
			dest[i] = new(sql.NullString)
		case types.Int64:
			dest[i] = new(sql.NullInt64)
		case types.Float64:
			dest[i] = new(sql.NullFloat64)
		case types.Bool:
			dest[i] = new(sql.NullBool)
		default:
			dest[i] = new([]byte)
		}
	}
	var dist float64
	if withDistance {
		dest = append(dest, &dist)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, 0, err
	}

	row := make(types.Row, len(s.Fields))
	for i, f := range s.Fields {
		switch v := dest[i].(type) {
		case *sql.NullString:
			row[f.Name] = nullable(v.Valid, v.String)
		case *sql.NullInt64:
			row[f.Name] = nullable(v.Valid, v.Int64)
		case *sql.NullFloat64:
			row[f.Name] = nullable(v.Valid, v.Float64)
		case *sql.NullBool:
			row[f.Name] = nullable(v.Valid, v.Bool)
		case *[]byte:
			if *v == nil {
				row[f.Name] = nil
			} else {
				row[f.Name] = bytesToFloat32(*v)
			}
		}
	}
	return row, dist, nil
}

func nullable[T any](valid bool, v T) any {
	if !valid {
		return nil
	}
	return v
}

// bytesToFloat32 decodes the little-endian layout written by
// sqlite_vec.SerializeFloat32
func bytesToFloat32(b []byte) []float32 {
	floats := make([]float32, len(b)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return floats
}
