// Package store persists match history, calibrations, fixtures and value bets in sqlite or postgres
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/richard-senior/valuebet/internal/logger"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by primary key matches nothing
var ErrNotFound = errors.New("record not found")

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Persistable is a struct mapped onto one table through its field tags:
//
//	column:"name"   column name (default: lower-cased field name)
//	dbtype:"TEXT"   column type, fields without one are not persisted
//	primary:"true"  part of the primary key
//	index:"true"    gets its own index
type Persistable interface {
	TableName() string
	PrimaryKey() map[string]any
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a handle on the database. It is safe for concurrent use.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to the database, checks the connection and creates any missing tables
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// a single connection keeps :memory: databases alive and avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: sqlDB, driver: driver}
	if err := d.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Info("Database initialized successfully", driver)
	return d, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping is used by the health check
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates all tables and indexes
func (d *DB) Migrate(ctx context.Context) error {
	for _, obj := range []Persistable{
		&matchRecord{},
		&teamRecord{},
		&fixtureRecord{},
		&leagueStrengthRecord{},
		&teamStrengthRecord{},
		&valueBetRecord{},
		&oddsRecord{},
	} {
		if err := d.CreateTable(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

// CreateTable creates a table for the given persistable object using struct tags
func (d *DB) CreateTable(ctx context.Context, obj Persistable) error {
	tableName := obj.TableName()
	createSQL := generateCreateTableSQL(obj, tableName)
	logger.Debug("Creating table with SQL", createSQL)

	if _, err := d.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	for _, query := range generateIndexSQL(obj, tableName) {
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}
	return nil
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj any, tableName string) string {
	var columns, primaryKeys []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		columns = append(columns, fmt.Sprintf("%s %s", f.column, f.dbType))
		if f.primary {
			primaryKeys = append(primaryKeys, f.column)
		}
	}
	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj any, tableName string) []string {
	var out []string
	for _, f := range persistedFields(reflect.TypeOf(obj)) {
		if !f.index {
			continue
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", tableName, f.column, tableName, f.column))
	}
	return out
}

type field struct {
	pos     int
	column  string
	dbType  string
	primary bool
	index   bool
}

// persistedFields lists the struct fields that carry a dbtype tag, in declaration order
func persistedFields(t reflect.Type) []field {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		dbType := sf.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}
		column := sf.Tag.Get("column")
		if column == "" {
			column = strings.ToLower(sf.Name)
		}
		out = append(out, field{
			pos:     i,
			column:  column,
			dbType:  dbType,
			primary: sf.Tag.Get("primary") == "true",
			index:   sf.Tag.Get("index") == "true",
		})
	}
	return out
}

// Save persists the object, inserting or updating depending on whether its key exists
func (d *DB) Save(ctx context.Context, obj Persistable) error {
	return save(ctx, d.db, d.driver, obj)
}

// BulkSave saves multiple objects in one transaction
func (d *DB) BulkSave(ctx context.Context, objects []Persistable) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, obj := range objects {
		if err := save(ctx, tx, d.driver, obj); err != nil {
			return fmt.Errorf("failed to save object: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func save(ctx context.Context, ex execer, driver string, obj Persistable) error {
	exists, err := exists(ctx, ex, driver, obj)
	if err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if exists {
		return update(ctx, ex, driver, obj)
	}
	return insert(ctx, ex, driver, obj)
}

// insert adds a new record to the database
func insert(ctx context.Context, ex execer, driver string, obj Persistable) error {
	tableName := obj.TableName()
	v := reflect.Indirect(reflect.ValueOf(obj))

	var columns, placeholders []string
	var values []any
	for _, f := range persistedFields(v.Type()) {
		columns = append(columns, f.column)
		placeholders = append(placeholders, "?")
		values = append(values, v.Field(f.pos).Interface())
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	logger.Debug("Insert SQL", query)

	if _, err := ex.ExecContext(ctx, rebind(driver, query), values...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tableName, err)
	}
	return nil
}

// update modifies an existing record in the database
func update(ctx context.Context, ex execer, driver string, obj Persistable) error {
	tableName := obj.TableName()
	v := reflect.Indirect(reflect.ValueOf(obj))

	var setPairs []string
	var values []any
	for _, f := range persistedFields(v.Type()) {
		if f.primary {
			continue
		}
		setPairs = append(setPairs, fmt.Sprintf("%s = ?", f.column))
		values = append(values, v.Field(f.pos).Interface())
	}
	if len(setPairs) == 0 {
		return nil
	}

	whereClause, whereValues := buildWhereClause(obj.PrimaryKey())
	values = append(values, whereValues...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", tableName, strings.Join(setPairs, ", "), whereClause)
	logger.Debug("Update SQL", query)

	if _, err := ex.ExecContext(ctx, rebind(driver, query), values...); err != nil {
		return fmt.Errorf("failed to update %s: %w", tableName, err)
	}
	return nil
}

// Exists checks if the object's key is present in the database
func (d *DB) Exists(ctx context.Context, obj Persistable) (bool, error) {
	return exists(ctx, d.db, d.driver, obj)
}

func exists(ctx context.Context, ex execer, driver string, obj Persistable) (bool, error) {
	tableName := obj.TableName()
	whereClause, values := buildWhereClause(obj.PrimaryKey())
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)

	var count int
	if err := ex.QueryRowContext(ctx, rebind(driver, query), values...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}
	return count > 0, nil
}

// Delete removes the object from the database
func (d *DB) Delete(ctx context.Context, obj Persistable) error {
	tableName := obj.TableName()
	whereClause, values := buildWhereClause(obj.PrimaryKey())
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, whereClause)

	if _, err := d.db.ExecContext(ctx, rebind(d.driver, query), values...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// FindByPrimaryKey loads the row with obj's primary key into obj
func (d *DB) FindByPrimaryKey(ctx context.Context, obj Persistable) error {
	tableName := obj.TableName()
	columns, destinations := selectData(obj)
	whereClause, values := buildWhereClause(obj.PrimaryKey())

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), tableName, whereClause)
	logger.Debug("FindByPrimaryKey SQL", query)

	err := d.db.QueryRowContext(ctx, rebind(d.driver, query), values...).Scan(destinations...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", tableName, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	return nil
}

// findWhere runs a SELECT with a custom WHERE (and optional ORDER BY) clause, returning typed rows
func findWhere[T any, P interface {
	*T
	Persistable
}](ctx context.Context, d *DB, whereClause string, args ...any) ([]T, error) {
	var zero T
	tableName := P(&zero).TableName()
	columns, _ := selectData(&zero)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), tableName)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	logger.Debug("FindWhere SQL", query)

	rows, err := d.db.QueryContext(ctx, rebind(d.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var row T
		_, destinations := selectData(&row)
		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}
	return results, nil
}

// selectData extracts column names and scan destinations for SELECT
func selectData(obj any) ([]string, []any) {
	v := reflect.Indirect(reflect.ValueOf(obj))
	var columns []string
	var destinations []any
	for _, f := range persistedFields(v.Type()) {
		columns = append(columns, f.column)
		destinations = append(destinations, v.Field(f.pos).Addr().Interface())
	}
	return columns, destinations
}

// buildWhereClause builds a WHERE clause from a primary key map, columns in sorted order
func buildWhereClause(primaryKey map[string]any) (string, []any) {
	columns := make([]string, 0, len(primaryKey))
	for c := range primaryKey {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	conditions := make([]string, 0, len(columns))
	values := make([]any, 0, len(columns))
	for _, c := range columns {
		conditions = append(conditions, fmt.Sprintf("%s = ?", c))
		values = append(values, primaryKey[c])
	}
	return strings.Join(conditions, " AND "), values
}

// rebind rewrites ? placeholders as $1, $2 ... for postgres
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
