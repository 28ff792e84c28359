//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

func init() {
	adapter.Register(&duckdbAdapter{})
}

type duckdbAdapter struct{}

func (a *duckdbAdapter) Name() string     { return "duckdb" }
func (a *duckdbAdapter) DefaultPort() int { return 0 }

func (a *duckdbAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	dsn = strings.TrimPrefix(dsn, "duckdb://")
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	name := dsn
	if dsn != ":memory:" {
		name = filepath.Base(dsn)
	}
	return &duckdbConn{db: db, dbName: name}, nil
}

// duckdbConn implements adapter.Connection. DuckDB has no stored procedures
// or triggers; macros are reported as functions.
type duckdbConn struct {
	db     *sql.DB
	dbName string
}

func (c *duckdbConn) DatabaseName() string { return c.dbName }
func (c *duckdbConn) AdapterName() string  { return "duckdb" }

func (c *duckdbConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *duckdbConn) Close() error {
	return c.db.Close()
}

const (
	macroNamesSQL = `SELECT DISTINCT schema_name, function_name
		FROM duckdb_functions()
		WHERE function_type IN ('macro', 'table_macro') AND NOT internal
		ORDER BY schema_name, function_name`

	macroDefinitionSQL = `SELECT string_agg(macro_definition, chr(10))
		FROM duckdb_functions()
		WHERE function_type IN ('macro', 'table_macro') AND NOT internal
		AND schema_name = ? AND function_name = ?`

	viewNamesSQL = `SELECT schema_name, view_name
		FROM duckdb_views()
		WHERE NOT internal AND NOT temporary
		ORDER BY schema_name, view_name`

	viewDefinitionSQL = `SELECT sql FROM duckdb_views()
		WHERE NOT internal AND schema_name = ? AND view_name = ?`
)

func (c *duckdbConn) Procedures(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.NoNames()
}

func (c *duckdbConn) Functions(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, macroNamesSQL)
}

func (c *duckdbConn) Triggers(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.NoNames()
}

func (c *duckdbConn) Views(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, viewNamesSQL)
}

func (c *duckdbConn) ProcedureDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", adapter.ErrNoDefinition
}

func (c *duckdbConn) FunctionDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, macroDefinitionSQL, name)
}

func (c *duckdbConn) TriggerDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", adapter.ErrNoDefinition
}

func (c *duckdbConn) ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, viewDefinitionSQL, name)
}

func (c *duckdbConn) definition(ctx context.Context, query string, name catalog.QualifiedName) (string, error) {
	def, err := adapter.QueryDefinition(ctx, c.db, query, name.Schema, name.Name)
	if err != nil && !errors.Is(err, adapter.ErrNoDefinition) {
		return "", fmt.Errorf("duckdb: definition of %s: %w", name, err)
	}
	return def, err
}
