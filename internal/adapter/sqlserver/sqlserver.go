// Package sqlserver reads programmable objects from the Microsoft SQL Server
// catalog views (sys.objects, sys.triggers, sys.views, sys.sql_modules).
package sqlserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

func init() {
	adapter.Register(&sqlserverAdapter{})
}

type sqlserverAdapter struct{}

func (a *sqlserverAdapter) Name() string     { return "sqlserver" }
func (a *sqlserverAdapter) DefaultPort() int { return 1433 }

func (a *sqlserverAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	dsn = normalizeDSN(dsn)

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlserver: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlserver: ping: %w", err)
	}

	return &mssqlConn{
		db:     db,
		dbName: databaseName(dsn),
	}, nil
}

// normalizeDSN accepts sqlserver:// and mssql:// URLs as well as ADO style
// connection strings ("Server=host;Database=db;User Id=sa;Password=...").
func normalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if len(dsn) >= len("mssql://") && strings.EqualFold(dsn[:len("mssql://")], "mssql://") {
		return "sqlserver://" + dsn[len("mssql://"):]
	}
	return dsn
}

// databaseName returns the initial catalog named in dsn, or "" when the
// connection falls back to the login's default database.
func databaseName(dsn string) string {
	cfg, err := msdsn.Parse(dsn)
	if err != nil {
		return ""
	}
	return cfg.Database
}

// Object type codes from sys.objects.type.
var (
	procedureTypes = []string{"P", "PC"}
	functionTypes  = []string{"AF", "FN", "FS", "FT", "IF", "TF"}
	triggerTypes   = []string{"TR", "TA"}
	viewTypes      = []string{"V"}
)

func typeList(types []string) string {
	quoted := make([]string, len(types))
	for i, t := range types {
		quoted[i] = "'" + t + "'"
	}
	return strings.Join(quoted, ",")
}

// Listings keep the order the server returns; no ORDER BY is applied.
var (
	procedureNamesSQL = `SELECT SCHEMA_NAME(schema_id), name FROM sys.objects
		WHERE type IN (` + typeList(procedureTypes) + `)`

	functionNamesSQL = `SELECT SCHEMA_NAME(schema_id), name FROM sys.objects
		WHERE type IN (` + typeList(functionTypes) + `)`

	// Database-level DDL triggers (parent_class = 0) have no schema and
	// cannot be addressed by qualified name.
	triggerNamesSQL = `SELECT OBJECT_SCHEMA_NAME(object_id), name FROM sys.triggers
		WHERE parent_class = 1`

	viewNamesSQL = `SELECT OBJECT_SCHEMA_NAME(object_id), name FROM sys.views`
)

// definitionSQL reads the module text of a schema-qualified object of one of
// the given types. Encrypted and CLR modules have a NULL definition.
func definitionSQL(types []string) string {
	return `SELECT m.definition
		FROM sys.sql_modules m
		JOIN sys.objects o ON o.object_id = m.object_id
		WHERE o.object_id = OBJECT_ID(QUOTENAME(@p1) + N'.' + QUOTENAME(@p2))
		AND o.type IN (` + typeList(types) + `)`
}

// mssqlConn implements adapter.Connection on a pooled *sql.DB; concurrent
// categories use separate pooled sessions instead of MARS.
type mssqlConn struct {
	db     *sql.DB
	dbName string
}

func (c *mssqlConn) AdapterName() string  { return "sqlserver" }
func (c *mssqlConn) DatabaseName() string { return c.dbName }

func (c *mssqlConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *mssqlConn) Close() error {
	return c.db.Close()
}

func (c *mssqlConn) Procedures(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, procedureNamesSQL)
}

func (c *mssqlConn) Functions(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, functionNamesSQL)
}

func (c *mssqlConn) Triggers(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, triggerNamesSQL)
}

func (c *mssqlConn) Views(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db, viewNamesSQL)
}

func (c *mssqlConn) ProcedureDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, procedureTypes, name)
}

func (c *mssqlConn) FunctionDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, functionTypes, name)
}

func (c *mssqlConn) TriggerDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, triggerTypes, name)
}

func (c *mssqlConn) ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, viewTypes, name)
}

func (c *mssqlConn) definition(ctx context.Context, types []string, name catalog.QualifiedName) (string, error) {
	def, err := adapter.QueryDefinition(ctx, c.db, definitionSQL(types), name.Schema, name.Name)
	if err != nil && !errors.Is(err, adapter.ErrNoDefinition) {
		return "", fmt.Errorf("sqlserver: definition of %s: %w", name, err)
	}
	return def, err
}
