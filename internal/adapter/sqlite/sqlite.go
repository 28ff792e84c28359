package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"

	_ "modernc.org/sqlite"
)

// mainSchema is the schema name SQLite gives the primary database file.
const mainSchema = "main"

func init() {
	adapter.Register(&sqliteAdapter{})
}

// sqliteAdapter implements adapter.Adapter for SQLite databases.
type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string     { return "sqlite" }
func (a *sqliteAdapter) DefaultPort() int { return 0 }

func (a *sqliteAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	dsn = normalizeDSN(dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	if dsn == ":memory:" {
		// Every pooled connection would see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	dbName := dsn
	if dsn != ":memory:" {
		dbName = filepath.Base(dsn)
	}

	return &sqliteConn{
		db:     db,
		dbName: dbName,
	}, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") {
		return strings.TrimPrefix(dsn, "file:")
	}
	return dsn
}

// sqliteConn implements adapter.Connection. SQLite has no stored procedures
// or functions, only triggers and views keep their source in sqlite_master.
type sqliteConn struct {
	db     *sql.DB
	dbName string
}

func (c *sqliteConn) AdapterName() string  { return "sqlite" }
func (c *sqliteConn) DatabaseName() string { return c.dbName }

func (c *sqliteConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqliteConn) Close() error {
	return c.db.Close()
}

func (c *sqliteConn) Procedures(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.NoNames()
}

func (c *sqliteConn) Functions(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.NoNames()
}

// Triggers lists triggers in sqlite_master order, which is creation order.
func (c *sqliteConn) Triggers(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.masterNames(ctx, "trigger")
}

func (c *sqliteConn) Views(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.masterNames(ctx, "view")
}

func (c *sqliteConn) masterNames(ctx context.Context, objType string) iter.Seq2[catalog.QualifiedName, error] {
	return adapter.QueryNames(ctx, c.db,
		`SELECT ?, name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY rowid`,
		mainSchema, objType)
}

func (c *sqliteConn) ProcedureDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", adapter.ErrNoDefinition
}

func (c *sqliteConn) FunctionDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", adapter.ErrNoDefinition
}

func (c *sqliteConn) TriggerDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.masterDefinition(ctx, "trigger", name)
}

func (c *sqliteConn) ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.masterDefinition(ctx, "view", name)
}

func (c *sqliteConn) masterDefinition(ctx context.Context, objType string, name catalog.QualifiedName) (string, error) {
	if name.Schema != mainSchema {
		return "", adapter.ErrNoDefinition
	}
	def, err := adapter.QueryDefinition(ctx, c.db,
		`SELECT sql FROM sqlite_master WHERE type = ? AND name = ?`, objType, name.Name)
	if err != nil && !errors.Is(err, adapter.ErrNoDefinition) {
		return "", fmt.Errorf("sqlite %s definition: %w", objType, err)
	}
	return def, err
}
