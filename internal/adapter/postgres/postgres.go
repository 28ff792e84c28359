package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

func init() {
	adapter.Register(&postgresAdapter{})
}

// postgresAdapter implements adapter.Adapter for PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string     { return "postgres" }
func (a *postgresAdapter) DefaultPort() int { return 5432 }

func (a *postgresAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &pgConn{
		pool:   pool,
		dbName: extractDBName(dsn),
	}, nil
}

// extractDBName parses the database name from the DSN.
func extractDBName(dsn string) string {
	if dsn == "" {
		return ""
	}
	// Try URL format first (postgres://... or postgresql://...)
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	// Fallback: keyword=value format (e.g. "host=localhost dbname=myapp")
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return ""
}

// userSchemas filters out the system catalogs.
const userSchemas = `n.nspname NOT IN ('pg_catalog', 'information_schema') AND n.nspname NOT LIKE 'pg_toast%' AND n.nspname NOT LIKE 'pg_temp_%'`

// Overloaded routines and same-named triggers on different tables share one
// qualified name, so listings group by name and definitions concatenate
// every matching object.
var (
	routineNamesSQL = `SELECT n.nspname, p.proname
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.prokind::text = $1 AND ` + userSchemas + `
		GROUP BY n.nspname, p.proname
		ORDER BY n.nspname, p.proname`

	routineDefinitionSQL = `SELECT string_agg(pg_get_functiondef(p.oid), E'\n' ORDER BY p.oid)
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE p.prokind::text = $1 AND n.nspname = $2 AND p.proname = $3`

	triggerNamesSQL = `SELECT n.nspname, t.tgname
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE NOT t.tgisinternal AND ` + userSchemas + `
		GROUP BY n.nspname, t.tgname
		ORDER BY n.nspname, t.tgname`

	triggerDefinitionSQL = `SELECT string_agg(pg_get_triggerdef(t.oid, true) || ';', E'\n' ORDER BY t.oid)
		FROM pg_trigger t
		JOIN pg_class c ON c.oid = t.tgrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE NOT t.tgisinternal AND n.nspname = $1 AND t.tgname = $2`

	viewNamesSQL = `SELECT schemaname, viewname
		FROM pg_views
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY schemaname, viewname`

	viewDefinitionSQL = `SELECT definition FROM pg_views WHERE schemaname = $1 AND viewname = $2`
)

// pgConn implements adapter.Connection for PostgreSQL.
type pgConn struct {
	pool   *pgxpool.Pool
	dbName string
}

func (c *pgConn) DatabaseName() string { return c.dbName }
func (c *pgConn) AdapterName() string  { return "postgres" }

func (c *pgConn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgConn) Close() error {
	c.pool.Close()
	return nil
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (c *pgConn) Procedures(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.names(ctx, routineNamesSQL, "p")
}

func (c *pgConn) Functions(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.names(ctx, routineNamesSQL, "f")
}

func (c *pgConn) Triggers(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.names(ctx, triggerNamesSQL)
}

func (c *pgConn) Views(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.names(ctx, viewNamesSQL)
}

func (c *pgConn) names(ctx context.Context, query string, args ...any) iter.Seq2[catalog.QualifiedName, error] {
	return func(yield func(catalog.QualifiedName, error) bool) {
		rows, err := c.pool.Query(ctx, query, args...)
		if err != nil {
			yield(catalog.QualifiedName{}, fmt.Errorf("postgres list: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var schema, name pgtype.Text
			if err := rows.Scan(&schema, &name); err != nil {
				yield(catalog.QualifiedName{}, fmt.Errorf("postgres list scan: %w", err))
				return
			}
			qn, err := catalog.NewQualifiedName(schema.String, name.String)
			if err != nil {
				continue
			}
			if !yield(qn, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.QualifiedName{}, fmt.Errorf("postgres list: %w", err))
		}
	}
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (c *pgConn) ProcedureDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, routineDefinitionSQL, "p", name.Schema, name.Name)
}

func (c *pgConn) FunctionDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, routineDefinitionSQL, "f", name.Schema, name.Name)
}

func (c *pgConn) TriggerDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, triggerDefinitionSQL, name.Schema, name.Name)
}

func (c *pgConn) ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, viewDefinitionSQL, name.Schema, name.Name)
}

func (c *pgConn) definition(ctx context.Context, query string, args ...any) (string, error) {
	var def pgtype.Text
	err := c.pool.QueryRow(ctx, query, args...).Scan(&def)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", adapter.ErrNoDefinition
	}
	if err != nil {
		return "", fmt.Errorf("postgres definition: %w", err)
	}
	if !def.Valid || def.String == "" {
		return "", adapter.ErrNoDefinition
	}
	return def.String, nil
}
