package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/sadopc/sqlextract/internal/catalog"
)

var (
	ErrUnknownAdapter = errors.New("unknown adapter")
	// ErrNoDefinition is returned by the definition methods when the name
	// does not resolve to a module with stored source text.
	ErrNoDefinition = errors.New("object has no stored definition")
)

// Adapter creates catalog connections for one database dialect.
type Adapter interface {
	Connect(ctx context.Context, dsn string) (Connection, error)
	Name() string
	DefaultPort() int
}

// Connection is an open, reusable connection to a database catalog.
//
// Implementations are backed by a connection pool, so listings and
// definition lookups may run from several goroutines at once; each
// concurrent caller borrows its own physical connection.
type Connection interface {
	// Listings. Each returned sequence re-runs its catalog query when ranged
	// over and yields a final non-nil error if the query or a scan fails.
	Procedures(ctx context.Context) iter.Seq2[catalog.QualifiedName, error]
	Functions(ctx context.Context) iter.Seq2[catalog.QualifiedName, error]
	Triggers(ctx context.Context) iter.Seq2[catalog.QualifiedName, error]
	Views(ctx context.Context) iter.Seq2[catalog.QualifiedName, error]

	// Definitions return ErrNoDefinition when there is no stored text.
	ProcedureDefinition(ctx context.Context, name catalog.QualifiedName) (string, error)
	FunctionDefinition(ctx context.Context, name catalog.QualifiedName) (string, error)
	TriggerDefinition(ctx context.Context, name catalog.QualifiedName) (string, error)
	ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Info
	DatabaseName() string
	AdapterName() string
}

// Registry holds registered adapters by name.
var Registry = map[string]Adapter{}

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	Registry[a.Name()] = a
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	a, ok := Registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownAdapter, name, strings.Join(Names(), ", "))
	}
	return a, nil
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QueryNames runs a (schema, name) listing query on db lazily. The query is
// executed when the sequence is ranged over and the rows are released when
// the consumer stops early.
func QueryNames(ctx context.Context, db *sql.DB, query string, args ...any) iter.Seq2[catalog.QualifiedName, error] {
	return func(yield func(catalog.QualifiedName, error) bool) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(catalog.QualifiedName{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var schema, name sql.NullString
			if err := rows.Scan(&schema, &name); err != nil {
				yield(catalog.QualifiedName{}, fmt.Errorf("scan name: %w", err))
				return
			}
			qn, err := catalog.NewQualifiedName(schema.String, name.String)
			if err != nil {
				// Objects without a resolvable schema cannot be addressed
				// by qualified name; skip them.
				continue
			}
			if !yield(qn, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.QualifiedName{}, err)
		}
	}
}

// QueryDefinition runs a single-value definition query. No row or a NULL
// value maps to ErrNoDefinition.
func QueryDefinition(ctx context.Context, db *sql.DB, query string, args ...any) (string, error) {
	var def sql.NullString
	err := db.QueryRowContext(ctx, query, args...).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoDefinition
	}
	if err != nil {
		return "", err
	}
	if !def.Valid || def.String == "" {
		return "", ErrNoDefinition
	}
	return def.String, nil
}

// NoNames is the listing of a category the dialect does not have.
func NoNames() iter.Seq2[catalog.QualifiedName, error] {
	return func(func(catalog.QualifiedName, error) bool) {}
}
