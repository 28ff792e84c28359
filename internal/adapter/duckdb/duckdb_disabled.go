//go:build !duckdb

package duckdb

import (
	"context"
	"errors"
	"iter"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

func init() {
	adapter.Register(&disabledAdapter{})
}

type disabledAdapter struct{}

func (d *disabledAdapter) Name() string     { return "duckdb" }
func (d *disabledAdapter) DefaultPort() int { return 0 }

func (d *disabledAdapter) Connect(_ context.Context, _ string) (adapter.Connection, error) {
	return nil, errDisabled
}

// disabledConnection is never instantiated but satisfies the interface at compile time.
var _ adapter.Connection = (*disabledConnection)(nil)

type disabledConnection struct{}

func failedListing() iter.Seq2[catalog.QualifiedName, error] {
	return func(yield func(catalog.QualifiedName, error) bool) {
		yield(catalog.QualifiedName{}, errDisabled)
	}
}

func (c *disabledConnection) Procedures(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return failedListing()
}
func (c *disabledConnection) Functions(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return failedListing()
}
func (c *disabledConnection) Triggers(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return failedListing()
}
func (c *disabledConnection) Views(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return failedListing()
}
func (c *disabledConnection) ProcedureDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", errDisabled
}
func (c *disabledConnection) FunctionDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", errDisabled
}
func (c *disabledConnection) TriggerDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", errDisabled
}
func (c *disabledConnection) ViewDefinition(context.Context, catalog.QualifiedName) (string, error) {
	return "", errDisabled
}
func (c *disabledConnection) Ping(_ context.Context) error { return errDisabled }
func (c *disabledConnection) Close() error                 { return errDisabled }
func (c *disabledConnection) DatabaseName() string         { return "" }
func (c *disabledConnection) AdapterName() string          { return "duckdb" }
