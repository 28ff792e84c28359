// Package adaptertest provides an in-memory adapter.Connection for tests.
package adaptertest

import (
	"context"
	"iter"
	"sync"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

var _ adapter.Connection = (*Conn)(nil)

// Conn is a fake catalog. Names lists objects per category in catalog order
// and Defs holds definition text keyed by category and "schema.name"; a name
// without an entry in Defs has no stored definition.
type Conn struct {
	Names map[catalog.Category][]catalog.QualifiedName
	Defs  map[catalog.Category]map[string]string

	// ListErr makes a category's listing yield every name and then fail.
	ListErr map[catalog.Category]error
	// FetchErr makes fetching a "schema.name" of a category fail.
	FetchErr map[catalog.Category]map[string]error
	// OnFetch, if set, runs before every definition lookup.
	OnFetch func(cat catalog.Category, name catalog.QualifiedName)

	mu      sync.Mutex
	fetches map[catalog.Category]map[string]int
	closed  bool
}

// New returns an empty fake catalog.
func New() *Conn {
	return &Conn{
		Names:    map[catalog.Category][]catalog.QualifiedName{},
		Defs:     map[catalog.Category]map[string]string{},
		ListErr:  map[catalog.Category]error{},
		FetchErr: map[catalog.Category]map[string]error{},
	}
}

// Add registers an object. An empty def lists the object without stored text.
func (c *Conn) Add(cat catalog.Category, schema, name, def string) *Conn {
	qn := catalog.QualifiedName{Schema: schema, Name: name}
	c.Names[cat] = append(c.Names[cat], qn)
	if def != "" {
		if c.Defs[cat] == nil {
			c.Defs[cat] = map[string]string{}
		}
		c.Defs[cat][qn.String()] = def
	}
	return c
}

// FailFetch makes fetching schema.name of cat return err.
func (c *Conn) FailFetch(cat catalog.Category, schema, name string, err error) *Conn {
	if c.FetchErr[cat] == nil {
		c.FetchErr[cat] = map[string]error{}
	}
	c.FetchErr[cat][schema+"."+name] = err
	return c
}

// Fetches returns how often the definition of name in cat was requested.
func (c *Conn) Fetches(cat catalog.Category, name catalog.QualifiedName) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches[cat][name.String()]
}

// TotalFetches returns the number of definition lookups across categories.
func (c *Conn) TotalFetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.fetches {
		for _, v := range m {
			n += v
		}
	}
	return n
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) list(cat catalog.Category) iter.Seq2[catalog.QualifiedName, error] {
	names := append([]catalog.QualifiedName(nil), c.Names[cat]...)
	listErr := c.ListErr[cat]
	return func(yield func(catalog.QualifiedName, error) bool) {
		for _, n := range names {
			if !yield(n, nil) {
				return
			}
		}
		if listErr != nil {
			yield(catalog.QualifiedName{}, listErr)
		}
	}
}

func (c *Conn) definition(ctx context.Context, cat catalog.Category, name catalog.QualifiedName) (string, error) {
	c.mu.Lock()
	if c.fetches == nil {
		c.fetches = map[catalog.Category]map[string]int{}
	}
	if c.fetches[cat] == nil {
		c.fetches[cat] = map[string]int{}
	}
	c.fetches[cat][name.String()]++
	c.mu.Unlock()

	if c.OnFetch != nil {
		c.OnFetch(cat, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := c.FetchErr[cat][name.String()]; err != nil {
		return "", err
	}
	def, ok := c.Defs[cat][name.String()]
	if !ok {
		return "", adapter.ErrNoDefinition
	}
	return def, nil
}

func (c *Conn) Procedures(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.list(catalog.StoredProcedure)
}

func (c *Conn) Functions(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.list(catalog.Function)
}

func (c *Conn) Triggers(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.list(catalog.Trigger)
}

func (c *Conn) Views(context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return c.list(catalog.View)
}

func (c *Conn) ProcedureDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, catalog.StoredProcedure, name)
}

func (c *Conn) FunctionDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, catalog.Function, name)
}

func (c *Conn) TriggerDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, catalog.Trigger, name)
}

func (c *Conn) ViewDefinition(ctx context.Context, name catalog.QualifiedName) (string, error) {
	return c.definition(ctx, catalog.View, name)
}

func (c *Conn) Ping(ctx context.Context) error { return ctx.Err() }

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) DatabaseName() string { return "fake" }
func (c *Conn) AdapterName() string  { return "fake" }
