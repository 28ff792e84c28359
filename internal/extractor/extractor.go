// Package extractor wraps a catalog connection into one extractor per object
// category. An extractor lists the qualified names of its category and fetches
// single definitions, reporting every fetch as an Outcome instead of an error.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
)

var (
	ErrUnknownCategory  = errors.New("no extractor for category")
	ErrCategoryMismatch = errors.New("extractor reports a different category")
)

// Extractor lists and fetches the objects of one category.
type Extractor interface {
	Category() catalog.Category
	// ListNames returns the names in catalog order. Each range over the
	// sequence re-runs the catalog query.
	ListNames(ctx context.Context) iter.Seq2[catalog.QualifiedName, error]
	// FetchDefinition never returns an error directly; failures are
	// reported as a Failure outcome.
	FetchDefinition(ctx context.Context, name catalog.QualifiedName) Outcome
}

// OutcomeKind tags an Outcome.
type OutcomeKind int

const (
	Definition OutcomeKind = iota
	Empty
	Failure
)

func (k OutcomeKind) String() string {
	switch k {
	case Definition:
		return "definition"
	case Empty:
		return "empty"
	case Failure:
		return "failure"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of fetching one definition. Text is set only for
// Definition and Err only for Failure.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Defined returns a Definition outcome. Empty text yields an Empty outcome.
func Defined(text string) Outcome {
	if text == "" {
		return EmptyOutcome()
	}
	return Outcome{Kind: Definition, Text: text}
}

// EmptyOutcome returns the outcome for an object without stored text.
func EmptyOutcome() Outcome {
	return Outcome{Kind: Empty}
}

// Failed returns a Failure outcome wrapping err.
func Failed(err error) Outcome {
	return Outcome{Kind: Failure, Err: err}
}

// fromFetch folds a connection's (text, error) pair into an Outcome.
func fromFetch(text string, err error) Outcome {
	switch {
	case errors.Is(err, adapter.ErrNoDefinition):
		return EmptyOutcome()
	case err != nil:
		return Failed(err)
	}
	return Defined(text)
}

// constructors maps every category to its variant. The table is indexed by
// category so each one has exactly one entry; New checks the variant agrees.
var constructors = [...]func(adapter.Connection) Extractor{
	catalog.StoredProcedure: func(c adapter.Connection) Extractor { return &StoredProcedureExtractor{conn: c} },
	catalog.Function:        func(c adapter.Connection) Extractor { return &FunctionExtractor{conn: c} },
	catalog.Trigger:         func(c adapter.Connection) Extractor { return &TriggerExtractor{conn: c} },
	catalog.View:            func(c adapter.Connection) Extractor { return &ViewExtractor{conn: c} },
}

// New returns the extractor for cat. The connection is borrowed, not owned.
func New(cat catalog.Category, conn adapter.Connection) (Extractor, error) {
	if !cat.Valid() || int(cat) >= len(constructors) || constructors[cat] == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCategory, cat)
	}
	ext := constructors[cat](conn)
	if got := ext.Category(); got != cat {
		return nil, fmt.Errorf("%w: %v built for %v", ErrCategoryMismatch, got, cat)
	}
	return ext, nil
}

// For returns the extractors for every category in set, in declaration order.
func For(set catalog.Set, conn adapter.Connection) ([]Extractor, error) {
	cats := set.Categories()
	out := make([]Extractor, 0, len(cats))
	for _, cat := range cats {
		ext, err := New(cat, conn)
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

// StoredProcedureExtractor extracts stored procedures.
type StoredProcedureExtractor struct{ conn adapter.Connection }

func (e *StoredProcedureExtractor) Category() catalog.Category { return catalog.StoredProcedure }

func (e *StoredProcedureExtractor) ListNames(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return e.conn.Procedures(ctx)
}

func (e *StoredProcedureExtractor) FetchDefinition(ctx context.Context, name catalog.QualifiedName) Outcome {
	return fromFetch(e.conn.ProcedureDefinition(ctx, name))
}

// FunctionExtractor extracts scalar, table-valued, aggregate and CLR functions.
type FunctionExtractor struct{ conn adapter.Connection }

func (e *FunctionExtractor) Category() catalog.Category { return catalog.Function }

func (e *FunctionExtractor) ListNames(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return e.conn.Functions(ctx)
}

func (e *FunctionExtractor) FetchDefinition(ctx context.Context, name catalog.QualifiedName) Outcome {
	return fromFetch(e.conn.FunctionDefinition(ctx, name))
}

// TriggerExtractor extracts table and view triggers.
type TriggerExtractor struct{ conn adapter.Connection }

func (e *TriggerExtractor) Category() catalog.Category { return catalog.Trigger }

func (e *TriggerExtractor) ListNames(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return e.conn.Triggers(ctx)
}

func (e *TriggerExtractor) FetchDefinition(ctx context.Context, name catalog.QualifiedName) Outcome {
	return fromFetch(e.conn.TriggerDefinition(ctx, name))
}

// ViewExtractor extracts views.
type ViewExtractor struct{ conn adapter.Connection }

func (e *ViewExtractor) Category() catalog.Category { return catalog.View }

func (e *ViewExtractor) ListNames(ctx context.Context) iter.Seq2[catalog.QualifiedName, error] {
	return e.conn.Views(ctx)
}

func (e *ViewExtractor) FetchDefinition(ctx context.Context, name catalog.QualifiedName) Outcome {
	return fromFetch(e.conn.ViewDefinition(ctx, name))
}
