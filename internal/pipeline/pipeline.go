// Package pipeline runs an extraction: it lists every selected category, then
// fetches and writes each listed object, one goroutine per category.
//
// Per-object and per-category failures are reported as events and never fail
// the run. Within a category, names are processed in listing order, so files
// are written in the order the catalog returned them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/catalog"
	"github.com/sadopc/sqlextract/internal/extractor"
	"github.com/sadopc/sqlextract/internal/report"
	"github.com/sadopc/sqlextract/internal/scriptfs"
)

var ErrInvalidRequest = errors.New("invalid extraction request")

// Request describes one extraction run. The caller owns Conn and closes it
// after Run returns.
type Request struct {
	Categories catalog.Set
	OutputRoot string
	Separator  rune
	Conn       adapter.Connection
	// Sink receives progress events; nil discards them.
	Sink report.Sink
}

func (r Request) validate() error {
	switch {
	case r.Conn == nil:
		return fmt.Errorf("%w: no connection", ErrInvalidRequest)
	case r.OutputRoot == "":
		return fmt.Errorf("%w: empty output directory", ErrInvalidRequest)
	case r.Separator == 0:
		return fmt.Errorf("%w: no separator", ErrInvalidRequest)
	case r.Categories.Empty():
		return fmt.Errorf("%w: no category selected", ErrInvalidRequest)
	}
	return nil
}

// CategoryResult tallies one category of a run.
type CategoryResult struct {
	Category catalog.Category
	Listed   int
	Written  int
	Empty    int
	Failed   int
	// Overwritten counts writes that replaced a file written earlier in
	// the same run; those writes are also counted in Written.
	Overwritten int
	// ListErr is set when listing failed; the category then has no names.
	ListErr   error
	Cancelled bool
}

// Result summarises a run.
type Result struct {
	Categories []CategoryResult
	// Paths holds every distinct written file, grouped by category in declaration
	// order and in listing order within a category.
	Paths    []string
	Duration time.Duration
}

// Written returns the number of files written across categories.
func (r Result) Written() int {
	return r.sum(func(c CategoryResult) int { return c.Written })
}

// Overwritten returns the number of writes that replaced an earlier file.
func (r Result) Overwritten() int {
	return r.sum(func(c CategoryResult) int { return c.Overwritten })
}

// Failed returns the number of objects that could not be fetched or written.
func (r Result) Failed() int {
	return r.sum(func(c CategoryResult) int { return c.Failed })
}

// Empty returns the number of objects without a stored definition.
func (r Result) Empty() int {
	return r.sum(func(c CategoryResult) int { return c.Empty })
}

// Cancelled reports whether any category stopped early.
func (r Result) Cancelled() bool {
	for _, c := range r.Categories {
		if c.Cancelled {
			return true
		}
	}
	return false
}

// Category returns the tally for cat, if it was selected.
func (r Result) Category(cat catalog.Category) (CategoryResult, bool) {
	for _, c := range r.Categories {
		if c.Category == cat {
			return c, true
		}
	}
	return CategoryResult{}, false
}

func (r Result) sum(f func(CategoryResult) int) int {
	n := 0
	for _, c := range r.Categories {
		n += f(c)
	}
	return n
}

type emitter struct{ sink report.Sink }

func (e emitter) emit(ev report.Event) {
	ev.Time = time.Now()
	e.sink.Emit(ev)
}

// Run executes req. The returned error is non-nil only when the request is
// invalid; a cancelled ctx stops the run early and returns the partial
// result.
func Run(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}
	exts, err := extractor.For(req.Categories, req.Conn)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	sink := req.Sink
	if sink == nil {
		sink = report.Discard
	}
	em := emitter{sink: sink}
	start := time.Now()

	results := make([]CategoryResult, len(exts))
	for i, ext := range exts {
		results[i].Category = ext.Category()
	}

	names := listAll(ctx, exts, results, em)

	paths := make([][]string, len(exts))
	var g errgroup.Group
	for i, ext := range exts {
		if len(names[i]) == 0 {
			continue
		}
		g.Go(func() error {
			paths[i] = extractCategory(ctx, req, ext, names[i], &results[i], em)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Categories: results, Duration: time.Since(start)}
	for _, p := range paths {
		res.Paths = append(res.Paths, p...)
	}

	em.emit(report.Event{
		Kind:   report.RunDone,
		Done:   res.Written(),
		Total:  res.Written() + res.Empty() + res.Failed(),
		Detail: fmt.Sprintf("%d files written in %s", res.Written(), res.Duration.Round(time.Millisecond)),
	})
	return res, nil
}

// listAll runs every listing concurrently. A category whose listing fails
// keeps no names, even those yielded before the failure. Listed events are
// emitted afterwards in declaration order.
func listAll(ctx context.Context, exts []extractor.Extractor, results []CategoryResult, em emitter) [][]catalog.QualifiedName {
	names := make([][]catalog.QualifiedName, len(exts))
	errs := make([]error, len(exts))

	var g errgroup.Group
	for i, ext := range exts {
		g.Go(func() error {
			for name, err := range ext.ListNames(ctx) {
				if err != nil {
					names[i], errs[i] = nil, err
					return nil
				}
				names[i] = append(names[i], name)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i := range exts {
		cat := results[i].Category
		switch {
		case errs[i] != nil && ctx.Err() != nil:
			results[i].Cancelled = true
			em.emit(report.Event{Kind: report.Cancelled, Category: cat})
		case errs[i] != nil:
			results[i].ListErr = errs[i]
			em.emit(report.Event{Kind: report.ListingFailed, Category: cat, Err: errs[i]})
		default:
			results[i].Listed = len(names[i])
			em.emit(report.Event{Kind: report.Listed, Category: cat, Total: len(names[i])})
		}
	}
	return names
}

// extractCategory fetches and writes names in order and returns the distinct
// paths it wrote. Two names that resolve to the same file leave the later
// definition on disk and emit Overwritten.
func extractCategory(ctx context.Context, req Request, ext extractor.Extractor, names []catalog.QualifiedName, res *CategoryResult, em emitter) []string {
	cat := ext.Category()
	total := len(names)
	var written []string
	owners := make(map[string]catalog.QualifiedName)

	for i, name := range names {
		if ctx.Err() != nil {
			res.Cancelled = true
			em.emit(report.Event{Kind: report.Cancelled, Category: cat, Done: i, Total: total})
			return written
		}

		out := ext.FetchDefinition(ctx, name)
		switch out.Kind {
		case extractor.Definition:
			path, err := scriptfs.Write(req.OutputRoot, cat, req.Separator, name, out.Text)
			if err != nil {
				res.Failed++
				em.emit(report.Event{Kind: report.WriteFailed, Category: cat, Name: name, Path: path, Err: err})
				break
			}
			res.Written++
			if prev, ok := owners[path]; ok {
				res.Overwritten++
				em.emit(report.Event{Kind: report.Overwritten, Category: cat, Name: name, Path: path, Detail: prev.String()})
			} else {
				written = append(written, path)
			}
			owners[path] = name
			em.emit(report.Event{Kind: report.Written, Category: cat, Name: name, Path: path})
		case extractor.Empty:
			res.Empty++
			em.emit(report.Event{Kind: report.EmptyDefinition, Category: cat, Name: name})
		case extractor.Failure:
			if ctx.Err() != nil {
				res.Cancelled = true
				em.emit(report.Event{Kind: report.Cancelled, Category: cat, Done: i, Total: total})
				return written
			}
			res.Failed++
			em.emit(report.Event{Kind: report.FetchFailed, Category: cat, Name: name, Err: out.Err})
		}

		em.emit(report.Event{Kind: report.Progress, Category: cat, Done: i + 1, Total: total})
	}

	em.emit(report.Event{Kind: report.CategoryDone, Category: cat, Done: res.Written, Total: total})
	return written
}

// Listing is the outcome of listing one category.
type Listing struct {
	Category catalog.Category
	Names    []catalog.QualifiedName
	Err      error
}

// List runs only the listing phase for the categories in set, in
// declaration order. Nothing is fetched or written.
func List(ctx context.Context, set catalog.Set, conn adapter.Connection, sink report.Sink) ([]Listing, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: no connection", ErrInvalidRequest)
	}
	if set.Empty() {
		return nil, fmt.Errorf("%w: no category selected", ErrInvalidRequest)
	}
	exts, err := extractor.For(set, conn)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if sink == nil {
		sink = report.Discard
	}

	results := make([]CategoryResult, len(exts))
	for i, ext := range exts {
		results[i].Category = ext.Category()
	}
	names := listAll(ctx, exts, results, emitter{sink: sink})

	out := make([]Listing, len(exts))
	for i, r := range results {
		out[i] = Listing{Category: r.Category, Names: names[i], Err: r.ListErr}
		if r.Cancelled {
			out[i].Err = ctx.Err()
		}
	}
	return out, nil
}
