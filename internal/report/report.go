// Package report carries extraction progress from the pipeline to whoever
// displays or records it. Sinks must be safe for concurrent use: the pipeline
// emits from one goroutine per category.
package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/sqlextract/internal/catalog"
)

// Kind identifies an event.
type Kind int

const (
	Connected Kind = iota
	Listed
	ListingFailed
	Written
	EmptyDefinition
	FetchFailed
	WriteFailed
	Overwritten
	Progress
	CategoryDone
	Cancelled
	RunDone
)

var kindNames = [...]string{
	Connected:       "connected",
	Listed:          "listed",
	ListingFailed:   "listing_failed",
	Written:         "written",
	EmptyDefinition: "empty_definition",
	FetchFailed:     "fetch_failed",
	WriteFailed:     "write_failed",
	Overwritten:     "overwritten",
	Progress:        "progress",
	CategoryDone:    "category_done",
	Cancelled:       "cancelled",
	RunDone:         "run_done",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Level is the severity of an event.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "info"
}

// Event is one step of an extraction run. Fields that do not apply to the
// kind are left zero.
type Event struct {
	Time     time.Time
	Kind     Kind
	Category catalog.Category
	Name     catalog.QualifiedName
	Path     string
	// Progress and Cancelled count processed names in Done out of Total
	// listed. CategoryDone and RunDone carry written files in Done; Listed
	// carries the listed count in Total.
	Done  int
	Total int
	Err   error
	// Detail is free text, e.g. the database for Connected or the replaced
	// object for Overwritten.
	Detail string
}

// Level returns the severity of the event kind.
func (e Event) Level() Level {
	switch e.Kind {
	case EmptyDefinition, Overwritten, Cancelled:
		return Warn
	case ListingFailed, FetchFailed, WriteFailed:
		return Error
	}
	return Info
}

// Subject renders the object an event is about, e.g. "Trigger dbo.trg_audit".
func (e Event) Subject() string {
	if e.Name.Name == "" {
		return e.Category.String()
	}
	return e.Category.String() + " " + e.Name.String()
}

// Sink receives events.
type Sink interface {
	Emit(Event)
}

// Func adapts a function to a Sink.
type Func func(Event)

func (f Func) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = Func(func(Event) {})

type multi []Sink

// Multi returns a Sink that forwards each event to all non-nil sinks in
// order.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Counter tallies events per category and kind and keeps them in arrival
// order.
type Counter struct {
	mu     sync.Mutex
	counts map[catalog.Category]map[Kind]int
	events []Event
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: map[catalog.Category]map[Kind]int{}}
}

func (c *Counter) Emit(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[e.Category] == nil {
		c.counts[e.Category] = map[Kind]int{}
	}
	c.counts[e.Category][e.Kind]++
	c.events = append(c.events, e)
}

// Count returns how many events of kind k were seen for category cat.
func (c *Counter) Count(cat catalog.Category, k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[cat][k]
}

// Total returns how many events of kind k were seen across categories.
func (c *Counter) Total(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.counts {
		n += m[k]
	}
	return n
}

// Events returns a copy of the events seen so far.
func (c *Counter) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

// Filter returns the events of kind k in arrival order.
func (c *Counter) Filter(k Kind) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, e := range c.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}
