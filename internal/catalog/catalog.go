// Package catalog holds the types shared by every layer of sqlextract: the
// object categories that can be extracted, sets of them, and the qualified
// names produced by catalog listings.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("unknown object category")
	ErrInvalidName     = errors.New("invalid qualified name")
)

// Category is one kind of extractable programmable object.
type Category int

// Declaration order is the processing and display order.
const (
	StoredProcedure Category = iota
	Function
	Trigger
	View

	numCategories
)

var categoryNames = [numCategories]string{
	StoredProcedure: "StoredProcedure",
	Function:        "Function",
	Trigger:         "Trigger",
	View:            "View",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{StoredProcedure, Function, Trigger, View}
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= 0 && c < numCategories
}

// Folder returns the output subfolder for the category ("Functions", ...).
func (c Category) Folder() string {
	return c.String() + "s"
}

// flag returns the bit used for c in a Set. The values match the historical
// command line bitmask (1, 2, 4, 8).
func (c Category) flag() Set {
	return Set(1) << uint(c)
}

// ParseCategory parses a category name or one of its short aliases,
// case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "storedprocedure", "storedprocedures", "procedure", "procedures", "proc", "sp":
		return StoredProcedure, nil
	case "function", "functions", "func", "fn":
		return Function, nil
	case "trigger", "triggers", "trg":
		return Trigger, nil
	case "view", "views":
		return View, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Set is a selection of categories.
type Set uint8

// All returns the set holding every category.
func All() Set {
	var s Set
	for _, c := range Categories() {
		s = s.Add(c)
	}
	return s
}

// NewSet builds a set from the given categories.
func NewSet(cats ...Category) Set {
	var s Set
	for _, c := range cats {
		s = s.Add(c)
	}
	return s
}

// Has reports whether c is selected.
func (s Set) Has(c Category) bool {
	return c.Valid() && s&c.flag() != 0
}

// Add returns a copy of s with c selected. Invalid categories are ignored.
func (s Set) Add(c Category) Set {
	if !c.Valid() {
		return s
	}
	return s | c.flag()
}

// Empty reports whether no category is selected.
func (s Set) Empty() bool {
	return s&All() == 0
}

// Categories returns the selected categories in declaration order.
func (s Set) Categories() []Category {
	var out []Category
	for _, c := range Categories() {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s Set) String() string {
	if s == All() {
		return "all"
	}
	cats := s.Categories()
	if len(cats) == 0 {
		return "none"
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

// ParseSet parses a category selection. Accepted forms are "all", a comma or
// pipe separated list of category names/aliases, or the numeric bitmask
// (StoredProcedure=1, Function=2, Trigger=4, View=8).
func ParseSet(s string) (Set, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return All(), nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 || n > int(All()) {
			return 0, fmt.Errorf("%w: bitmask %d", ErrUnknownCategory, n)
		}
		return Set(n), nil
	}

	var set Set
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return 0, err
		}
		set = set.Add(c)
	}
	if set.Empty() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return set, nil
}

// QualifiedName identifies a catalog object by schema and local name.
type QualifiedName struct {
	Schema string
	Name   string
}

// NewQualifiedName validates and builds a QualifiedName.
func NewQualifiedName(schema, name string) (QualifiedName, error) {
	if schema == "" || name == "" {
		return QualifiedName{}, fmt.Errorf("%w: %q.%q", ErrInvalidName, schema, name)
	}
	return QualifiedName{Schema: schema, Name: name}, nil
}

// ParseQualifiedName splits "schema.name" on the first dot. Local names may
// themselves contain dots.
func ParseQualifiedName(s string) (QualifiedName, error) {
	schema, name, ok := strings.Cut(s, ".")
	if !ok {
		return QualifiedName{}, fmt.Errorf("%w: %q has no schema", ErrInvalidName, s)
	}
	return NewQualifiedName(schema, name)
}

func (n QualifiedName) String() string {
	return n.Schema + "." + n.Name
}
