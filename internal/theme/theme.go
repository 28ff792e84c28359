// Package theme holds the lipgloss styles used by the console output, the
// live progress view and the list table, so the look can be switched from the
// config file.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme holds lipgloss.Style values for every element sqlextract prints.
type Theme struct {
	Name string

	// Headings and labels
	Title    lipgloss.Style
	Label    lipgloss.Style
	Category lipgloss.Style

	// Event lines
	Path        lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	ErrorText   lipgloss.Style
	MutedText   lipgloss.Style

	// List table
	TableBorder lipgloss.Style
	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	Selected    lipgloss.Style

	// Live progress
	Spinner       lipgloss.Style
	ProgressStart string
	ProgressEnd   string

	// ChromaStyle names the chroma style used to highlight definitions.
	ChromaStyle string
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	accent  string
	text    string
	muted   string
	border  string
	success string
	warning string
	err     string
	object  string
	path    string
}

func build(name string, p palette, chromaStyle string) *Theme {
	return &Theme{
		Name: name,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.accent)),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)),
		Category: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.object)),

		Path: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.path)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.success)),
		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.warning)),
		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.err)),
		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.muted)),

		TableBorder: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.border)),
		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.accent)).
			PaddingRight(2),
		TableCell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.text)).
			PaddingRight(2),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(p.accent)),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(p.accent)),
		ProgressStart: p.accent,
		ProgressEnd:   p.success,

		ChromaStyle: chromaStyle,
	}
}

// Themes maps theme names to their Theme definitions.
var Themes = map[string]*Theme{
	"default": build("default", palette{
		accent:  "#569CD6",
		text:    "#D4D4D4",
		muted:   "#808080",
		border:  "#3C3C3C",
		success: "#6A9955",
		warning: "#CCA700",
		err:     "#F44747",
		object:  "#4EC9B0",
		path:    "#9CDCFE",
	}, "vim"),
	"light": build("light", palette{
		accent:  "#0451A5",
		text:    "#1E1E1E",
		muted:   "#A0A0A0",
		border:  "#D4D4D4",
		success: "#16825D",
		warning: "#BF8803",
		err:     "#E51400",
		object:  "#267F99",
		path:    "#001080",
	}, "github"),
	"monokai": build("monokai", palette{
		accent:  "#F92672",
		text:    "#F8F8F2",
		muted:   "#75715E",
		border:  "#49483E",
		success: "#A6E22E",
		warning: "#E6DB74",
		err:     "#F92672",
		object:  "#66D9EF",
		path:    "#FD971F",
	}, "monokai"),
}

// Current is the currently active theme. It is initialized to Default.
var Current = Themes["default"]

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the theme identified by name. If no theme with that name exists
// it falls back to the default theme.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}

// Use makes the named theme current and returns it.
func Use(name string) *Theme {
	Current = Get(name)
	return Current
}
