// Package highlight renders SQL definitions with ANSI colors for the show
// command.
package highlight

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/sadopc/sqlextract/internal/theme"
)

// lexerNames maps adapter names to chroma lexer aliases.
var lexerNames = map[string]string{
	"sqlserver": "tsql",
	"postgres":  "postgresql",
	"mysql":     "mysql",
}

// Highlighter tokenises SQL in one dialect and formats it for a 256 color
// terminal.
type Highlighter struct {
	lexer chroma.Lexer
}

// New returns a Highlighter for the dialect of the named adapter. Unknown
// adapters use the generic SQL lexer.
func New(adapterName string) *Highlighter {
	var l chroma.Lexer
	if name, ok := lexerNames[adapterName]; ok {
		l = lexers.Get(name)
	}
	if l == nil {
		l = lexers.Get("sql")
	}
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// LexerName returns the name of the chroma lexer in use.
func (h *Highlighter) LexerName() string {
	return h.lexer.Config().Name
}

// Highlight returns sql with terminal color codes in the chroma style named
// by th. The text is returned unchanged when th is nil or tokenising fails.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil || sql == "" {
		return sql
	}

	style := styles.Get(th.ChromaStyle)
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return sql
	}

	it, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)
	if err := formatter.Format(&b, style, it); err != nil {
		return sql
	}
	return b.String()
}
