// Package historybrowser is the interactive view of the history command: a
// searchable list of past extraction runs.
package historybrowser

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sqlextract/internal/history"
	"github.com/sadopc/sqlextract/internal/theme"
)

// Source is the part of *history.History the browser reads from.
type Source interface {
	Recent(limit int) ([]history.Run, error)
	Search(pattern string, limit int) ([]history.Run, error)
}

// Model lists runs, newest first, filtered by the search box.
type Model struct {
	src    Source
	limit  int
	runs   []history.Run
	err    error
	cursor int
	offset int // scroll offset
	width  int
	height int
	search textinput.Model

	selected *history.Run
	quitting bool
}

// New creates a browser over src showing at most limit runs.
func New(src Source, limit int) Model {
	ti := textinput.New()
	ti.Placeholder = "Search database or output directory..."
	ti.Prompt = "  > "
	ti.Width = 50
	ti.Focus()

	m := Model{src: src, limit: limit, search: ti}
	m.load()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
				m.ensureVisible()
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.runs)-1 {
				m.cursor++
				m.ensureVisible()
			}
			return m, nil
		case "pgup":
			m.cursor = max(m.cursor-m.visibleCount(), 0)
			m.ensureVisible()
			return m, nil
		case "pgdown":
			m.cursor = max(min(m.cursor+m.visibleCount(), len(m.runs)-1), 0)
			m.ensureVisible()
			return m, nil
		case "enter":
			if m.cursor < len(m.runs) {
				r := m.runs[m.cursor]
				m.selected = &r
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

		prev := m.search.Value()
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		if m.search.Value() != prev {
			m.cursor, m.offset = 0, 0
			m.load()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	th := theme.Current
	w := m.contentWidth()

	var lines []string
	end := min(m.offset+m.visibleCount(), len(m.runs))
	for i := m.offset; i < end; i++ {
		r := m.runs[i]
		line := FormatRun(r, w-4)
		switch {
		case i == m.cursor:
			lines = append(lines, th.Selected.Render("> "+line))
		case r.Cancelled || r.Failed > 0:
			lines = append(lines, th.WarningText.Render("  "+line))
		default:
			lines = append(lines, "  "+line)
		}
	}
	switch {
	case m.err != nil:
		lines = append(lines, th.ErrorText.Render("  "+m.err.Error()))
	case len(m.runs) == 0:
		lines = append(lines, th.MutedText.Render("  No runs recorded"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		th.Title.Render("  Extraction History"),
		m.search.View(),
		"",
		strings.Join(lines, "\n"),
		"",
		th.MutedText.Render(fmt.Sprintf("  %d runs", len(m.runs))),
		th.MutedText.Render("  enter:details  esc:quit  up/down:navigate"),
	) + "\n"
}

// Selected returns the run chosen with enter.
func (m Model) Selected() (history.Run, bool) {
	if m.selected == nil {
		return history.Run{}, false
	}
	return *m.selected, true
}

func (m Model) contentWidth() int {
	w := 100
	if m.width > 0 && w > m.width-2 {
		w = m.width - 2
	}
	return w
}

// visibleCount returns how many runs fit between the header and the footer.
func (m Model) visibleCount() int {
	if m.height == 0 {
		return 15
	}
	return max(m.height-7, 3)
}

func (m *Model) ensureVisible() {
	visible := m.visibleCount()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m *Model) load() {
	if m.src == nil {
		m.runs = nil
		return
	}
	if q := m.search.Value(); q != "" {
		m.runs, m.err = m.src.Search("%"+q+"%", m.limit)
	} else {
		m.runs, m.err = m.src.Recent(m.limit)
	}
}

// FormatRun renders a run on one line, truncating the output directory so
// the line fits in maxWidth.
func FormatRun(r history.Run, maxWidth int) string {
	status := "ok"
	switch {
	case r.Cancelled:
		status = "cancelled"
	case r.Failed > 0:
		status = fmt.Sprintf("%d failed", r.Failed)
	}
	meta := fmt.Sprintf("%d written  %s  %s  %s", r.Written, status, formatDuration(r.DurationMS), RelativeTime(r.StartedAt))

	db := r.DatabaseName
	if db == "" {
		db = "-"
	}
	head := fmt.Sprintf("%-9s %-16s ", r.Adapter, db)

	dirMax := max(maxWidth-len(head)-len(meta)-2, 10)
	dir := r.OutputDir
	if len(dir) > dirMax {
		dir = "..." + dir[len(dir)-dirMax+3:]
	}
	return fmt.Sprintf("%s%-*s  %s", head, dirMax, dir, meta)
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// RelativeTime formats a timestamp as a human-readable relative time.
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
