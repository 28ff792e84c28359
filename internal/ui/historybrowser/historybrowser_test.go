package historybrowser

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/sqlextract/internal/history"
)

type fakeSource struct {
	runs     []history.Run
	err      error
	patterns []string
}

func (f *fakeSource) Recent(limit int) ([]history.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[:min(limit, len(f.runs))], nil
}

func (f *fakeSource) Search(pattern string, limit int) ([]history.Run, error) {
	f.patterns = append(f.patterns, pattern)
	needle := strings.Trim(pattern, "%")
	var out []history.Run
	for _, r := range f.runs {
		if strings.Contains(r.DatabaseName, needle) || strings.Contains(r.OutputDir, needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

func sampleRuns() []history.Run {
	now := time.Now()
	return []history.Run{
		{ID: 3, StartedAt: now, Adapter: "sqlserver", DatabaseName: "Sales", OutputDir: "./Scripts", Written: 12},
		{ID: 2, StartedAt: now.Add(-time.Hour), Adapter: "postgres", DatabaseName: "billing", OutputDir: "/srv/sql", Written: 4, Failed: 1},
		{ID: 1, StartedAt: now.Add(-72 * time.Hour), Adapter: "sqlite", DatabaseName: "app.db", OutputDir: "./out", Cancelled: true},
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNilSource(t *testing.T) {
	m := New(nil, 20)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter with no runs should do nothing")
	}
	if !strings.Contains(m.View(), "No runs recorded") {
		t.Errorf("view = %q", m.View())
	}
}

func TestSelectRun(t *testing.T) {
	m := New(&fakeSource{runs: sampleRuns()}, 20)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})

	if !isQuit(cmd) {
		t.Error("enter should quit")
	}
	r, ok := m.Selected()
	if !ok || r.ID != 2 {
		t.Errorf("Selected() = %+v, %v, want run 2", r, ok)
	}
}

func TestEscQuitsWithoutSelection(t *testing.T) {
	m := New(&fakeSource{runs: sampleRuns()}, 20)
	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyEscape})
	if !isQuit(cmd) {
		t.Error("esc should quit")
	}
	if _, ok := m.Selected(); ok {
		t.Error("esc should not select a run")
	}
}

func TestSearchFilters(t *testing.T) {
	src := &fakeSource{runs: sampleRuns()}
	m := New(src, 20)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("srv")})

	if len(m.runs) != 1 || m.runs[0].ID != 2 {
		t.Errorf("runs after search = %+v", m.runs)
	}
	if len(src.patterns) == 0 || src.patterns[len(src.patterns)-1] != "%srv%" {
		t.Errorf("search patterns = %v", src.patterns)
	}
}

func TestCursorBounds(t *testing.T) {
	m := New(&fakeSource{runs: sampleRuns()}, 20)
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyUp})
	if m.cursor != 0 {
		t.Errorf("cursor = %d after up at top", m.cursor)
	}
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyPgDown})
	if m.cursor != 2 {
		t.Errorf("cursor = %d after pgdown, want 2", m.cursor)
	}
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("cursor = %d after down at bottom", m.cursor)
	}
	m, _ = update(m, tea.KeyMsg{Type: tea.KeyPgUp})
	if m.cursor != 0 {
		t.Errorf("cursor = %d after pgup, want 0", m.cursor)
	}
}

func TestSourceError(t *testing.T) {
	m := New(&fakeSource{err: errors.New("database is locked")}, 20)
	if !strings.Contains(m.View(), "database is locked") {
		t.Errorf("view = %q", m.View())
	}
}

func TestFormatRun(t *testing.T) {
	runs := sampleRuns()
	tests := []struct {
		run  history.Run
		want []string
	}{
		{runs[0], []string{"sqlserver", "Sales", "./Scripts", "12 written", "ok", "just now"}},
		{runs[1], []string{"postgres", "1 failed", "1h ago"}},
		{runs[2], []string{"sqlite", "cancelled", "3d ago"}},
	}
	for _, tt := range tests {
		got := FormatRun(tt.run, 100)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("FormatRun() = %q, missing %q", got, w)
			}
		}
	}

	long := history.Run{Adapter: "sqlite", OutputDir: "/very/long/path/to/some/deeply/nested/output/directory/for/scripts"}
	if got := FormatRun(long, 60); !strings.Contains(got, "...") {
		t.Errorf("FormatRun() = %q, want truncated directory", got)
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		offset time.Duration
		want   string
	}{
		{5 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{2 * time.Hour, "2h ago"},
		{36 * time.Hour, "yesterday"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		got := RelativeTime(time.Now().Add(-tt.offset))
		if got != tt.want {
			t.Errorf("RelativeTime(-%v) = %q, want %q", tt.offset, got, tt.want)
		}
	}
}
