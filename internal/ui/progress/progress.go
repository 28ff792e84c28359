// Package progress is the live terminal view of an extraction run: a spinner
// while categories are listed, then one progress bar per category.
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/sqlextract/internal/catalog"
	"github.com/sadopc/sqlextract/internal/report"
	"github.com/sadopc/sqlextract/internal/theme"
)

// maxProblems is how many recent warnings and errors stay on screen.
const maxProblems = 5

// EventMsg delivers a pipeline event to the model.
type EventMsg report.Event

// sender is the part of *tea.Program a Sink needs.
type sender interface {
	Send(msg tea.Msg)
}

// Sink forwards events to a running program.
type Sink struct {
	p sender
}

// NewSink returns a Sink sending to p, usually a *tea.Program.
func NewSink(p sender) *Sink {
	return &Sink{p: p}
}

func (s *Sink) Emit(e report.Event) {
	s.p.Send(EventMsg(e))
}

type categoryState struct {
	cat       catalog.Category
	listed    bool
	listErr   error
	done      int
	total     int
	written   int
	empty     int
	failed    int
	finished  bool
	cancelled bool
}

// Model renders the state of a run.
type Model struct {
	title    string
	spinner  spinner.Model
	bar      progress.Model
	rows     []*categoryState
	problems []string
	cancel   context.CancelFunc

	interrupted bool
	finished    bool
	summary     string
}

// New creates the view for the categories in set. cancel is called on the
// first ctrl+c; a second one quits immediately.
func New(title string, set catalog.Set, cancel context.CancelFunc) Model {
	th := theme.Current

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = th.Spinner

	m := Model{
		title:   title,
		spinner: s,
		bar: progress.New(
			progress.WithGradient(th.ProgressStart, th.ProgressEnd),
			progress.WithWidth(30),
		),
		cancel: cancel,
	}
	for _, cat := range set.Categories() {
		m.rows = append(m.rows, &categoryState{cat: cat})
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles events, key presses and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.interrupted {
				return m, tea.Quit
			}
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		w := msg.Width - 40
		if w > 50 {
			w = 50
		}
		if w < 10 {
			w = 10
		}
		m.bar.Width = w
		return m, nil

	case EventMsg:
		return m.apply(report.Event(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) row(cat catalog.Category) *categoryState {
	for _, r := range m.rows {
		if r.cat == cat {
			return r
		}
	}
	return nil
}

func (m Model) apply(e report.Event) (tea.Model, tea.Cmd) {
	if e.Kind == report.RunDone {
		m.finished = true
		m.summary = e.Detail
		return m, tea.Quit
	}

	r := m.row(e.Category)
	if r == nil {
		return m, nil
	}
	switch e.Kind {
	case report.Listed:
		r.listed = true
		r.total = e.Total
		r.finished = e.Total == 0
	case report.ListingFailed:
		r.listed = true
		r.listErr = e.Err
		r.finished = true
		m.addProblem(e)
	case report.Written:
		r.written++
	case report.EmptyDefinition:
		r.empty++
		m.addProblem(e)
	case report.Overwritten:
		m.addProblem(e)
	case report.FetchFailed, report.WriteFailed:
		r.failed++
		m.addProblem(e)
	case report.Progress:
		r.done = e.Done
		r.total = e.Total
	case report.CategoryDone:
		r.finished = true
	case report.Cancelled:
		r.cancelled = true
		r.finished = true
	}
	return m, nil
}

func (m *Model) addProblem(e report.Event) {
	th := theme.Current
	var line string
	switch e.Kind {
	case report.EmptyDefinition:
		line = th.WarningText.Render("warning:") + " " + e.Subject() + " has no definition"
	case report.Overwritten:
		line = th.WarningText.Render("warning:") + fmt.Sprintf(" %s replaced %s", e.Subject(), e.Detail)
	case report.ListingFailed:
		line = th.ErrorText.Render("error:") + fmt.Sprintf(" listing %s: %v", e.Category.Folder(), e.Err)
	default:
		line = th.ErrorText.Render("error:") + fmt.Sprintf(" %s: %v", e.Subject(), e.Err)
	}
	m.problems = append(m.problems, line)
	if len(m.problems) > maxProblems {
		m.problems = m.problems[len(m.problems)-maxProblems:]
	}
}

// View renders the model.
func (m Model) View() string {
	th := theme.Current
	var b strings.Builder

	b.WriteString(th.Title.Render(m.title))
	b.WriteString("\n\n")

	for _, r := range m.rows {
		b.WriteString(m.renderRow(r))
		b.WriteByte('\n')
	}

	if len(m.problems) > 0 {
		b.WriteByte('\n')
		for _, p := range m.problems {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}

	switch {
	case m.finished:
		b.WriteString("\n" + th.SuccessText.Render("Done") + " " + th.MutedText.Render(m.summary) + "\n")
	case m.interrupted:
		b.WriteString("\n" + th.WarningText.Render("Cancelling, press ctrl+c again to quit") + "\n")
	}
	return b.String()
}

func (m Model) renderRow(r *categoryState) string {
	th := theme.Current
	name := th.Category.Render(fmt.Sprintf("%-17s", r.cat.Folder()))

	var icon string
	switch {
	case r.listErr != nil:
		icon = th.ErrorText.Render("✗")
	case r.cancelled:
		icon = th.WarningText.Render("!")
	case r.finished:
		icon = th.SuccessText.Render("✓")
	default:
		icon = m.spinner.View()
	}

	if r.listErr != nil {
		return fmt.Sprintf("%s %s %s", icon, name, th.ErrorText.Render("listing failed"))
	}
	if !r.listed {
		return fmt.Sprintf("%s %s %s", icon, name, th.MutedText.Render("listing..."))
	}

	pct := 1.0
	if r.total > 0 {
		pct = float64(r.done) / float64(r.total)
	}
	counts := fmt.Sprintf("%d/%d", r.done, r.total)
	var extra []string
	if r.empty > 0 {
		extra = append(extra, fmt.Sprintf("%d empty", r.empty))
	}
	if r.failed > 0 {
		extra = append(extra, fmt.Sprintf("%d failed", r.failed))
	}
	if len(extra) > 0 {
		counts += " " + th.MutedText.Render("("+strings.Join(extra, ", ")+")")
	}
	return fmt.Sprintf("%s %s %s %s", icon, name, m.bar.ViewAs(pct), counts)
}

// Finished reports whether the run reported completion.
func (m Model) Finished() bool {
	return m.finished
}
