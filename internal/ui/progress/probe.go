package progress

import (
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/sqlextract/internal/adapter"
	"github.com/sadopc/sqlextract/internal/theme"
)

// ConnectFunc opens the catalog connection being probed.
type ConnectFunc func() (adapter.Connection, error)

type probeDoneMsg struct {
	conn adapter.Connection
	err  error
}

// attempt owns a connection opened after the probe was abandoned.
type attempt struct {
	mu        sync.Mutex
	abandoned bool
	conn      adapter.Connection
}

// finish records the outcome of connect. It reports false, after closing
// conn, when the probe was already abandoned.
func (a *attempt) finish(conn adapter.Connection) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.abandoned {
		if conn != nil {
			conn.Close()
		}
		return false
	}
	a.conn = conn
	return true
}

// abandon closes a connection that finished but was not yet delivered.
func (a *attempt) abandon() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abandoned = true
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

// Probe shows a spinner while a connection is opened. ctrl+c abandons the
// attempt: a connection that still opens afterwards is closed, never
// returned. The caller's connect function should honour its own context.
type Probe struct {
	label   string
	spinner spinner.Model
	connect ConnectFunc
	attempt *attempt

	conn    adapter.Connection
	err     error
	done    bool
	aborted bool
}

// NewProbe returns a Probe that runs connect when started.
func NewProbe(label string, connect ConnectFunc) Probe {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.Current.Spinner
	return Probe{label: label, spinner: s, connect: connect, attempt: &attempt{}}
}

func (p Probe) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, p.run)
}

func (p Probe) run() tea.Msg {
	conn, err := p.connect()
	if !p.attempt.finish(conn) {
		return nil
	}
	return probeDoneMsg{conn: conn, err: err}
}

func (p Probe) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case probeDoneMsg:
		if p.aborted {
			return p, nil
		}
		p.conn, p.err, p.done = msg.conn, msg.err, true
		return p, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !p.done {
			p.aborted = true
			p.attempt.abandon()
			return p, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p Probe) View() string {
	th := theme.Current
	switch {
	case p.done && p.err == nil:
		return th.SuccessText.Render("✓") + " " + p.label + "\n"
	case p.done:
		return th.ErrorText.Render("✗") + " " + p.label + "\n"
	case p.aborted:
		return th.WarningText.Render("!") + " " + p.label + " " + th.MutedText.Render("aborted") + "\n"
	}
	return p.spinner.View() + " " + p.label + "\n"
}

// Result returns the opened connection or the failure. Aborted reports a
// ctrl+c before the attempt finished, in which case both are nil.
func (p Probe) Result() (adapter.Connection, error) {
	return p.conn, p.err
}

func (p Probe) Aborted() bool {
	return p.aborted
}
