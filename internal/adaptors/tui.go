package adaptors

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/terminal"
)

// TUIAdaptor browses check reports in a full screen terminal UI
type TUIAdaptor struct {
	Title        string
	Run          RunFunc
	OnlyFailures bool

	mu      sync.Mutex
	program *tea.Program
	last    *checker.Report
}

// NewTUIAdaptor creates a new TUI adaptor
func NewTUIAdaptor(title string, run RunFunc, onlyFailures bool) *TUIAdaptor {
	return &TUIAdaptor{
		Title:        title,
		Run:          run,
		OnlyFailures: onlyFailures,
	}
}

// Start runs the TUI until the user quits. The last report shown is kept
// in Report.
func (a *TUIAdaptor) Start(ctx context.Context) error {
	tui := NewTUI(ctx, a.Title, a.Run, a.OnlyFailures)
	p := tea.NewProgram(
		tui,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(os.Stdin),
		tea.WithOutput(os.Stdout),
	)
	a.mu.Lock()
	a.program = p
	a.mu.Unlock()

	_, err := p.Run()

	a.mu.Lock()
	a.program = nil
	a.last = tui.report
	a.mu.Unlock()
	return err
}

// Refresh asks a running TUI to check again, e.g. after a file change.
func (a *TUIAdaptor) Refresh() {
	a.mu.Lock()
	p := a.program
	a.mu.Unlock()
	if p != nil {
		p.Send(refreshMsg{})
	}
}

// Report returns the last report displayed.
func (a *TUIAdaptor) Report() *checker.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

type reportMsg struct {
	report *checker.Report
	err    error
}

type refreshMsg struct{}

// TUI is the report browser model
type TUI struct {
	ctx          context.Context
	title        string
	run          RunFunc
	report       *checker.Report
	err          error
	display      viewport.Model
	onlyFailures bool
	running      bool
	status       string

	styles      terminal.Styles
	titleStyle  lipgloss.Style
	statusStyle lipgloss.Style
}

// NewTUI creates a new report browser model
func NewTUI(ctx context.Context, title string, run RunFunc, onlyFailures bool) *TUI {
	titleStyle := lipgloss.NewStyle().
		Foreground(terminal.ColorGreen).
		Bold(true)
	statusStyle := lipgloss.NewStyle().
		Background(terminal.ColorStatus).
		Foreground(terminal.ColorText)

	display := viewport.New(80, 20)
	display.SetContent("Running checks...\n")

	return &TUI{
		ctx:          ctx,
		title:        title,
		run:          run,
		display:      display,
		onlyFailures: onlyFailures,
		status:       "Starting",
		styles:       terminal.NewStyles(true),
		titleStyle:   titleStyle,
		statusStyle:  statusStyle,
	}
}

// Init starts the first run
func (m *TUI) Init() tea.Cmd {
	return m.rerun()
}

func (m *TUI) rerun() tea.Cmd {
	m.running = true
	m.updateStatus()
	run, ctx := m.run, m.ctx
	return func() tea.Msg {
		report, err := run(ctx)
		return reportMsg{report: report, err: err}
	}
}

// Update handles messages
func (m *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportMsg:
		m.running = false
		m.report, m.err = msg.report, msg.err
		m.updateDisplayContent()
		m.updateStatus()
		return m, nil
	case refreshMsg:
		if m.running {
			return m, nil
		}
		return m, m.rerun()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.display.Width = msg.Width
		m.display.Height = msg.Height - 2 // Leave room for title and status
		return m, nil
	}

	var cmd tea.Cmd
	m.display, cmd = m.display.Update(msg)
	return m, cmd
}

func (m *TUI) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	case "f":
		m.onlyFailures = !m.onlyFailures
		m.updateDisplayContent()
		m.updateStatus()
		return m, nil
	case "r":
		if m.running {
			return m, nil
		}
		return m, m.rerun()
	}

	var cmd tea.Cmd
	m.display, cmd = m.display.Update(msg)
	return m, cmd
}

func (m *TUI) updateStatus() {
	switch {
	case m.running:
		m.status = "Checking..."
	case m.err != nil:
		m.status = "Error: " + m.err.Error()
	case m.report != nil:
		m.status = fmt.Sprintf("%d passed | %d failed", m.report.Passed, m.report.Failed)
		if m.onlyFailures {
			m.status += " | failures only"
		}
	default:
		m.status = "Ready"
	}
	m.status += " | f: filter  r: re-run  q: quit"
}

func (m *TUI) updateDisplayContent() {
	if m.err != nil {
		m.display.SetContent(m.styles.Fail.Render("error: "+m.err.Error()) + "\n")
		return
	}
	if m.report == nil {
		return
	}

	var sb strings.Builder
	terminal.RenderText(&sb, m.report, terminal.Options{Styles: m.styles, OnlyFailures: m.onlyFailures})
	m.display.SetContent(sb.String())
	m.display.GotoTop()
}

// View renders the TUI
func (m *TUI) View() string {
	var sb strings.Builder

	sb.WriteString(m.titleStyle.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(m.display.View())
	sb.WriteString("\n")
	sb.WriteString(m.statusStyle.Render(m.status))

	return sb.String()
}

var (
	_ tea.Model = (*TUI)(nil)
	_ Adaptor   = (*TUIAdaptor)(nil)
)
