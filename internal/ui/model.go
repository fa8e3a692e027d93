// Package ui renders a wave session as a single-screen terminal app.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/and161185/wave-portal/internal/controller"
	"github.com/and161185/wave-portal/internal/model"
)

var (
	cAccent = lipgloss.Color("#7d56f4")
	cMuted  = lipgloss.Color("#777777")
	cWarn   = lipgloss.Color("#c01c28")
	cOK     = lipgloss.Color("#2ec27e")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(cMuted)
	okStyle      = lipgloss.NewStyle().Foreground(cOK)
	noticeStyle  = lipgloss.NewStyle().Foreground(cMuted).Italic(true)
	authorStyle  = lipgloss.NewStyle().Foreground(cAccent)
	alertStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cWarn).Padding(0, 1)
	historyStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

const timeLayout = "2006-01-02 15:04:05"

// Dispatcher accepts controller events. *controller.Controller implements it.
type Dispatcher interface {
	Dispatch(ev controller.Event)
}

// Model is the bubbletea model. It renders controller state and turns keys into events; it
// never changes session state itself.
type Model struct {
	ctrl   Dispatcher
	feed   *Feed
	state  controller.State
	input  textinput.Model
	spin   spinner.Model
	height int

	// drafts dispatched but not yet seen in a state, oldest first
	pending []string
}

// New builds the model. feed may be nil when states are delivered as StateMsg by the caller.
func New(ctrl Dispatcher, feed *Feed) Model {
	in := textinput.New()
	in.Placeholder = "Say hi to the chain"
	in.Prompt = "> "
	in.PromptStyle = lipgloss.NewStyle().Foreground(cAccent)
	in.CharLimit = 280
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cAccent)

	return Model{ctrl: ctrl, feed: feed, state: controller.Initial(), input: in, spin: sp}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spin.Tick}
	if m.feed != nil {
		cmds = append(cmds, m.feed.next())
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = controller.State(msg)
		if i := slices.Index(m.pending, m.state.Draft); i >= 0 {
			// An echo of our own typing; the input may already be ahead of it.
			m.pending = m.pending[i+1:]
			m.state.Draft = m.input.Value()
		} else if m.input.Value() != m.state.Draft {
			m.pending = nil
			m.input.SetValue(m.state.Draft)
			m.input.CursorEnd()
		}
		if m.feed != nil {
			return m, m.feed.next()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.state.Alert != "" {
		switch msg.String() {
		case "enter", "esc", " ":
			m.ctrl.Dispatch(controller.AlertDismissed{})
			m.state.Alert = ""
		}
		return m, nil
	}
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "ctrl+o":
		m.ctrl.Dispatch(controller.ConnectRequested{})
		return m, nil
	case "enter":
		m.ctrl.Dispatch(controller.SubmitRequested{})
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.state.Draft = v
		m.pending = append(m.pending, v)
		m.ctrl.Dispatch(controller.DraftChanged{Text: v})
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("👋 Wave Portal"))
	b.WriteString("\n")
	b.WriteString(m.accountLine())
	b.WriteString("\n\n")

	if m.state.Alert != "" {
		b.WriteString(alertStyle.Render(m.state.Alert + "\n" + mutedStyle.Render("press enter to dismiss")))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	switch {
	case m.state.Phase == controller.PhaseSubmitting:
		b.WriteString(m.spin.View() + " mining your wave…")
	case m.state.Notice != "":
		b.WriteString(noticeStyle.Render(m.state.Notice))
	}
	b.WriteString("\n\n")

	b.WriteString(historyStyle.Render(renderHistory(m.state.History, m.visibleRows())))
	b.WriteString("\n")
	keys := "ctrl+o connect • esc quit"
	if m.state.CanSubmit() {
		keys = "enter wave • " + keys
	}
	b.WriteString(mutedStyle.Render(keys))
	return b.String()
}

func (m Model) accountLine() string {
	switch {
	case !m.state.Mounted:
		return mutedStyle.Render("starting…")
	case m.state.Connected():
		return okStyle.Render("● ") + "connected as " + authorStyle.Render(string(m.state.Account))
	case m.state.Connecting:
		return mutedStyle.Render("○ waiting for the wallet…")
	case !m.state.ProviderPresent:
		return mutedStyle.Render("○ no wallet")
	default:
		return mutedStyle.Render("○ not connected, press ctrl+o")
	}
}

// visibleRows is how many entries fit; 0 means all.
func (m Model) visibleRows() int {
	if m.height == 0 {
		return 0
	}
	return max(3, m.height-14)
}

// renderHistory lists entries oldest first, keeping only the newest rows when limited.
func renderHistory(entries []model.WaveEntry, rows int) string {
	if len(entries) == 0 {
		return mutedStyle.Render("no waves yet")
	}
	var b strings.Builder
	skipped := 0
	if rows > 0 && len(entries) > rows {
		skipped = len(entries) - rows
		entries = entries[skipped:]
		fmt.Fprintf(&b, "%s\n", mutedStyle.Render(fmt.Sprintf("… %d earlier", skipped)))
	}
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s  %s",
			mutedStyle.Render(e.SubmittedAt.Local().Format(timeLayout)),
			authorStyle.Render(e.Author.Short()),
			e.Message,
		)
	}
	return b.String()
}
