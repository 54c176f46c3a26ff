// Package tui is the terminal inbox: a conversation list pane, a
// transcript pane, and an input line over one messaging session.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/orgdesk/orgdesk/internal/messaging"
)

// Config holds TUI settings.
type Config struct {
	Theme          string
	ShowTimestamps bool
	CompactMode    bool
}

type focusArea int

const (
	focusList focusArea = iota
	focusInput
)

// Model is the bubbletea model for the inbox.
type Model struct {
	session *messaging.Session
	cfg     Config
	styles  Styles

	width  int
	height int

	focus  focusArea
	cursor int
	input  string
	status string

	changed chan struct{}
}

// NewModel builds the inbox model. The session's change callback is wired
// here; the caller runs the session's reconciler.
func NewModel(session *messaging.Session, cfg Config) *Model {
	m := &Model{
		session: session,
		cfg:     cfg,
		styles:  NewStyles(cfg.Theme),
		changed: make(chan struct{}, 16),
	}
	session.SetOnChange(func() {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	return m
}

// Run launches the inbox program and blocks until quit.
func Run(ctx context.Context, session *messaging.Session, cfg Config) error {
	model := NewModel(session, cfg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = session.Run(runCtx) }()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))
	_, err := program.Run()
	return err
}

type directoryChangedMsg struct{}

type summariesLoadedMsg struct{ err error }

type conversationOpenedMsg struct {
	id  string
	err error
}

type olderLoadedMsg struct{ err error }

type messageSentMsg struct{ err error }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadSummariesCmd(""), m.waitForChangeCmd())
}

func (m *Model) waitForChangeCmd() tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-m.changed; !ok {
			return nil
		}
		return directoryChangedMsg{}
	}
}

func (m *Model) loadSummariesCmd(search string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.FetchSummaries(context.Background(), search)
		return summariesLoadedMsg{err: err}
	}
}

func (m *Model) openConversationCmd(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.session.SelectConversation(context.Background(), id)
		return conversationOpenedMsg{id: id, err: err}
	}
}

func (m *Model) loadOlderCmd() tea.Cmd {
	return func() tea.Msg {
		return olderLoadedMsg{err: m.session.LoadOlder(context.Background())}
	}
}

func (m *Model) sendCmd(body string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.SendMessage(context.Background(), body)
		return messageSentMsg{err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case directoryChangedMsg:
		// Live update applied by the reconciler; repaint and rearm.
		m.clampCursor()
		return m, m.waitForChangeCmd()

	case summariesLoadedMsg:
		m.setStatusErr(msg.err)
		m.clampCursor()
		return m, nil

	case conversationOpenedMsg:
		m.setStatusErr(msg.err)
		if msg.err == nil {
			m.focus = focusInput
		}
		return m, nil

	case olderLoadedMsg:
		m.setStatusErr(msg.err)
		return m, nil

	case messageSentMsg:
		if msg.err != nil {
			// Keep the typed body so the user can retry.
			m.setStatusErr(msg.err)
			return m, nil
		}
		m.input = ""
		m.status = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.focus == focusList {
			m.focus = focusInput
		} else {
			m.focus = focusList
		}
		return m, nil
	case "pgup":
		return m, m.loadOlderCmd()
	}

	if m.focus == focusList {
		return m.handleListKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	summaries := m.session.Summaries()
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(summaries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g":
		m.cursor = 0
	case "G":
		if len(summaries) > 0 {
			m.cursor = len(summaries) - 1
		}
	case "r":
		return m, m.loadSummariesCmd("")
	case "enter":
		if m.cursor < len(summaries) {
			return m, m.openConversationCmd(summaries[m.cursor].ID())
		}
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		body := strings.TrimSpace(m.input)
		if body == "" {
			return m, nil
		}
		return m, m.sendCmd(body)
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil
	case tea.KeyEsc:
		m.focus = focusList
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m *Model) setStatusErr(err error) {
	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
}

func (m *Model) clampCursor() {
	count := len(m.session.Summaries())
	if count == 0 {
		m.cursor = 0
		return
	}
	if m.cursor >= count {
		m.cursor = count - 1
	}
}
