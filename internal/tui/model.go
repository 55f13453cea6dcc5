// Package tui is the terminal front end: a tab list, the selected tab's
// chat log and an input line.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/omochice/linechat/internal/client"
)

const maxLogLines = 1000

type inputMode int

const (
	modeChat inputMode = iota
	modeEdit
	modeNew
)

// tabLog is the rendered history of one tab. It survives reconnects.
type tabLog struct {
	lines []string
	// ended is the session whose terminal state was already reported.
	ended *client.Session
}

// Model is the bubbletea model of the client.
type Model struct {
	tabs  *client.Tabs
	waker *Waker
	logs  map[*client.Supervisor]*tabLog

	input   textinput.Model
	chat    viewport.Model
	spinner spinner.Model
	mode    inputMode
	status  string

	width, height int
}

// New builds the model. The tabs must have been opened with
// client.WithNotify(waker.Notify).
func New(tabs *client.Tabs, waker *Waker) Model {
	inp := textinput.New()
	inp.Placeholder = "Enter message..."
	inp.Prompt = "> "
	inp.Focus()

	return Model{
		tabs:    tabs,
		waker:   waker,
		logs:    make(map[*client.Supervisor]*tabLog),
		input:   inp,
		chat:    viewport.New(80, 20),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, tabs *client.Tabs, waker *Waker) error {
	_, err := tea.NewProgram(New(tabs, waker), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waker.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case wakeMsg:
		m.sync()
		return m, m.waker.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true

	case "esc":
		if m.mode != modeChat {
			m.leaveEditMode()
		}
		return nil, true

	case "tab":
		m.selectRelative(1)
		return nil, true

	case "shift+tab":
		m.selectRelative(-1)
		return nil, true

	case "ctrl+r":
		_, sup := m.tabs.Current()
		sup.Reconnect(sup.Config())
		m.status = "reconnecting to " + sup.Config().Server
		m.sync()
		return nil, true

	case "ctrl+e":
		_, sup := m.tabs.Current()
		cfg := sup.Config()
		m.enterEditMode(modeEdit, cfg.Server+" "+cfg.Name)
		return nil, true

	case "ctrl+n":
		m.enterEditMode(modeNew, "")
		return nil, true

	case "ctrl+w":
		i, sup := m.tabs.Current()
		if err := m.tabs.Remove(i); err != nil {
			m.status = err.Error()
			return nil, true
		}
		delete(m.logs, sup)
		m.status = ""
		m.refreshChat()
		return nil, true

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return cmd, true

	case "enter":
		m.submit()
		return nil, true
	}
	return nil, false
}

func (m *Model) submit() {
	text := m.input.Value()
	switch m.mode {
	case modeChat:
		if text == "" {
			return
		}
		_, sup := m.tabs.Current()
		if err := sup.Send(text); err != nil {
			m.status = "send: " + err.Error()
			return
		}
		m.status = ""
		m.input.Reset()

	case modeEdit:
		_, sup := m.tabs.Current()
		cfg, err := parseConnection(text, sup.Config().Name)
		if err != nil {
			m.status = err.Error()
			return
		}
		if err := sup.Edit(cfg); err != nil {
			m.status = "edit: " + err.Error()
		}
		m.leaveEditMode()
		m.sync()

	case modeNew:
		cfg, err := parseConnection(text, client.DefaultName)
		if err != nil {
			m.status = err.Error()
			return
		}
		i := m.tabs.Add(cfg)
		if err := m.tabs.Select(i); err != nil {
			m.status = err.Error()
		}
		m.leaveEditMode()
		m.refreshChat()
	}
}

func (m *Model) enterEditMode(mode inputMode, value string) {
	m.mode = mode
	m.input.Placeholder = "address [name]"
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.status = ""
}

func (m *Model) leaveEditMode() {
	m.mode = modeChat
	m.input.Placeholder = "Enter message..."
	m.input.Reset()
}

func (m *Model) selectRelative(delta int) {
	n := m.tabs.Len()
	i, _ := m.tabs.Current()
	if err := m.tabs.Select(((i+delta)%n + n) % n); err != nil {
		m.status = err.Error()
		return
	}
	m.refreshChat()
}

// sync drains every tab's events into its log and reports sessions that
// ended since the last sync.
func (m *Model) sync() {
	for _, sup := range m.tabs.All() {
		log := m.logFor(sup)
		for _, ev := range sup.Poll() {
			if line := formatEvent(ev); line != "" {
				log.append(line)
			}
		}

		session := sup.Handle()
		if state := session.State(); state.Terminal() && log.ended != session {
			log.ended = session
			log.append(formatEnd(state, session.Err()))
		}
	}
	m.refreshChat()
}

func (m *Model) logFor(sup *client.Supervisor) *tabLog {
	log, ok := m.logs[sup]
	if !ok {
		log = &tabLog{}
		m.logs[sup] = log
	}
	return log
}

func (l *tabLog) append(line string) {
	l.lines = append(l.lines, line)
	if len(l.lines) > maxLogLines {
		l.lines = l.lines[len(l.lines)-maxLogLines:]
	}
}

func (m *Model) refreshChat() {
	_, sup := m.tabs.Current()
	content := strings.Join(m.logFor(sup).lines, "\n")
	if m.chat.Width > 0 {
		content = ansi.Wrap(content, m.chat.Width, "")
	}
	m.chat.SetContent(content)
	m.chat.GotoBottom()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	// Input box is 3 rows with borders, status bar 1 row, chat borders 2.
	chatHeight := max(height-3-1-2, 1)
	chatWidth := max(width-(sidebarWidth+2)-2, 10)
	m.chat.Width = chatWidth
	m.chat.Height = chatHeight
	m.input.Width = max(width-6, 10)
	m.refreshChat()
}

// errorText returns the status line for err, hiding sentinel wrapping.
func errorText(err error) string {
	var connErr *client.ConnectError
	if errors.As(err, &connErr) {
		return connErr.Err.Error()
	}
	return err.Error()
}
