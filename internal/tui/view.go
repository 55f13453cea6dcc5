package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/omochice/linechat/internal/client"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	sidebar := sidebarStyle.Height(m.chat.Height).Render(m.renderTabs())
	chat := chatStyle.Width(m.chat.Width).Height(m.chat.Height).Render(m.chat.View())
	row := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, chat)

	box := inputStyle
	if m.mode != modeChat {
		box = inputEditStyle
	}
	input := box.Width(m.width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, row, input, m.renderStatusBar())
}

func (m Model) renderTabs() string {
	current, _ := m.tabs.Current()
	var b strings.Builder
	for i, sup := range m.tabs.All() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderTab(sup, i == current))
	}
	return b.String()
}

func (m Model) renderTab(sup *client.Supervisor, selected bool) string {
	server := ansi.Truncate(sup.Config().Server, sidebarWidth-3, "…")

	prefix := "  "
	style := tabStyle
	switch state := sup.State(); {
	case state == client.Loading:
		prefix = m.spinner.View() + " "
	case state.Terminal():
		style = tabDeadStyle
	}
	if selected {
		style = style.Inherit(tabSelectedStyle)
	}
	return prefix + style.Render(server)
}

func (m Model) renderStatusBar() string {
	var left string
	switch m.mode {
	case modeEdit:
		left = "edit connection: " + statusKeyStyle.Render("Enter") + " apply • " + statusKeyStyle.Render("Esc") + " cancel"
	case modeNew:
		left = "new connection: " + statusKeyStyle.Render("Enter") + " add • " + statusKeyStyle.Render("Esc") + " cancel"
	default:
		left = statusKeyStyle.Render("Tab") + " switch • " +
			statusKeyStyle.Render("^N") + " new • " +
			statusKeyStyle.Render("^E") + " edit • " +
			statusKeyStyle.Render("^R") + " reconnect • " +
			statusKeyStyle.Render("^W") + " close • " +
			statusKeyStyle.Render("^C") + " quit"
	}

	status := m.status
	if status == "" {
		_, sup := m.tabs.Current()
		if err := sup.Err(); err != nil && sup.State().Terminal() {
			status = errorText(err)
		}
	}
	if status != "" {
		left += "  " + errorStyle.Render(status)
	}
	return statusBarStyle.Width(m.width).Render(left)
}
