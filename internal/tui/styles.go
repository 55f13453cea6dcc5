package tui

import "github.com/charmbracelet/lipgloss"

const sidebarWidth = 24

var (
	accent      = lipgloss.Color("#5EEAD4")
	muted       = lipgloss.Color("#9CA3AF")
	borderColor = lipgloss.Color("#374151")
	red         = lipgloss.Color("#EF4444")
	green       = lipgloss.Color("#34D399")

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Width(sidebarWidth)

	chatStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	inputEditStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(accent)

	tabStyle         = lipgloss.NewStyle()
	tabSelectedStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	tabDeadStyle     = lipgloss.NewStyle().Foreground(red)

	senderStyle = lipgloss.NewStyle().Bold(true)
	joinStyle   = lipgloss.NewStyle().Foreground(green)
	leaveStyle  = lipgloss.NewStyle().Foreground(red)
	noticeStyle = lipgloss.NewStyle().Foreground(muted)
	errorStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB")).
			Bold(true)
)
