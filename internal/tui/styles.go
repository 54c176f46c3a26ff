package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles for the inbox panes.
type Styles struct {
	Title       lipgloss.Style
	ListItem    lipgloss.Style
	ActiveItem  lipgloss.Style
	UnreadBadge lipgloss.Style
	Preview     lipgloss.Style
	Sender      lipgloss.Style
	OwnSender   lipgloss.Style
	Timestamp   lipgloss.Style
	InputPrompt lipgloss.Style
	StatusError lipgloss.Style
	Border      lipgloss.Style
}

// NewStyles builds the style set for a theme. Unknown themes fall back to
// the default palette.
func NewStyles(theme string) Styles {
	accent := lipgloss.Color("69")
	muted := lipgloss.Color("243")
	badge := lipgloss.Color("203")
	if theme == "light" {
		accent = lipgloss.Color("27")
		muted = lipgloss.Color("245")
		badge = lipgloss.Color("160")
	}

	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(accent),
		ListItem:    lipgloss.NewStyle(),
		ActiveItem:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(accent),
		UnreadBadge: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(badge).Padding(0, 1),
		Preview:     lipgloss.NewStyle().Foreground(muted),
		Sender:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		OwnSender:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		Timestamp:   lipgloss.NewStyle().Foreground(muted),
		InputPrompt: lipgloss.NewStyle().Bold(true).Foreground(accent),
		StatusError: lipgloss.NewStyle().Foreground(badge),
		Border:      lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(muted),
	}
}
