package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/orgdesk/orgdesk/internal/messaging"
	"github.com/orgdesk/orgdesk/internal/models"
)

const minListWidth = 24

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	listWidth := m.width / 3
	if listWidth < minListWidth {
		listWidth = minListWidth
	}
	transcriptWidth := m.width - listWidth - 1
	bodyHeight := m.height - 3

	list := m.renderList(listWidth, bodyHeight)
	transcript := m.renderTranscript(transcriptWidth, bodyHeight)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Height(bodyHeight).Render(list),
		" ",
		lipgloss.NewStyle().Width(transcriptWidth).Height(bodyHeight).Render(transcript),
	)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderInput(), m.renderStatus())
}

func (m *Model) renderList(width, height int) string {
	summaries := m.session.Summaries()
	activeID := m.session.ActiveConversationID()

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Conversations (%d unread)", m.session.UnreadTotal())))
	b.WriteString("\n")

	if len(summaries) == 0 {
		b.WriteString(m.styles.Preview.Render("no conversations"))
		return b.String()
	}

	rows := height - 1
	if !m.cfg.CompactMode {
		rows /= 2
	}
	start := 0
	if m.cursor >= rows && rows > 0 {
		start = m.cursor - rows + 1
	}

	for i := start; i < len(summaries) && i-start < rows; i++ {
		summary := summaries[i]
		line := m.renderListRow(summary, width, i == m.cursor, summary.ID() == activeID)
		b.WriteString(line)
		b.WriteString("\n")
		if !m.cfg.CompactMode {
			preview := truncateTo(summary.Preview, width-4)
			b.WriteString("  " + m.styles.Preview.Render(preview))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderListRow(summary models.ConversationSummary, width int, cursor, active bool) string {
	marker := "  "
	if cursor {
		marker = "> "
	}
	badge := ""
	if summary.Unread > 0 {
		badge = " " + m.styles.UnreadBadge.Render(fmt.Sprintf("%d", summary.Unread))
	}
	title := truncateTo(summary.Title, width-8)

	style := m.styles.ListItem
	if active {
		style = m.styles.ActiveItem
	}
	return marker + style.Render(title) + badge
}

func (m *Model) renderTranscript(width, height int) string {
	snapshot := m.session.Transcript()
	if snapshot.ConversationID == "" {
		return m.styles.Preview.Render("select a conversation (j/k, enter)")
	}

	var lines []string
	if snapshot.State == messaging.TranscriptLoading {
		lines = append(lines, m.styles.Preview.Render("loading..."))
	}
	if snapshot.HasMore {
		lines = append(lines, m.styles.Preview.Render("-- pgup for older messages --"))
	}

	for _, msg := range snapshot.Messages {
		lines = append(lines, m.renderMessage(msg, width))
	}

	// Keep the newest messages in view.
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderMessage(msg models.Message, width int) string {
	sender := m.styles.Sender
	if msg.SenderID == m.session.UserID() {
		sender = m.styles.OwnSender
	}

	prefix := ""
	if m.cfg.ShowTimestamps {
		prefix = m.styles.Timestamp.Render(msg.CreatedAt.Local().Format("15:04")) + " "
	}
	body := truncateTo(msg.Body, width-len(msg.SenderID)-10)
	return prefix + sender.Render(msg.SenderID) + ": " + body
}

func (m *Model) renderInput() string {
	prompt := "  "
	if m.focus == focusInput {
		prompt = m.styles.InputPrompt.Render("> ")
	}
	return prompt + m.input
}

func (m *Model) renderStatus() string {
	if m.status != "" {
		return m.styles.StatusError.Render(m.status)
	}
	help := "tab focus · j/k navigate · enter select/send · pgup older · q quit"
	return m.styles.Preview.Render(help)
}

func truncateTo(value string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
