package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/internal/db"
	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/messaging"
	"github.com/orgdesk/orgdesk/internal/models"
)

func setupSession(t *testing.T) *messaging.Session {
	t.Helper()
	ctx := context.Background()

	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = database.MigrateUp(ctx)
	require.NoError(t, err)

	store := db.NewStore(database, feed.NewMemoryFeed())

	require.NoError(t, store.Parties.InsertProfile(ctx, &models.Profile{
		ID: "admin-1", OrgID: "org-1", DisplayName: "Dana Admin",
	}))
	require.NoError(t, store.Parties.InsertClub(ctx, &models.Club{
		ID: "club-robotics", OrgID: "org-1", Name: "Robotics", PrimaryUserID: "robotics-user",
	}))
	require.NoError(t, store.Parties.InsertProfile(ctx, &models.Profile{
		ID: "robotics-user", OrgID: "org-1", DisplayName: "Robotics Account",
	}))

	conv := &models.Conversation{OrgID: "org-1", Category: models.CategoryClub}
	require.NoError(t, store.InsertConversation(ctx, conv))
	require.NoError(t, store.InsertMember(ctx, models.ConversationMember{
		ConversationID: conv.ID, UserID: "admin-1", MemberType: models.MemberTypeAdmin,
	}))
	require.NoError(t, store.InsertMember(ctx, models.ConversationMember{
		ConversationID: conv.ID, UserID: "robotics-user",
		MemberType: models.MemberTypeClub, ClubID: "club-robotics",
	}))
	require.NoError(t, store.InsertMessage(ctx, &models.Message{
		ConversationID: conv.ID, OrgID: "org-1",
		SenderID: "robotics-user", SenderType: models.MemberTypeClub,
		Body: "workshop booked",
	}))

	session, err := messaging.NewSession(messaging.SessionConfig{
		Store:  store,
		OrgID:  "org-1",
		UserID: "admin-1",
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	_, err = session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	return session
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestViewShowsDirectory(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{ShowTimestamps: true})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	require.Contains(t, view, "Robotics")
	require.Contains(t, view, "1")
	require.Contains(t, view, "workshop booked")
}

func TestListNavigationClamps(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	// One conversation: cursor stays put in both directions.
	m.Update(keyMsg("j"))
	require.Equal(t, 0, m.cursor)
	m.Update(keyMsg("k"))
	require.Equal(t, 0, m.cursor)
}

func TestEnterOpensConversation(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)

	msg := cmd()
	opened, ok := msg.(conversationOpenedMsg)
	require.True(t, ok)
	require.NoError(t, opened.err)

	m.Update(msg)
	require.Equal(t, focusInput, m.focus)
	require.Equal(t, opened.id, session.ActiveConversationID())

	// Opening marked the conversation read.
	require.Equal(t, 0, session.UnreadTotal())
}

func TestInputTypingAndSend(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	_, cmd := m.Update(keyMsg("enter"))
	m.Update(cmd())

	for _, r := range "hello" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	require.Equal(t, "hello", m.input)

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "hell", m.input)

	_, sendCmd := m.Update(keyMsg("enter"))
	require.NotNil(t, sendCmd)
	sent := sendCmd()
	result, ok := sent.(messageSentMsg)
	require.True(t, ok)
	require.NoError(t, result.err)

	m.Update(sent)
	require.Empty(t, m.input)
	require.Contains(t, m.View(), "hell")
}

func TestSendFailureKeepsInput(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	// No conversation selected: sending fails and the text survives.
	m.focus = focusInput
	for _, r := range "draft" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := m.Update(keyMsg("enter"))
	m.Update(cmd())

	require.Equal(t, "draft", m.input)
	require.NotEmpty(t, m.status)
}

func TestEscReturnsToList(t *testing.T) {
	session := setupSession(t)
	m := NewModel(session, Config{})

	m.focus = focusInput
	m.Update(keyMsg("esc"))
	require.Equal(t, focusList, m.focus)
}
