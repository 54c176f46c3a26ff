package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/internal/models"
)

func newTestSession(t *testing.T, store *fakeStore) *Session {
	t.Helper()
	session, err := NewSession(SessionConfig{
		Store:    store,
		OrgID:    "org-1",
		UserID:   "admin-1",
		SelfType: models.MemberTypeAdmin,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

// seedClubConversation creates the canonical fixture: admin-1 in a
// conversation with club "Robotics", whose backing user is robotics-user.
func seedClubConversation(store *fakeStore) {
	store.clubs["club-robotics"] = models.Club{
		ID:            "club-robotics",
		OrgID:         "org-1",
		Name:          "Robotics",
		PrimaryUserID: "robotics-user",
	}
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", OrgID: "org-1", DisplayName: "Dana Admin"}
	store.profiles["robotics-user"] = models.Profile{ID: "robotics-user", OrgID: "org-1", DisplayName: "Robotics Account"}

	store.addConversation("conv-robotics", "org-1", models.CategoryClub)
	store.addMember(models.ConversationMember{
		ConversationID: "conv-robotics", UserID: "admin-1", MemberType: models.MemberTypeAdmin,
	})
	store.addMember(models.ConversationMember{
		ConversationID: "conv-robotics", UserID: "robotics-user",
		MemberType: models.MemberTypeClub, ClubID: "club-robotics",
	})
}

func TestFetchSummariesEmptyMembership(t *testing.T) {
	store := newFakeStore()
	session := newTestSession(t, store)

	summaries, err := session.FetchSummaries(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, summaries)
}

func TestFetchSummariesResolvesClubTitleAndUnread(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedClubConversation(store)
	store.addMessage("conv-robotics", "robotics-user", "meeting at 5?")

	session := newTestSession(t, store)
	summaries, err := session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	require.Equal(t, "Robotics", summary.Title)
	require.Equal(t, "meeting at 5?", summary.Preview)
	require.Equal(t, 1, summary.Unread)
}

func TestFetchSummariesOrdersByActivityDescending(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedClubConversation(store)

	store.profiles["officer-1"] = models.Profile{ID: "officer-1", OrgID: "org-1", DisplayName: "Olive Officer"}
	store.addConversation("conv-officer", "org-1", models.CategoryOfficer)
	store.addMember(models.ConversationMember{
		ConversationID: "conv-officer", UserID: "admin-1", MemberType: models.MemberTypeAdmin,
	})
	store.addMember(models.ConversationMember{
		ConversationID: "conv-officer", UserID: "officer-1", MemberType: models.MemberTypeOfficer,
	})

	store.addMessage("conv-robotics", "robotics-user", "first")
	store.addMessage("conv-officer", "officer-1", "second, newer")

	session := newTestSession(t, store)
	summaries, err := session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "conv-officer", summaries[0].ID())
	require.Equal(t, "conv-robotics", summaries[1].ID())
}

func TestFetchSummariesSearchFilter(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedClubConversation(store)

	store.profiles["officer-1"] = models.Profile{ID: "officer-1", OrgID: "org-1", DisplayName: "Acme Liaison"}
	store.addConversation("conv-officer", "org-1", models.CategoryOfficer)
	store.addMember(models.ConversationMember{
		ConversationID: "conv-officer", UserID: "admin-1", MemberType: models.MemberTypeAdmin,
	})
	store.addMember(models.ConversationMember{
		ConversationID: "conv-officer", UserID: "officer-1", MemberType: models.MemberTypeOfficer,
	})

	session := newTestSession(t, store)

	summaries, err := session.FetchSummaries(ctx, "ACME")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Acme Liaison", summaries[0].Title)

	// Preview text matches too.
	store.addMessage("conv-robotics", "robotics-user", "acme sponsorship update")
	summaries, err = session.FetchSummaries(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Empty search returns all.
	summaries, err = session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
}

func TestFetchSummariesFailureKeepsPreviousList(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedClubConversation(store)

	session := newTestSession(t, store)
	_, err := session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Len(t, session.Summaries(), 1)

	store.failOn("LatestMessages", errors.New("backend down"))
	_, err = session.FetchSummaries(ctx, "")
	require.Error(t, err)

	// Stale-but-present beats blanking.
	require.Len(t, session.Summaries(), 1)
}

func TestMarkConversationReadZeroesUnread(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	seedClubConversation(store)
	store.addMessage("conv-robotics", "robotics-user", "one")
	store.addMessage("conv-robotics", "robotics-user", "two")

	session := newTestSession(t, store)
	summaries, err := session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, summaries[0].Unread)

	require.NoError(t, session.MarkConversationRead(ctx, "conv-robotics", time.Time{}))
	require.Equal(t, 0, session.Summaries()[0].Unread)

	// The receipt boundary holds on the next full refresh as well.
	summaries, err = session.FetchSummaries(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 0, summaries[0].Unread)

	// Redundant calls are safe no-ops.
	require.NoError(t, session.MarkConversationRead(ctx, "conv-robotics", time.Time{}))
}

func TestResolveOrgIDPrecedence(t *testing.T) {
	pref := staticPref("org-from-pref")

	require.Equal(t, "org-from-profile", ResolveOrgID(&models.Profile{OrgID: "org-from-profile"}, pref))
	require.Equal(t, "org-from-pref", ResolveOrgID(&models.Profile{}, pref))
	require.Equal(t, "org-from-pref", ResolveOrgID(nil, pref))
	require.Equal(t, DefaultOrgID, ResolveOrgID(nil, staticPref("")))
	require.Equal(t, DefaultOrgID, ResolveOrgID(nil, nil))
}

type staticPref string

func (p staticPref) OrgID() string { return string(p) }
