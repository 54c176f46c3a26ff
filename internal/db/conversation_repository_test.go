package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

func TestConversationInsertAndBatchFetch(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	store := NewStore(database, feed.NewMemoryFeed())

	conv := &models.Conversation{OrgID: "org-1", Category: models.CategoryClub, Subject: "budget"}
	if err := store.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("insert did not assign conversation ID")
	}

	convs, err := store.ConversationsByID(ctx, []string{conv.ID, "missing"})
	if err != nil {
		t.Fatalf("batch fetch: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if convs[0].Subject != "budget" || convs[0].Category != models.CategoryClub {
		t.Fatalf("unexpected row: %+v", convs[0])
	}
	if convs[0].LastMessageAt != nil {
		t.Fatal("new conversation should have nil last_message_at")
	}
}

func TestMemberConversationIDsScopedToOrg(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	store := NewStore(database, feed.NewMemoryFeed())
	seedConversation(t, store, "in-org", "org-1")
	seedConversation(t, store, "other-org", "org-2")

	for _, convID := range []string{"in-org", "other-org"} {
		err := store.InsertMember(ctx, models.ConversationMember{
			ConversationID: convID,
			UserID:         "user-1",
			MemberType:     models.MemberTypeAdmin,
		})
		if err != nil {
			t.Fatalf("insert member: %v", err)
		}
	}

	ids, err := store.MemberConversationIDs(ctx, "org-1", "user-1")
	if err != nil {
		t.Fatalf("member conversations: %v", err)
	}
	if len(ids) != 1 || ids[0] != "in-org" {
		t.Fatalf("expected [in-org], got %v", ids)
	}

	ids, err = store.MemberConversationIDs(ctx, "org-1", "nobody")
	if err != nil {
		t.Fatalf("member conversations for stranger: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty result, got %v", ids)
	}
}

func TestMembersByConversationBatch(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	store := NewStore(database, feed.NewMemoryFeed())
	seedConversation(t, store, "conv-1", "org-1")

	members := []models.ConversationMember{
		{ConversationID: "conv-1", UserID: "admin-1", MemberType: models.MemberTypeAdmin},
		{ConversationID: "conv-1", UserID: "club-user", MemberType: models.MemberTypeClub, ClubID: "club-1"},
	}
	for _, member := range members {
		if err := store.InsertMember(ctx, member); err != nil {
			t.Fatalf("insert member: %v", err)
		}
	}

	got, err := store.MembersByConversation(ctx, []string{"conv-1"})
	if err != nil {
		t.Fatalf("members by conversation: %v", err)
	}
	if len(got["conv-1"]) != 2 {
		t.Fatalf("expected 2 members, got %d", len(got["conv-1"]))
	}
}

func TestUpdateMetadataPublishesConversationEvent(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	changeFeed := feed.NewMemoryFeed()
	store := NewStore(database, changeFeed)
	seedConversation(t, store, "conv-1", "org-1")

	ch, cancel, err := changeFeed.Subscribe("test", feed.Filter{
		Tables: []feed.Table{feed.TableConversations},
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := store.Conversations.UpdateMetadata(ctx, "conv-1", "renamed", models.CategoryOther); err != nil {
		t.Fatalf("update metadata: %v", err)
	}

	select {
	case event := <-ch:
		if event.Op != feed.OpUpdate || event.Conversation == nil || event.Conversation.Subject != "renamed" {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("expected a conversation update event")
	}

	err = store.Conversations.UpdateMetadata(ctx, "missing", "x", models.CategoryOther)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestReceiptUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	store := NewStore(database, feed.NewMemoryFeed())
	seedConversation(t, store, "conv-1", "org-1")

	first := models.ReadReceipt{ConversationID: "conv-1", UserID: "user-1"}
	if err := store.UpsertReadReceipt(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	receipts, err := store.ReadReceipts(ctx, "user-1", []string{"conv-1"})
	if err != nil {
		t.Fatalf("read receipts: %v", err)
	}
	initial := receipts["conv-1"].LastReadAt
	if initial.IsZero() {
		t.Fatal("upsert did not assign last_read_at")
	}

	later := initial.Add(5 * time.Minute)
	second := models.ReadReceipt{ConversationID: "conv-1", UserID: "user-1", LastReadAt: later}
	if err := store.UpsertReadReceipt(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	receipts, err = store.ReadReceipts(ctx, "user-1", []string{"conv-1"})
	if err != nil {
		t.Fatalf("read receipts after upsert: %v", err)
	}
	if !receipts["conv-1"].LastReadAt.Equal(later) {
		t.Fatalf("expected %v, got %v", later, receipts["conv-1"].LastReadAt)
	}
}

func TestClubOfficersOrderedByRank(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	store := NewStore(database, feed.NewMemoryFeed())

	club := &models.Club{ID: "club-1", OrgID: "org-1", Name: "Robotics"}
	if err := store.Parties.InsertClub(ctx, club); err != nil {
		t.Fatalf("insert club: %v", err)
	}

	officers := []models.Officer{
		{ID: "o2", ClubID: "club-1", UserID: "treasurer", Position: "Treasurer", Rank: 2},
		{ID: "o1", ClubID: "club-1", UserID: "president", Position: "President", Rank: 1},
	}
	for i := range officers {
		if err := store.Parties.InsertOfficer(ctx, &officers[i]); err != nil {
			t.Fatalf("insert officer: %v", err)
		}
	}

	got, err := store.ClubOfficers(ctx, "club-1")
	if err != nil {
		t.Fatalf("club officers: %v", err)
	}
	if len(got) != 2 || got[0].UserID != "president" {
		t.Fatalf("expected president first, got %+v", got)
	}
}
