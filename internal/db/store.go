package db

import (
	"context"
	"time"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// Store bundles the repositories into the conversation-store surface the
// messaging core consumes. It satisfies messaging.ConversationStore.
type Store struct {
	db         *DB
	changeFeed feed.Feed

	Conversations *ConversationRepository
	Messages      *MessageRepository
	Receipts      *ReceiptRepository
	Parties       *PartyRepository
}

// NewStore wires the repositories over one database and change feed.
func NewStore(database *DB, changeFeed feed.Feed) *Store {
	conversations := NewConversationRepository(database, changeFeed)
	return &Store{
		db:            database,
		changeFeed:    changeFeed,
		Conversations: conversations,
		Messages:      NewMessageRepository(database, conversations, changeFeed),
		Receipts:      NewReceiptRepository(database, changeFeed),
		Parties:       NewPartyRepository(database),
	}
}

func (s *Store) MemberConversationIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	return s.Conversations.MemberConversationIDs(ctx, orgID, userID)
}

func (s *Store) ConversationsByID(ctx context.Context, ids []string) ([]models.Conversation, error) {
	return s.Conversations.ByID(ctx, ids)
}

func (s *Store) MembersByConversation(ctx context.Context, ids []string) (map[string][]models.ConversationMember, error) {
	return s.Conversations.MembersByConversation(ctx, ids)
}

func (s *Store) InsertConversation(ctx context.Context, conv *models.Conversation) error {
	return s.Conversations.Insert(ctx, conv)
}

func (s *Store) InsertMember(ctx context.Context, member models.ConversationMember) error {
	return s.Conversations.InsertMember(ctx, member)
}

func (s *Store) LatestMessages(ctx context.Context, conversationIDs []string) (map[string]models.Message, error) {
	return s.Messages.Latest(ctx, conversationIDs)
}

func (s *Store) MessagesPage(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	return s.Messages.Page(ctx, conversationID, offset, limit)
}

func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) error {
	return s.Messages.Insert(ctx, msg)
}

func (s *Store) UnreadCount(ctx context.Context, conversationID, userID string, after time.Time) (int, error) {
	return s.Messages.UnreadCount(ctx, conversationID, userID, after)
}

func (s *Store) ReadReceipts(ctx context.Context, userID string, conversationIDs []string) (map[string]models.ReadReceipt, error) {
	return s.Receipts.ForUser(ctx, userID, conversationIDs)
}

func (s *Store) UpsertReadReceipt(ctx context.Context, receipt models.ReadReceipt) error {
	return s.Receipts.Upsert(ctx, receipt)
}

func (s *Store) ClubsByID(ctx context.Context, ids []string) (map[string]models.Club, error) {
	return s.Parties.ClubsByID(ctx, ids)
}

func (s *Store) ClubByID(ctx context.Context, id string) (*models.Club, error) {
	return s.Parties.ClubByID(ctx, id)
}

func (s *Store) ProfilesByID(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	return s.Parties.ProfilesByID(ctx, ids)
}

func (s *Store) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	return s.Parties.ProfileByID(ctx, id)
}

func (s *Store) ClubOfficers(ctx context.Context, clubID string) ([]models.Officer, error) {
	return s.Parties.ClubOfficers(ctx, clubID)
}

func (s *Store) ChangeFeed() feed.Feed {
	return s.changeFeed
}
