// Package messaging implements the client-side conversation state engine:
// org-scope resolution, the conversation directory, the transcript pager,
// and the live update reconciler. It depends only on the ConversationStore
// port and a change feed; no backend specifics leak past this boundary.
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// Messaging errors surfaced to callers.
var (
	ErrTargetHasNoLoginUser = errors.New("target has no login user")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrSendInFlight         = errors.New("a send is already in flight")
	ErrNoActiveConversation = errors.New("no conversation selected")
	ErrTranscriptBusy       = errors.New("a transcript page is already loading")
)

// ConversationStore is the engine's only backend contract: row-oriented
// reads and writes over the four conversation collections plus the club,
// profile, and officer lookups, and the change-feed primitive.
type ConversationStore interface {
	// MemberConversationIDs returns the conversations the user belongs to
	// within the org. An empty result is a valid state, not an error.
	MemberConversationIDs(ctx context.Context, orgID, userID string) ([]string, error)

	// ConversationsByID batch-fetches conversation rows.
	ConversationsByID(ctx context.Context, ids []string) ([]models.Conversation, error)

	// MembersByConversation batch-fetches membership rows keyed by
	// conversation id.
	MembersByConversation(ctx context.Context, ids []string) (map[string][]models.ConversationMember, error)

	// InsertConversation creates a conversation row, assigning missing
	// id and timestamps.
	InsertConversation(ctx context.Context, conv *models.Conversation) error

	// InsertMember creates a membership row.
	InsertMember(ctx context.Context, member models.ConversationMember) error

	// LatestMessages batch-fetches the newest message per conversation.
	LatestMessages(ctx context.Context, conversationIDs []string) (map[string]models.Message, error)

	// MessagesPage fetches messages newest-first with offset/limit.
	MessagesPage(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error)

	// InsertMessage appends a message, assigning missing id and
	// created-at on the stored row.
	InsertMessage(ctx context.Context, msg *models.Message) error

	// UnreadCount counts messages strictly after the boundary not
	// authored by the user.
	UnreadCount(ctx context.Context, conversationID, userID string, after time.Time) (int, error)

	// ReadReceipts batch-fetches the user's receipts keyed by
	// conversation id.
	ReadReceipts(ctx context.Context, userID string, conversationIDs []string) (map[string]models.ReadReceipt, error)

	// UpsertReadReceipt writes the user's read position.
	UpsertReadReceipt(ctx context.Context, receipt models.ReadReceipt) error

	// ClubsByID batch-fetches clubs keyed by id.
	ClubsByID(ctx context.Context, ids []string) (map[string]models.Club, error)

	// ClubByID fetches a single club.
	ClubByID(ctx context.Context, id string) (*models.Club, error)

	// ProfilesByID batch-fetches profiles keyed by user id.
	ProfilesByID(ctx context.Context, ids []string) (map[string]models.Profile, error)

	// ProfileByID fetches a single profile.
	ProfileByID(ctx context.Context, id string) (*models.Profile, error)

	// ClubOfficers lists a club's officers, highest rank first.
	ClubOfficers(ctx context.Context, clubID string) ([]models.Officer, error)

	// ChangeFeed exposes the subscribe-to-changes primitive.
	ChangeFeed() feed.Feed
}
