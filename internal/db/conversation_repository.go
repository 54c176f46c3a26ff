package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// Conversation repository errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidConversation  = errors.New("invalid conversation")
)

// ConversationRepository handles conversation and membership persistence.
type ConversationRepository struct {
	db   *DB
	feed feed.Feed
}

// NewConversationRepository creates a ConversationRepository. The feed may
// be nil when change notifications are not needed.
func NewConversationRepository(db *DB, changeFeed feed.Feed) *ConversationRepository {
	return &ConversationRepository{db: db, feed: changeFeed}
}

// Insert creates a conversation row. Missing ID and timestamps are assigned.
func (r *ConversationRepository) Insert(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	if err := conv.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConversation, err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, org_id, category, subject, created_at, updated_at, last_message_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		conv.ID,
		conv.OrgID,
		string(conv.Category),
		conv.Subject,
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
		formatTimePtr(conv.LastMessageAt),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by id.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	convs, err := r.ByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, ErrConversationNotFound
	}
	conv := convs[0]
	return &conv, nil
}

// ByID batch-fetches conversation rows for the given ids. Missing ids are
// silently absent from the result.
func (r *ConversationRepository) ByID(ctx context.Context, ids []string) ([]models.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, category, subject, created_at, updated_at, last_message_at
		FROM conversations WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return convs, nil
}

// UpdateMetadata updates a conversation's subject and category and publishes
// a conversation update event.
func (r *ConversationRepository) UpdateMetadata(ctx context.Context, id, subject string, category models.Category) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET subject = ?, category = ?, updated_at = ? WHERE id = ?
	`, subject, string(category), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conversation rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}

	conv, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.feed != nil {
		r.feed.Publish(feed.ChangeEvent{
			Table:        feed.TableConversations,
			Op:           feed.OpUpdate,
			OrgID:        conv.OrgID,
			Conversation: conv,
		})
	}
	return nil
}

// touchActivity bumps updated_at and last_message_at after a message insert.
// Runs inside the message insert transaction; deliberately does NOT publish
// a conversation event, the message insert event already covers the change.
func (r *ConversationRepository) touchActivity(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ?, last_message_at = ? WHERE id = ?
	`, formatTime(at), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch conversation activity: %w", err)
	}
	return nil
}

// InsertMember creates a membership row.
func (r *ConversationRepository) InsertMember(ctx context.Context, member models.ConversationMember) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConversation, err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id, member_type, club_id)
		VALUES (?, ?, ?, ?)
	`, member.ConversationID, member.UserID, string(member.MemberType), member.ClubID)
	if err != nil {
		return fmt.Errorf("insert conversation member: %w", err)
	}
	return nil
}

// MemberConversationIDs returns the ids of conversations the user belongs
// to within the org.
func (r *ConversationRepository) MemberConversationIDs(ctx context.Context, orgID, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.conversation_id
		FROM conversation_members m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.user_id = ? AND c.org_id = ?
		ORDER BY m.conversation_id
	`, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("query member conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate member conversations: %w", err)
	}
	return ids, nil
}

// MembersByConversation batch-fetches all membership rows for the given
// conversations, keyed by conversation id.
func (r *ConversationRepository) MembersByConversation(ctx context.Context, ids []string) (map[string][]models.ConversationMember, error) {
	if len(ids) == 0 {
		return map[string][]models.ConversationMember{}, nil
	}

	query := fmt.Sprintf(`
		SELECT conversation_id, user_id, member_type, club_id
		FROM conversation_members WHERE conversation_id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query conversation members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]models.ConversationMember, len(ids))
	for rows.Next() {
		var member models.ConversationMember
		var memberType string
		if err := rows.Scan(&member.ConversationID, &member.UserID, &memberType, &member.ClubID); err != nil {
			return nil, fmt.Errorf("scan conversation member: %w", err)
		}
		member.MemberType = models.MemberType(memberType)
		members[member.ConversationID] = append(members[member.ConversationID], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation members: %w", err)
	}
	return members, nil
}

func scanConversation(rows *sql.Rows) (models.Conversation, error) {
	var conv models.Conversation
	var category, createdAt, updatedAt string
	var lastMessageAt sql.NullString

	if err := rows.Scan(&conv.ID, &conv.OrgID, &category, &conv.Subject, &createdAt, &updatedAt, &lastMessageAt); err != nil {
		return conv, fmt.Errorf("scan conversation: %w", err)
	}

	conv.Category = models.Category(category)
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	if lastMessageAt.Valid {
		t := parseTime(lastMessageAt.String)
		conv.LastMessageAt = &t
	}
	return conv, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// timeLayout pads fractional seconds to a fixed nine digits so the stored
// TEXT sorts lexicographically in timestamp order. RFC3339Nano trims
// trailing zeros, which breaks ORDER BY and range comparisons on the
// created_at columns.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
