package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// Message repository errors.
var (
	ErrInvalidMessage = errors.New("invalid message")
)

// MessageRepository handles message persistence and the unread aggregate.
type MessageRepository struct {
	db            *DB
	conversations *ConversationRepository
	feed          feed.Feed
}

// NewMessageRepository creates a MessageRepository.
func NewMessageRepository(db *DB, conversations *ConversationRepository, changeFeed feed.Feed) *MessageRepository {
	return &MessageRepository{db: db, conversations: conversations, feed: changeFeed}
}

// Insert appends a message. Missing ID and CreatedAt are store-assigned.
// The owning conversation's activity timestamps are bumped in the same
// transaction, and a message insert event is published on success.
func (r *MessageRepository) Insert(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	} else {
		msg.CreatedAt = msg.CreatedAt.UTC()
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMessage, err)
	}

	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, org_id, sender_id, sender_type, body, created_at, edited_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			msg.ID,
			msg.ConversationID,
			msg.OrgID,
			msg.SenderID,
			string(msg.SenderType),
			msg.Body,
			formatTime(msg.CreatedAt),
			formatTimePtr(msg.EditedAt),
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return r.conversations.touchActivity(ctx, tx, msg.ConversationID, msg.CreatedAt)
	})
	if err != nil {
		return err
	}

	if r.feed != nil {
		published := *msg
		r.feed.Publish(feed.ChangeEvent{
			Table:   feed.TableMessages,
			Op:      feed.OpInsert,
			OrgID:   msg.OrgID,
			Message: &published,
		})
	}
	return nil
}

// Page fetches one transcript page, newest first, offset/limit based.
func (r *MessageRepository) Page(ctx context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, org_id, sender_id, sender_type, body, created_at, edited_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query message page: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// Latest batch-fetches the single most recent message per conversation,
// keyed by conversation id.
func (r *MessageRepository) Latest(ctx context.Context, conversationIDs []string) (map[string]models.Message, error) {
	if len(conversationIDs) == 0 {
		return map[string]models.Message{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, conversation_id, org_id, sender_id, sender_type, body, created_at, edited_at
		FROM (
			SELECT m.*, ROW_NUMBER() OVER (
				PARTITION BY conversation_id
				ORDER BY created_at DESC, id DESC
			) AS rn
			FROM messages m
			WHERE conversation_id IN (%s)
		)
		WHERE rn = 1
	`, placeholders(len(conversationIDs)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(conversationIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query latest messages: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	latest := make(map[string]models.Message, len(msgs))
	for _, msg := range msgs {
		latest[msg.ConversationID] = msg
	}
	return latest, nil
}

// UnreadCount counts messages strictly after the read boundary that were
// not authored by the user. This is a live count by design; the directory
// tolerates one query per conversation here.
func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, userID string, after time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE conversation_id = ? AND sender_id != ? AND created_at > ?
	`, conversationID, userID, formatTime(after)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

// Count returns the total number of messages in a conversation.
func (r *MessageRepository) Count(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = ?
	`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		var senderType, createdAt string
		var editedAt sql.NullString
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.OrgID,
			&msg.SenderID,
			&senderType,
			&msg.Body,
			&createdAt,
			&editedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.SenderType = models.MemberType(senderType)
		msg.CreatedAt = parseTime(createdAt)
		if editedAt.Valid {
			t := parseTime(editedAt.String)
			msg.EditedAt = &t
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
