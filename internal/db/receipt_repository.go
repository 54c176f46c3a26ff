package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// Receipt repository errors.
var (
	ErrInvalidReceipt = errors.New("invalid read receipt")
)

// ReceiptRepository handles per-user read positions.
type ReceiptRepository struct {
	db   *DB
	feed feed.Feed
}

// NewReceiptRepository creates a ReceiptRepository.
func NewReceiptRepository(db *DB, changeFeed feed.Feed) *ReceiptRepository {
	return &ReceiptRepository{db: db, feed: changeFeed}
}

// Upsert writes the read position for (conversation, user), creating the
// row lazily on first read. Safe to call redundantly.
func (r *ReceiptRepository) Upsert(ctx context.Context, receipt models.ReadReceipt) error {
	if err := receipt.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidReceipt, err)
	}
	if receipt.LastReadAt.IsZero() {
		receipt.LastReadAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_reads (conversation_id, user_id, last_read_at)
		VALUES (?, ?, ?)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_at = excluded.last_read_at
	`, receipt.ConversationID, receipt.UserID, formatTime(receipt.LastReadAt))
	if err != nil {
		return fmt.Errorf("upsert read receipt: %w", err)
	}
	return nil
}

// ForUser batch-fetches the user's receipts for the given conversations,
// keyed by conversation id. Conversations never read are absent.
func (r *ReceiptRepository) ForUser(ctx context.Context, userID string, conversationIDs []string) (map[string]models.ReadReceipt, error) {
	if len(conversationIDs) == 0 {
		return map[string]models.ReadReceipt{}, nil
	}

	query := fmt.Sprintf(`
		SELECT conversation_id, user_id, last_read_at
		FROM message_reads
		WHERE user_id = ? AND conversation_id IN (%s)
	`, placeholders(len(conversationIDs)))

	args := append([]any{userID}, toArgs(conversationIDs)...)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query read receipts: %w", err)
	}
	defer rows.Close()

	receipts := make(map[string]models.ReadReceipt, len(conversationIDs))
	for rows.Next() {
		var receipt models.ReadReceipt
		var lastReadAt string
		if err := rows.Scan(&receipt.ConversationID, &receipt.UserID, &lastReadAt); err != nil {
			return nil, fmt.Errorf("scan read receipt: %w", err)
		}
		receipt.LastReadAt = parseTime(lastReadAt)
		receipts[receipt.ConversationID] = receipt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate read receipts: %w", err)
	}
	return receipts, nil
}
