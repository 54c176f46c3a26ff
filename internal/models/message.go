package models

import (
	"strings"
	"time"
)

// Message is a single transcript entry. Messages are append-only and
// immutable once stored; EditedAt exists in the row shape but no edit flow
// writes it.
type Message struct {
	// ID is the unique identifier for the message.
	ID string `json:"id"`

	// ConversationID is the conversation the message belongs to.
	ConversationID string `json:"conversation_id"`

	// OrgID scopes the message to an organization.
	OrgID string `json:"org_id"`

	// SenderID is the authoring user.
	SenderID string `json:"sender_id"`

	// SenderType is the author's member type at send time.
	SenderType MemberType `json:"sender_type"`

	// Body is the message text.
	Body string `json:"body"`

	// CreatedAt is the store-assigned creation timestamp and the primary
	// transcript ordering key, with ID as tiebreak.
	CreatedAt time.Time `json:"created_at"`

	// EditedAt is when the message was last edited, if ever.
	EditedAt *time.Time `json:"edited_at,omitempty"`
}

// Before reports whether m orders before other in a transcript:
// by CreatedAt, then by ID for equal timestamps.
func (m Message) Before(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}

// Validate checks required message fields.
func (m *Message) Validate() error {
	var errs ValidationErrors
	if m.ConversationID == "" {
		errs.AddMessage("conversation_id", "is required")
	}
	if m.OrgID == "" {
		errs.AddMessage("org_id", "is required")
	}
	if m.SenderID == "" {
		errs.AddMessage("sender_id", "is required")
	}
	if strings.TrimSpace(m.Body) == "" {
		errs.AddMessage("body", "is required")
	}
	return errs.Err()
}

// ReadReceipt tracks a user's read position in one conversation. One row per
// (user, conversation), created lazily and upserted on every read; never
// deleted. Unread counting is defined as messages with
// CreatedAt > LastReadAt not authored by the user.
type ReadReceipt struct {
	// ConversationID is the conversation the receipt covers.
	ConversationID string `json:"conversation_id"`

	// UserID is the reading user.
	UserID string `json:"user_id"`

	// LastReadAt is the read-position boundary.
	LastReadAt time.Time `json:"last_read_at"`
}

// Validate checks required receipt fields.
func (r *ReadReceipt) Validate() error {
	var errs ValidationErrors
	if r.ConversationID == "" {
		errs.AddMessage("conversation_id", "is required")
	}
	if r.UserID == "" {
		errs.AddMessage("user_id", "is required")
	}
	return errs.Err()
}
