package models

import (
	"time"
)

// ConversationSummary is the derived directory read model: a conversation
// joined with its newest message, the viewing user's unread count, and the
// resolved display identity of the other party. It is recomputed on every
// directory refresh and patched incrementally by the reconciler; it is never
// persisted.
type ConversationSummary struct {
	// Conversation is the underlying conversation row.
	Conversation Conversation `json:"conversation"`

	// Title is the resolved display name of the other party.
	Title string `json:"title"`

	// AvatarURL is the other party's resolved avatar, if any.
	AvatarURL string `json:"avatar_url,omitempty"`

	// Preview is the body of the newest message, empty when the
	// conversation has no messages.
	Preview string `json:"preview,omitempty"`

	// PreviewAt is the newest message's timestamp.
	PreviewAt time.Time `json:"preview_at,omitzero"`

	// Unread is the viewing user's unread count.
	Unread int `json:"unread"`

	// Members are the conversation's membership rows, cached so the
	// reconciler can patch without refetching.
	Members []ConversationMember `json:"members,omitempty"`
}

// ID is the summarized conversation's id.
func (s ConversationSummary) ID() string {
	return s.Conversation.ID
}

// ActivityTime is the summary's directory ordering key.
func (s ConversationSummary) ActivityTime() time.Time {
	return s.Conversation.ActivityTime()
}
