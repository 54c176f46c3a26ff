// Package models defines the typed row contracts shared by the messaging
// core and the conversation store adapters.
package models

import (
	"time"
)

// MemberType identifies how a conversation member is resolved for display.
// Club members resolve against the club record; everyone else against the
// member's profile.
type MemberType string

const (
	MemberTypeAdmin   MemberType = "admin"
	MemberTypeOfficer MemberType = "officer"
	MemberTypeClub    MemberType = "club"
	MemberTypeOther   MemberType = "other"
)

// Valid reports whether the member type is one of the known values.
func (m MemberType) Valid() bool {
	switch m {
	case MemberTypeAdmin, MemberTypeOfficer, MemberTypeClub, MemberTypeOther:
		return true
	}
	return false
}

// Category tags a conversation with the kind of counterpart it was opened
// against.
type Category string

const (
	CategoryClub    Category = "club"
	CategoryOfficer Category = "officer"
	CategoryAdmin   Category = "admin"
	CategoryOther   Category = "other"
	CategoryDM      Category = "dm"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryClub, CategoryOfficer, CategoryAdmin, CategoryOther, CategoryDM:
		return true
	}
	return false
}

// Conversation identifies a communication channel between two or more
// parties, scoped to an org. Exactly one conversation is expected per
// (org, unordered participant pair); the uniqueness is enforced by a
// lookup-before-create check, not by the store.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string `json:"id"`

	// OrgID scopes the conversation to an organization.
	OrgID string `json:"org_id"`

	// Category tags the kind of counterpart.
	Category Category `json:"category"`

	// Subject is an optional free-text subject line.
	Subject string `json:"subject,omitempty"`

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the conversation row last changed.
	UpdatedAt time.Time `json:"updated_at"`

	// LastMessageAt is the time of the newest message, nil when the
	// conversation has no messages yet.
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// ActivityTime is the ordering key for directory listings: the newest
// message time when one exists, otherwise the row's update time.
func (c Conversation) ActivityTime() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.UpdatedAt
}

// Validate checks required conversation fields.
func (c *Conversation) Validate() error {
	var errs ValidationErrors
	if c.ID == "" {
		errs.AddMessage("id", "is required")
	}
	if c.OrgID == "" {
		errs.AddMessage("org_id", "is required")
	}
	if !c.Category.Valid() {
		errs.AddMessage("category", "unknown category "+string(c.Category))
	}
	return errs.Err()
}

// ConversationMember is the join row tying a user to a conversation.
// Members are created with the conversation and never mutated.
type ConversationMember struct {
	// ConversationID is the conversation this membership belongs to.
	ConversationID string `json:"conversation_id"`

	// UserID is the member's login user.
	UserID string `json:"user_id"`

	// MemberType determines display resolution for this member.
	MemberType MemberType `json:"member_type"`

	// ClubID is set only for club members and points at the club record
	// the member represents.
	ClubID string `json:"club_id,omitempty"`
}

// Validate checks required membership fields.
func (m *ConversationMember) Validate() error {
	var errs ValidationErrors
	if m.ConversationID == "" {
		errs.AddMessage("conversation_id", "is required")
	}
	if m.UserID == "" {
		errs.AddMessage("user_id", "is required")
	}
	if !m.MemberType.Valid() {
		errs.AddMessage("member_type", "unknown member type "+string(m.MemberType))
	}
	if m.MemberType == MemberTypeClub && m.ClubID == "" {
		errs.AddMessage("club_id", "is required for club members")
	}
	return errs.Err()
}
