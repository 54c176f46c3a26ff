package models

// Club is the lookup record for a student club. Clubs participate in
// conversations through a backing login user: the primary user when one is
// set, otherwise the highest-ranked officer.
type Club struct {
	// ID is the unique identifier for the club.
	ID string `json:"id"`

	// OrgID scopes the club to an organization.
	OrgID string `json:"org_id"`

	// Name is the club's display name.
	Name string `json:"name"`

	// AvatarURL is an optional avatar image reference.
	AvatarURL string `json:"avatar_url,omitempty"`

	// PrimaryUserID is the club's backing login user, empty when unset.
	PrimaryUserID string `json:"primary_user_id,omitempty"`
}

// Profile is the lookup record for a non-club member's display identity.
type Profile struct {
	// ID is the profile's user id.
	ID string `json:"id"`

	// OrgID is the profile's explicit org, empty when the profile carries
	// no org assignment.
	OrgID string `json:"org_id,omitempty"`

	// DisplayName is the user's display name.
	DisplayName string `json:"display_name"`

	// AvatarURL is an optional avatar image reference.
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Officer is a club officer row, used as the fallback when resolving a
// club's backing user.
type Officer struct {
	// ID is the unique identifier for the officer row.
	ID string `json:"id"`

	// ClubID is the club the officer belongs to.
	ClubID string `json:"club_id"`

	// UserID is the officer's login user.
	UserID string `json:"user_id"`

	// Position is the officer's title.
	Position string `json:"position,omitempty"`

	// Rank orders officers within a club; lower ranks first.
	Rank int `json:"rank"`
}
