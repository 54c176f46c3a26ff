package messaging

import (
	"github.com/orgdesk/orgdesk/internal/models"
)

// DefaultOrgID is the hard-coded fallback scope used when neither the
// profile nor the local preference names an org.
const DefaultOrgID = "default"

// OrgPreference is the locally persisted org fallback. prefs.Store
// satisfies it.
type OrgPreference interface {
	OrgID() string
}

// ResolveOrgID determines the acting user's org scope. Precedence: the
// profile's explicit org, then the persisted preference, then
// DefaultOrgID. It never fails; most dashboard data lacks a strict org
// foreign key, so resolution degrades instead of erroring.
func ResolveOrgID(profile *models.Profile, pref OrgPreference) string {
	if profile != nil && profile.OrgID != "" {
		return profile.OrgID
	}
	if pref != nil {
		if orgID := pref.OrgID(); orgID != "" {
			return orgID
		}
	}
	return DefaultOrgID
}
