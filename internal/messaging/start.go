package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/models"
)

// StartConversation opens (or reuses) a conversation with a target: a club
// or an individual user. An existing conversation with the same counterpart
// is reused; otherwise a new Conversation plus both member rows are created
// as two sequential writes with no compensating rollback (a failure between
// them can orphan the conversation row), an initial read receipt is
// upserted, and the directory is refreshed with the new conversation
// selected.
func (s *Session) StartConversation(ctx context.Context, targetType models.MemberType, targetID string) (*models.Conversation, error) {
	target, err := s.resolveTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if target.userID == s.userID {
		return nil, ErrSelfConversation
	}

	existing, err := s.findExistingConversation(ctx, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.SelectConversation(ctx, existing.ID); err != nil {
			return nil, err
		}
		return existing, nil
	}

	conv := &models.Conversation{
		OrgID:    s.orgID,
		Category: target.category,
	}
	if err := s.store.InsertConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	self := models.ConversationMember{
		ConversationID: conv.ID,
		UserID:         s.userID,
		MemberType:     s.selfType,
	}
	if err := s.store.InsertMember(ctx, self); err != nil {
		return nil, fmt.Errorf("create conversation membership: %w", err)
	}
	other := models.ConversationMember{
		ConversationID: conv.ID,
		UserID:         target.userID,
		MemberType:     target.memberType,
		ClubID:         target.clubID,
	}
	if err := s.store.InsertMember(ctx, other); err != nil {
		return nil, fmt.Errorf("create conversation membership: %w", err)
	}

	err = s.store.UpsertReadReceipt(ctx, models.ReadReceipt{
		ConversationID: conv.ID,
		UserID:         s.userID,
		LastReadAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize read receipt: %w", err)
	}

	s.refreshDirectory(ctx)
	if err := s.SelectConversation(ctx, conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}

// resolvedTarget is the counterpart of a new conversation after backing-user
// resolution.
type resolvedTarget struct {
	userID     string
	memberType models.MemberType
	clubID     string
	category   models.Category
}

// resolveTarget maps a (type, id) target to its backing login user. A club
// resolves to its primary user, falling back to the highest-ranked officer;
// a club with neither fails with ErrTargetHasNoLoginUser.
func (s *Session) resolveTarget(ctx context.Context, targetType models.MemberType, targetID string) (resolvedTarget, error) {
	var target resolvedTarget

	if targetType == models.MemberTypeClub {
		club, err := s.store.ClubByID(ctx, targetID)
		if err != nil {
			return target, fmt.Errorf("resolve club: %w", err)
		}
		userID := club.PrimaryUserID
		if userID == "" {
			officers, err := s.store.ClubOfficers(ctx, club.ID)
			if err != nil {
				return target, fmt.Errorf("resolve club officers: %w", err)
			}
			if len(officers) == 0 {
				return target, ErrTargetHasNoLoginUser
			}
			userID = officers[0].UserID
		}
		return resolvedTarget{
			userID:     userID,
			memberType: models.MemberTypeClub,
			clubID:     club.ID,
			category:   models.CategoryClub,
		}, nil
	}

	if !targetType.Valid() {
		return target, fmt.Errorf("unknown target type %q", targetType)
	}

	profile, err := s.store.ProfileByID(ctx, targetID)
	if err != nil {
		return target, fmt.Errorf("resolve profile: %w", err)
	}
	return resolvedTarget{
		userID:     profile.ID,
		memberType: targetType,
		category:   categoryForMemberType(targetType),
	}, nil
}

// findExistingConversation intersects the user's conversation memberships
// with a membership match on the resolved target, so exactly one
// conversation exists per counterpart pair. The check is lookup-then-insert
// with no store-level uniqueness, so concurrent creators can still race;
// the engine preserves that behavior rather than inventing locking the
// backend does not have.
func (s *Session) findExistingConversation(ctx context.Context, target resolvedTarget) (*models.Conversation, error) {
	ids, err := s.store.MemberConversationIDs(ctx, s.orgID, s.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch membership: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	members, err := s.store.MembersByConversation(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}

	for _, id := range ids {
		for _, member := range members[id] {
			if member.UserID == s.userID {
				continue
			}
			if target.clubID != "" {
				if member.MemberType == models.MemberTypeClub && member.ClubID == target.clubID {
					return s.conversationByID(ctx, id)
				}
				continue
			}
			if member.UserID == target.userID {
				return s.conversationByID(ctx, id)
			}
		}
	}
	return nil, nil
}

func (s *Session) conversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	convs, err := s.store.ConversationsByID(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if len(convs) == 0 {
		return nil, fmt.Errorf("conversation %s missing", id)
	}
	conv := convs[0]
	return &conv, nil
}

func categoryForMemberType(memberType models.MemberType) models.Category {
	switch memberType {
	case models.MemberTypeAdmin:
		return models.CategoryAdmin
	case models.MemberTypeOfficer:
		return models.CategoryOfficer
	case models.MemberTypeClub:
		return models.CategoryClub
	default:
		return models.CategoryOther
	}
}
