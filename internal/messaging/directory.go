package messaging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/orgdesk/orgdesk/internal/models"
)

// FetchSummaries refreshes the conversation directory: one batched pass
// over conversations, members, latest messages, receipts, and display
// lookups, plus one live unread count per conversation. Any underlying
// failure aborts the whole call and leaves the previous summary list in
// place. The search term filters the returned and retained list; empty
// search returns everything.
func (s *Session) FetchSummaries(ctx context.Context, search string) ([]models.ConversationSummary, error) {
	summaries, err := s.buildSummaries(ctx, search)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.summaries = summaries
	s.search = search
	s.mu.Unlock()

	return cloneSummaries(summaries), nil
}

func (s *Session) buildSummaries(ctx context.Context, search string) ([]models.ConversationSummary, error) {
	ids, err := s.store.MemberConversationIDs(ctx, s.orgID, s.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch membership: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	convs, err := s.store.ConversationsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch conversations: %w", err)
	}
	members, err := s.store.MembersByConversation(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	latest, err := s.store.LatestMessages(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch latest messages: %w", err)
	}
	receipts, err := s.store.ReadReceipts(ctx, s.userID, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch read receipts: %w", err)
	}

	// Resolve display identities with two batched lookups over the
	// distinct club and user ids; never one query per conversation.
	clubIDs, userIDs := collectPartyIDs(members, s.userID)
	clubs, err := s.store.ClubsByID(ctx, clubIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch clubs: %w", err)
	}
	profiles, err := s.store.ProfilesByID(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{
			Conversation: conv,
			Members:      members[conv.ID],
		}
		summary.Title, summary.AvatarURL = resolveOtherParty(members[conv.ID], s.userID, clubs, profiles)

		if last, ok := latest[conv.ID]; ok {
			summary.Preview = last.Body
			summary.PreviewAt = last.CreatedAt
		}

		// Exact unread counts need a live count per conversation; this
		// is the one tolerated O(N) query section.
		var after time.Time
		if receipt, ok := receipts[conv.ID]; ok {
			after = receipt.LastReadAt
		}
		unread, err := s.store.UnreadCount(ctx, conv.ID, s.userID, after)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		summary.Unread = unread

		summaries = append(summaries, summary)
	}

	summaries = filterSummaries(summaries, search)
	sortSummaries(summaries)
	return summaries, nil
}

// MarkConversationRead upserts the user's read receipt and zeroes the
// conversation's local unread count. Safe to call redundantly.
func (s *Session) MarkConversationRead(ctx context.Context, conversationID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	err := s.store.UpsertReadReceipt(ctx, models.ReadReceipt{
		ConversationID: conversationID,
		UserID:         s.userID,
		LastReadAt:     at,
	})
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}

	s.mu.Lock()
	if idx := summaryIndex(s.summaries, conversationID); idx >= 0 {
		s.summaries[idx].Unread = 0
	}
	s.mu.Unlock()
	return nil
}

// applyMessageLocked merges one message into the directory (and the active
// transcript) exactly as the reconciler does; the optimistic send path uses
// the same function so both insertion paths share merge semantics. Returns
// false when the conversation is unknown locally, in which case the caller
// must trigger a full refresh instead of hand-patching. markRead reports
// whether the caller must upsert the read receipt after releasing the lock.
func (s *Session) applyMessageLocked(msg models.Message) (known bool, markRead bool) {
	idx := summaryIndex(s.summaries, msg.ConversationID)
	if idx < 0 {
		return false, false
	}

	isActive := s.transcript.conversationID == msg.ConversationID
	isOwn := msg.SenderID == s.userID

	summary := s.summaries[idx]
	summary.Preview = msg.Body
	summary.PreviewAt = msg.CreatedAt
	at := msg.CreatedAt
	summary.Conversation.LastMessageAt = &at
	summary.Conversation.UpdatedAt = msg.CreatedAt
	if isActive || isOwn {
		summary.Unread = 0
	} else {
		summary.Unread++
	}

	// Move to the front: most-recent-first ordering.
	copy(s.summaries[1:idx+1], s.summaries[:idx])
	s.summaries[0] = summary

	if isActive {
		s.transcript.append(msg)
	}

	// An active conversation never accrues unread while open, including
	// for the message just appended.
	return true, isActive
}

func summaryIndex(summaries []models.ConversationSummary, conversationID string) int {
	for i := range summaries {
		if summaries[i].ID() == conversationID {
			return i
		}
	}
	return -1
}

func collectPartyIDs(members map[string][]models.ConversationMember, selfID string) (clubIDs, userIDs []string) {
	clubSet := make(map[string]struct{})
	userSet := make(map[string]struct{})
	for _, convMembers := range members {
		for _, member := range convMembers {
			if member.UserID == selfID {
				continue
			}
			if member.MemberType == models.MemberTypeClub && member.ClubID != "" {
				clubSet[member.ClubID] = struct{}{}
			} else {
				userSet[member.UserID] = struct{}{}
			}
		}
	}
	for id := range clubSet {
		clubIDs = append(clubIDs, id)
	}
	for id := range userSet {
		userIDs = append(userIDs, id)
	}
	sort.Strings(clubIDs)
	sort.Strings(userIDs)
	return clubIDs, userIDs
}

// resolveOtherParty picks the first member that is not the viewing user and
// resolves its display identity: club members against the club record,
// everyone else against the profile record.
func resolveOtherParty(
	members []models.ConversationMember,
	selfID string,
	clubs map[string]models.Club,
	profiles map[string]models.Profile,
) (title, avatarURL string) {
	for _, member := range members {
		if member.UserID == selfID {
			continue
		}
		if member.MemberType == models.MemberTypeClub {
			if club, ok := clubs[member.ClubID]; ok {
				return club.Name, club.AvatarURL
			}
		}
		if profile, ok := profiles[member.UserID]; ok {
			return profile.DisplayName, profile.AvatarURL
		}
		return member.UserID, ""
	}
	return "", ""
}

// filterSummaries applies the case-insensitive substring search over the
// resolved title, subject, category, and message preview.
func filterSummaries(summaries []models.ConversationSummary, search string) []models.ConversationSummary {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return summaries
	}

	filtered := summaries[:0]
	for _, summary := range summaries {
		if strings.Contains(strings.ToLower(summary.Title), needle) ||
			strings.Contains(strings.ToLower(summary.Conversation.Subject), needle) ||
			strings.Contains(strings.ToLower(string(summary.Conversation.Category)), needle) ||
			strings.Contains(strings.ToLower(summary.Preview), needle) {
			filtered = append(filtered, summary)
		}
	}
	return filtered
}

// sortSummaries orders summaries by activity time descending. Equal
// activity times fall back to conversation id ascending, which keeps
// refreshes deterministic (the source leaves this tie undefined).
func sortSummaries(summaries []models.ConversationSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].ActivityTime(), summaries[j].ActivityTime()
		if !a.Equal(b) {
			return a.After(b)
		}
		return summaries[i].ID() < summaries[j].ID()
	})
}
