package messaging

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// fakeStore is an in-memory ConversationStore mirroring the SQLite store's
// semantics, with failure injection and a page-fetch hook for race tests.
type fakeStore struct {
	mu sync.Mutex

	changeFeed *feed.MemoryFeed

	conversations map[string]models.Conversation
	members       map[string][]models.ConversationMember
	messages      map[string][]models.Message
	receipts      map[string]models.ReadReceipt
	clubs         map[string]models.Club
	profiles      map[string]models.Profile
	officers      map[string][]models.Officer

	clock  time.Time
	msgSeq int

	// failing maps an operation name to an injected error.
	failing map[string]error

	// pageHook, when set, runs during MessagesPage before the result is
	// assembled; tests use it to interleave a conversation switch.
	pageHook func(conversationID string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		changeFeed:    feed.NewMemoryFeed(),
		conversations: make(map[string]models.Conversation),
		members:       make(map[string][]models.ConversationMember),
		messages:      make(map[string][]models.Message),
		receipts:      make(map[string]models.ReadReceipt),
		clubs:         make(map[string]models.Club),
		profiles:      make(map[string]models.Profile),
		officers:      make(map[string][]models.Officer),
		clock:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		failing:       make(map[string]error),
	}
}

func (f *fakeStore) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[op] = err
}

func (f *fakeStore) errFor(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing[op]
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// seed helpers

func (f *fakeStore) addConversation(id, orgID string, category models.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations[id] = models.Conversation{
		ID:        id,
		OrgID:     orgID,
		Category:  category,
		CreatedAt: f.clock,
		UpdatedAt: f.clock,
	}
}

func (f *fakeStore) addMember(member models.ConversationMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[member.ConversationID] = append(f.members[member.ConversationID], member)
}

func (f *fakeStore) addMessage(conversationID, senderID, body string) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendMessageLocked(conversationID, senderID, body)
}

func (f *fakeStore) appendMessageLocked(conversationID, senderID, body string) models.Message {
	f.msgSeq++
	conv := f.conversations[conversationID]
	msg := models.Message{
		ID:             fmt.Sprintf("msg-%03d", f.msgSeq),
		ConversationID: conversationID,
		OrgID:          conv.OrgID,
		SenderID:       senderID,
		SenderType:     models.MemberTypeOther,
		Body:           body,
		CreatedAt:      f.tick(),
	}
	f.messages[conversationID] = append(f.messages[conversationID], msg)
	at := msg.CreatedAt
	conv.LastMessageAt = &at
	conv.UpdatedAt = at
	f.conversations[conversationID] = conv
	return msg
}

// publishInsert pushes a message insert event, simulating the live feed.
func (f *fakeStore) publishInsert(msg models.Message) {
	f.changeFeed.Publish(feed.ChangeEvent{
		Table:   feed.TableMessages,
		Op:      feed.OpInsert,
		OrgID:   msg.OrgID,
		Message: &msg,
	})
}

// ConversationStore implementation

func (f *fakeStore) MemberConversationIDs(_ context.Context, orgID, userID string) ([]string, error) {
	if err := f.errFor("MemberConversationIDs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for convID, convMembers := range f.members {
		conv, ok := f.conversations[convID]
		if !ok || conv.OrgID != orgID {
			continue
		}
		for _, member := range convMembers {
			if member.UserID == userID {
				ids = append(ids, convID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) ConversationsByID(_ context.Context, ids []string) ([]models.Conversation, error) {
	if err := f.errFor("ConversationsByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var convs []models.Conversation
	for _, id := range ids {
		if conv, ok := f.conversations[id]; ok {
			convs = append(convs, conv)
		}
	}
	return convs, nil
}

func (f *fakeStore) MembersByConversation(_ context.Context, ids []string) (map[string][]models.ConversationMember, error) {
	if err := f.errFor("MembersByConversation"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string][]models.ConversationMember, len(ids))
	for _, id := range ids {
		result[id] = append([]models.ConversationMember(nil), f.members[id]...)
	}
	return result, nil
}

func (f *fakeStore) InsertConversation(_ context.Context, conv *models.Conversation) error {
	if err := f.errFor("InsertConversation"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if conv.ID == "" {
		conv.ID = fmt.Sprintf("conv-%03d", len(f.conversations)+1)
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = f.tick()
		conv.UpdatedAt = conv.CreatedAt
	}
	f.conversations[conv.ID] = *conv
	return nil
}

func (f *fakeStore) InsertMember(_ context.Context, member models.ConversationMember) error {
	if err := f.errFor("InsertMember"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[member.ConversationID] = append(f.members[member.ConversationID], member)
	return nil
}

func (f *fakeStore) LatestMessages(_ context.Context, conversationIDs []string) (map[string]models.Message, error) {
	if err := f.errFor("LatestMessages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]models.Message)
	for _, id := range conversationIDs {
		msgs := f.messages[id]
		if len(msgs) == 0 {
			continue
		}
		newest := msgs[0]
		for _, msg := range msgs[1:] {
			if newest.Before(msg) {
				newest = msg
			}
		}
		latest[id] = newest
	}
	return latest, nil
}

func (f *fakeStore) MessagesPage(_ context.Context, conversationID string, offset, limit int) ([]models.Message, error) {
	if err := f.errFor("MessagesPage"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	hook := f.pageHook
	f.mu.Unlock()
	if hook != nil {
		hook(conversationID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := append([]models.Message(nil), f.messages[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[j].Before(msgs[i]) })
	if offset >= len(msgs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

func (f *fakeStore) InsertMessage(_ context.Context, msg *models.Message) error {
	if err := f.errFor("InsertMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	stored := f.appendMessageLocked(msg.ConversationID, msg.SenderID, msg.Body)
	stored.SenderType = msg.SenderType
	stored.OrgID = msg.OrgID
	msgs := f.messages[msg.ConversationID]
	msgs[len(msgs)-1] = stored
	f.mu.Unlock()

	*msg = stored
	f.publishInsert(stored)
	return nil
}

func (f *fakeStore) UnreadCount(_ context.Context, conversationID, userID string, after time.Time) (int, error) {
	if err := f.errFor("UnreadCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, msg := range f.messages[conversationID] {
		if msg.SenderID != userID && msg.CreatedAt.After(after) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ReadReceipts(_ context.Context, userID string, conversationIDs []string) (map[string]models.ReadReceipt, error) {
	if err := f.errFor("ReadReceipts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	receipts := make(map[string]models.ReadReceipt)
	for _, id := range conversationIDs {
		if receipt, ok := f.receipts[id+"/"+userID]; ok {
			receipts[id] = receipt
		}
	}
	return receipts, nil
}

func (f *fakeStore) UpsertReadReceipt(_ context.Context, receipt models.ReadReceipt) error {
	if err := f.errFor("UpsertReadReceipt"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if receipt.LastReadAt.IsZero() {
		receipt.LastReadAt = f.clock
	}
	f.receipts[receipt.ConversationID+"/"+receipt.UserID] = receipt
	return nil
}

func (f *fakeStore) ClubsByID(_ context.Context, ids []string) (map[string]models.Club, error) {
	if err := f.errFor("ClubsByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	clubs := make(map[string]models.Club)
	for _, id := range ids {
		if club, ok := f.clubs[id]; ok {
			clubs[id] = club
		}
	}
	return clubs, nil
}

func (f *fakeStore) ClubByID(_ context.Context, id string) (*models.Club, error) {
	if err := f.errFor("ClubByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	club, ok := f.clubs[id]
	if !ok {
		return nil, fmt.Errorf("club %s not found", id)
	}
	return &club, nil
}

func (f *fakeStore) ProfilesByID(_ context.Context, ids []string) (map[string]models.Profile, error) {
	if err := f.errFor("ProfilesByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	profiles := make(map[string]models.Profile)
	for _, id := range ids {
		if profile, ok := f.profiles[id]; ok {
			profiles[id] = profile
		}
	}
	return profiles, nil
}

func (f *fakeStore) ProfileByID(_ context.Context, id string) (*models.Profile, error) {
	if err := f.errFor("ProfileByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", id)
	}
	return &profile, nil
}

func (f *fakeStore) ClubOfficers(_ context.Context, clubID string) ([]models.Officer, error) {
	if err := f.errFor("ClubOfficers"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	officers := append([]models.Officer(nil), f.officers[clubID]...)
	sort.Slice(officers, func(i, j int) bool {
		if officers[i].Rank != officers[j].Rank {
			return officers[i].Rank < officers[j].Rank
		}
		return officers[i].ID < officers[j].ID
	})
	return officers, nil
}

func (f *fakeStore) ChangeFeed() feed.Feed {
	return f.changeFeed
}

func (f *fakeStore) messageCount(conversationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[conversationID])
}

func (f *fakeStore) conversationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conversations)
}
