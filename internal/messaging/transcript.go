package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/models"
)

// TranscriptState is the transcript view's loading state.
type TranscriptState string

const (
	TranscriptIdle         TranscriptState = "idle"
	TranscriptLoading      TranscriptState = "loading"
	TranscriptLoaded       TranscriptState = "loaded"
	TranscriptLoadingOlder TranscriptState = "loading_older"
)

// transcriptView is the in-memory transcript for the selected conversation.
// Messages are kept oldest-first for append-at-bottom rendering.
type transcriptView struct {
	conversationID string
	state          TranscriptState
	messages       []models.Message
	page           int
	hasMore        bool
}

// append adds a message at the bottom unless its id is already present.
// Both the reconciler and the optimistic send path come through here, so a
// send echoed back by the live feed never duplicates.
func (t *transcriptView) append(msg models.Message) {
	if t.contains(msg.ID) {
		return
	}
	t.messages = append(t.messages, msg)
}

func (t *transcriptView) contains(id string) bool {
	for i := range t.messages {
		if t.messages[i].ID == id {
			return true
		}
	}
	return false
}

// TranscriptSnapshot is a copy of the transcript state handed to views.
type TranscriptSnapshot struct {
	ConversationID string
	State          TranscriptState
	Messages       []models.Message
	HasMore        bool
}

// Transcript returns a snapshot of the active transcript.
func (s *Session) Transcript() TranscriptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.transcript.state
	if state == "" {
		state = TranscriptIdle
	}
	return TranscriptSnapshot{
		ConversationID: s.transcript.conversationID,
		State:          state,
		Messages:       cloneMessages(s.transcript.messages),
		HasMore:        s.transcript.hasMore,
	}
}

// ActiveConversationID returns the selected conversation, "" when idle.
func (s *Session) ActiveConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.conversationID
}

// SelectConversation switches the transcript to a conversation, always
// fetching page 0 fresh (no cache reuse across switches) and marking the
// conversation read. If the user switches again before the page resolves,
// the stale result is discarded.
func (s *Session) SelectConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrNoActiveConversation
	}

	s.mu.Lock()
	previous := s.transcript
	s.transcript = transcriptView{
		conversationID: conversationID,
		state:          TranscriptLoading,
	}
	s.mu.Unlock()

	messages, hasMore, err := s.fetchPage(ctx, conversationID, 0)

	s.mu.Lock()
	if s.transcript.conversationID != conversationID {
		// Selection changed while the fetch was in flight.
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		// Failed switch: put the previously displayed transcript back
		// instead of leaving an empty pane for the new selection.
		s.transcript = previous
		s.mu.Unlock()
		return err
	}
	s.transcript.messages = messages
	s.transcript.page = 0
	s.transcript.hasMore = hasMore
	s.transcript.state = TranscriptLoaded
	s.mu.Unlock()

	return s.MarkConversationRead(ctx, conversationID, time.Time{})
}

// LoadOlder fetches the next older page and prepends it, deduplicating by
// message id against the current list (a message can arrive through the
// reconciler between page fetches). A result that resolves after a
// conversation switch is discarded.
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if s.transcript.conversationID == "" {
		s.mu.Unlock()
		return ErrNoActiveConversation
	}
	if s.transcript.state != TranscriptLoaded {
		s.mu.Unlock()
		return ErrTranscriptBusy
	}
	if !s.transcript.hasMore {
		s.mu.Unlock()
		return nil
	}
	conversationID := s.transcript.conversationID
	page := s.transcript.page + 1
	s.transcript.state = TranscriptLoadingOlder
	s.mu.Unlock()

	messages, hasMore, err := s.fetchPage(ctx, conversationID, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcript.conversationID != conversationID {
		// The view moved on; drop the stale page.
		return nil
	}
	if err != nil {
		s.transcript.state = TranscriptLoaded
		return err
	}

	existing := make(map[string]struct{}, len(s.transcript.messages))
	for i := range s.transcript.messages {
		existing[s.transcript.messages[i].ID] = struct{}{}
	}
	fresh := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if _, ok := existing[msg.ID]; ok {
			continue
		}
		fresh = append(fresh, msg)
	}

	s.transcript.messages = append(fresh, s.transcript.messages...)
	s.transcript.page = page
	s.transcript.hasMore = hasMore
	s.transcript.state = TranscriptLoaded
	return nil
}

// fetchPage loads one page newest-first and reverses it to oldest-first.
// hasMore is the full-page approximation: when the true count is an exact
// multiple of the page size the final LoadOlder returns one empty page.
func (s *Session) fetchPage(ctx context.Context, conversationID string, page int) ([]models.Message, bool, error) {
	rows, err := s.store.MessagesPage(ctx, conversationID, page*s.pageSize, s.pageSize)
	if err != nil {
		return nil, false, fmt.Errorf("fetch transcript page %d: %w", page, err)
	}

	reversed := make([]models.Message, len(rows))
	for i, msg := range rows {
		reversed[len(rows)-1-i] = msg
	}
	return reversed, len(rows) == s.pageSize, nil
}
