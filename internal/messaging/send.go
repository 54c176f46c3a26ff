package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/orgdesk/orgdesk/internal/models"
)

// SendMessage inserts a message into the active conversation and merges it
// locally through the same path the reconciler uses, so the feed echo of
// the same insert is a no-op. The optimistic merge happens only after the
// write succeeds: a failed send changes nothing locally and the caller's
// input text survives for retry. One send may be in flight at a time.
func (s *Session) SendMessage(ctx context.Context, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}

	s.mu.Lock()
	conversationID := s.transcript.conversationID
	if conversationID == "" {
		s.mu.Unlock()
		return nil, ErrNoActiveConversation
	}
	if s.sendInFlight {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}
	s.sendInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sendInFlight = false
		s.mu.Unlock()
	}()

	msg := &models.Message{
		ConversationID: conversationID,
		OrgID:          s.orgID,
		SenderID:       s.userID,
		SenderType:     s.selfType,
		Body:           body,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	known, _ := s.applyMessageLocked(*msg)
	s.mu.Unlock()
	if !known {
		s.refreshDirectory(ctx)
	}

	if err := s.MarkConversationRead(ctx, conversationID, readAt(msg.CreatedAt)); err != nil {
		s.logger.Warn().Err(err).
			Str("conversation_id", conversationID).
			Msg("failed to mark conversation read after send")
	}

	return msg, nil
}
