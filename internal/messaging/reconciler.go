package messaging

import (
	"context"

	"github.com/orgdesk/orgdesk/internal/feed"
)

// Run consumes the session's live change feed until the context is
// cancelled or the session is closed, merging events into the directory and
// the active transcript. Run the reconciler in its own goroutine; all other
// session methods remain safe to call concurrently.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-s.events:
			if !ok {
				// Subscription torn down by Close.
				return nil
			}
			s.handleEvent(ctx, event)
			s.notifyChange()
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, event feed.ChangeEvent) {
	switch {
	case event.Table == feed.TableMessages && event.Op == feed.OpInsert && event.Message != nil:
		s.handleMessageInserted(ctx, event)
	case event.Table == feed.TableConversations:
		// Metadata changes are rare; a full refresh is cheaper than an
		// incremental patch path that would need per-event lookups.
		s.refreshDirectory(ctx)
	}
}

func (s *Session) handleMessageInserted(ctx context.Context, event feed.ChangeEvent) {
	msg := *event.Message

	s.mu.Lock()
	known, markRead := s.applyMessageLocked(msg)
	s.mu.Unlock()

	if !known {
		// The user just became a member, or the summary list is stale.
		// Patching needs the cached display identity and member list, so
		// refresh instead of hand-patching.
		s.refreshDirectory(ctx)
		return
	}

	if markRead {
		if err := s.MarkConversationRead(ctx, msg.ConversationID, readAt(msg.CreatedAt)); err != nil {
			s.logger.Warn().Err(err).
				Str("conversation_id", msg.ConversationID).
				Msg("failed to mark active conversation read")
		}
	}
}

// refreshDirectory re-fetches the summary list with the session's current
// search term. A failure keeps the stale-but-present list; the next event
// or user-driven refresh retries.
func (s *Session) refreshDirectory(ctx context.Context) {
	s.mu.Lock()
	search := s.search
	s.mu.Unlock()

	if _, err := s.FetchSummaries(ctx, search); err != nil {
		s.logger.Warn().Err(err).Msg("directory refresh failed")
	}
}
