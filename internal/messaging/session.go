package messaging

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orgdesk/orgdesk/internal/feed"
	"github.com/orgdesk/orgdesk/internal/models"
)

// DefaultPageSize is the transcript page size.
const DefaultPageSize = 30

// SessionConfig configures a messaging session.
type SessionConfig struct {
	Store    ConversationStore
	OrgID    string
	UserID   string
	SelfType models.MemberType
	PageSize int
	Logger   zerolog.Logger
}

// Session is the conversation state engine for one authenticated user in
// one org. It owns the directory summary list, the active transcript, and
// the single live feed subscription for the (org, user) pair. Construct one
// per login, run its reconciler with Run, and Close it on logout.
type Session struct {
	store    ConversationStore
	orgID    string
	userID   string
	selfType models.MemberType
	pageSize int
	logger   zerolog.Logger

	events <-chan feed.ChangeEvent
	cancel func()

	mu           sync.Mutex
	summaries    []models.ConversationSummary
	search       string
	transcript   transcriptView
	sendInFlight bool
	closed       bool

	// onChange, when set, is invoked (without the lock) after the
	// reconciler mutates session state. UI views use it to repaint.
	onChange func()
}

// NewSession creates a session and acquires its live feed subscription.
// Exactly one subscription exists per (org, user) key; a second session for
// the same pair fails until the first is closed.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.OrgID == "" || cfg.UserID == "" {
		return nil, fmt.Errorf("org and user required")
	}
	selfType := cfg.SelfType
	if selfType == "" {
		selfType = models.MemberTypeAdmin
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	events, cancel, err := cfg.Store.ChangeFeed().Subscribe(
		cfg.OrgID+"/"+cfg.UserID,
		feed.Filter{
			Tables: []feed.Table{feed.TableMessages, feed.TableConversations},
			OrgID:  cfg.OrgID,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe to change feed: %w", err)
	}

	return &Session{
		store:    cfg.Store,
		orgID:    cfg.OrgID,
		userID:   cfg.UserID,
		selfType: selfType,
		pageSize: pageSize,
		logger:   cfg.Logger,
		events:   events,
		cancel:   cancel,
	}, nil
}

// OrgID returns the session's org scope.
func (s *Session) OrgID() string { return s.orgID }

// UserID returns the session's user.
func (s *Session) UserID() string { return s.userID }

// SetOnChange registers a callback invoked after reconciler-driven state
// changes. Must be set before Run.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Close releases the live subscription. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	closed := s.closed
	s.closed = true
	s.mu.Unlock()
	if !closed {
		s.cancel()
	}
}

// Summaries returns a copy of the current directory summary list.
func (s *Session) Summaries() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSummaries(s.summaries)
}

// UnreadTotal sums unread counts across the directory.
func (s *Session) UnreadTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, summary := range s.summaries {
		total += summary.Unread
	}
	return total
}

func (s *Session) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// readAt picks the receipt timestamp for a mark-read triggered by an
// inbound message: now, unless the message's store-assigned time is ahead
// of the local clock.
func readAt(msgCreatedAt time.Time) time.Time {
	at := time.Now().UTC()
	if msgCreatedAt.After(at) {
		at = msgCreatedAt
	}
	return at
}

func cloneSummaries(summaries []models.ConversationSummary) []models.ConversationSummary {
	if len(summaries) == 0 {
		return nil
	}
	cloned := make([]models.ConversationSummary, len(summaries))
	copy(cloned, summaries)
	return cloned
}

func cloneMessages(messages []models.Message) []models.Message {
	if len(messages) == 0 {
		return nil
	}
	cloned := make([]models.Message, len(messages))
	copy(cloned, messages)
	return cloned
}
