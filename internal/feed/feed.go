// Package feed provides the typed change-event stream the messaging core
// subscribes to: insert/update notifications for conversation-store rows,
// filterable by table and org.
package feed

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/orgdesk/orgdesk/internal/models"
)

const defaultBufferSize = 256

// Op is the kind of row change an event describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Table identifies the collection a change event belongs to.
type Table string

const (
	TableConversations Table = "conversations"
	TableMembers       Table = "conversation_members"
	TableMessages      Table = "messages"
	TableReads         Table = "message_reads"
)

// ChangeEvent is a single row change. Exactly one payload field is set,
// matching the table: Message for messages, Conversation for conversations;
// member and read changes carry no payload the core consumes.
type ChangeEvent struct {
	Table Table
	Op    Op
	OrgID string

	Conversation *models.Conversation
	Message      *models.Message
}

// Filter selects which change events a subscription receives.
type Filter struct {
	// Tables filters by table (nil = all tables).
	Tables []Table

	// OrgID is an equality predicate on the event's org column
	// (empty = all orgs).
	OrgID string
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(event ChangeEvent) bool {
	if f.OrgID != "" && event.OrgID != f.OrgID {
		return false
	}
	if len(f.Tables) == 0 {
		return true
	}
	for _, table := range f.Tables {
		if event.Table == table {
			return true
		}
	}
	return false
}

// Feed is the subscribe-to-changes primitive exposed by a conversation
// store. Subscriptions are multiplexed by caller-chosen key; one logical
// subscription exists per key at a time.
type Feed interface {
	// Subscribe registers a subscription under key and returns the event
	// channel plus a cancel function. Cancel is idempotent, closes the
	// channel, and frees the key for reuse.
	Subscribe(key string, filter Filter) (<-chan ChangeEvent, func(), error)

	// Publish delivers an event to all matching subscribers.
	Publish(event ChangeEvent)
}

// Feed errors.
var (
	ErrInvalidSubscriptionKey = &FeedError{Message: "subscription key is required"}
	ErrSubscriptionExists     = &FeedError{Message: "subscription with this key already exists"}
)

// FeedError represents an error from feed operations.
type FeedError struct {
	Message string
}

func (e *FeedError) Error() string {
	return e.Message
}

type subscription struct {
	key    string
	filter Filter
	ch     chan ChangeEvent
	once   sync.Once
}

// MemoryFeed implements Feed with in-process channels. Delivery to a
// subscriber whose buffer is full drops the event with a warning rather than
// blocking the publisher; consumers that fall that far behind must refresh.
type MemoryFeed struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	bufferSize    int
	logger        zerolog.Logger
}

// MemoryFeedOption configures a MemoryFeed.
type MemoryFeedOption func(*MemoryFeed)

// WithBufferSize overrides the per-subscription channel buffer.
func WithBufferSize(size int) MemoryFeedOption {
	return func(f *MemoryFeed) {
		if size > 0 {
			f.bufferSize = size
		}
	}
}

// WithLogger attaches a logger for dropped-event warnings.
func WithLogger(logger zerolog.Logger) MemoryFeedOption {
	return func(f *MemoryFeed) {
		f.logger = logger
	}
}

// NewMemoryFeed creates an in-memory change feed.
func NewMemoryFeed(opts ...MemoryFeedOption) *MemoryFeed {
	f := &MemoryFeed{
		subscriptions: make(map[string]*subscription),
		bufferSize:    defaultBufferSize,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe registers a subscription under key.
func (f *MemoryFeed) Subscribe(key string, filter Filter) (<-chan ChangeEvent, func(), error) {
	if key == "" {
		return nil, nil, ErrInvalidSubscriptionKey
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.subscriptions[key]; exists {
		return nil, nil, ErrSubscriptionExists
	}

	sub := &subscription{
		key:    key,
		filter: filter,
		ch:     make(chan ChangeEvent, f.bufferSize),
	}
	f.subscriptions[key] = sub

	cancel := func() {
		sub.once.Do(func() {
			// Close under the write lock so no Publish holds the read
			// lock with this channel still registered.
			f.mu.Lock()
			defer f.mu.Unlock()
			if current, ok := f.subscriptions[key]; ok && current == sub {
				delete(f.subscriptions, key)
			}
			close(sub.ch)
		})
	}

	return sub.ch, cancel, nil
}

// Publish delivers an event to all matching subscribers. Delivery is
// non-blocking, so holding the read lock for the sends is safe.
func (f *MemoryFeed) Publish(event ChangeEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subscriptions {
		if !sub.filter.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			f.logger.Warn().
				Str("subscription", sub.key).
				Str("table", string(event.Table)).
				Msg("subscriber buffer full, dropping change event")
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (f *MemoryFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscriptions)
}
