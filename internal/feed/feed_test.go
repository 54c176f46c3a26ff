package feed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/internal/models"
)

func TestMemoryFeedDeliversMatchingEvents(t *testing.T) {
	f := NewMemoryFeed()

	ch, cancel, err := f.Subscribe("org-1/user-1", Filter{
		Tables: []Table{TableMessages},
		OrgID:  "org-1",
	})
	require.NoError(t, err)
	defer cancel()

	f.Publish(ChangeEvent{
		Table:   TableMessages,
		Op:      OpInsert,
		OrgID:   "org-1",
		Message: &models.Message{ID: "msg-1", ConversationID: "conv-1"},
	})
	f.Publish(ChangeEvent{Table: TableMessages, Op: OpInsert, OrgID: "org-2"})
	f.Publish(ChangeEvent{Table: TableConversations, Op: OpUpdate, OrgID: "org-1"})

	require.Len(t, ch, 1)
	event := <-ch
	require.Equal(t, TableMessages, event.Table)
	require.Equal(t, "msg-1", event.Message.ID)
}

func TestMemoryFeedEmptyFilterMatchesAll(t *testing.T) {
	f := NewMemoryFeed()

	ch, cancel, err := f.Subscribe("all", Filter{})
	require.NoError(t, err)
	defer cancel()

	f.Publish(ChangeEvent{Table: TableMessages, OrgID: "org-1"})
	f.Publish(ChangeEvent{Table: TableReads, OrgID: "org-2"})

	require.Len(t, ch, 2)
}

func TestMemoryFeedRejectsDuplicateKey(t *testing.T) {
	f := NewMemoryFeed()

	_, cancel, err := f.Subscribe("org-1/user-1", Filter{})
	require.NoError(t, err)

	_, _, err = f.Subscribe("org-1/user-1", Filter{})
	require.ErrorIs(t, err, ErrSubscriptionExists)

	// Cancel frees the key for a fresh subscription.
	cancel()
	_, cancel2, err := f.Subscribe("org-1/user-1", Filter{})
	require.NoError(t, err)
	cancel2()
}

func TestMemoryFeedCancelIsIdempotentAndClosesChannel(t *testing.T) {
	f := NewMemoryFeed()

	ch, cancel, err := f.Subscribe("key", Filter{})
	require.NoError(t, err)

	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)
	require.Equal(t, 0, f.SubscriberCount())

	// Publishing after cancel must not panic or deliver.
	f.Publish(ChangeEvent{Table: TableMessages})
}

func TestMemoryFeedDropsWhenBufferFull(t *testing.T) {
	f := NewMemoryFeed(WithBufferSize(1))

	ch, cancel, err := f.Subscribe("slow", Filter{})
	require.NoError(t, err)
	defer cancel()

	f.Publish(ChangeEvent{Table: TableMessages, OrgID: "org-1", Message: &models.Message{ID: "kept"}})
	f.Publish(ChangeEvent{Table: TableMessages, OrgID: "org-1", Message: &models.Message{ID: "dropped"}})

	require.Len(t, ch, 1)
	event := <-ch
	require.Equal(t, "kept", event.Message.ID)
}

func TestMemoryFeedRequiresKey(t *testing.T) {
	f := NewMemoryFeed()
	_, _, err := f.Subscribe("", Filter{})
	require.ErrorIs(t, err, ErrInvalidSubscriptionKey)
}
