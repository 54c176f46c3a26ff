package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/messaging"
	"github.com/orgdesk/orgdesk/internal/models"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream directory updates as JSON lines until interrupted",
		RunE:  runWatch,
	}
}

// watchSnapshot is one JSONL record: the directory as of one applied
// change.
type watchSnapshot struct {
	At            time.Time      `json:"at"`
	UnreadTotal   int            `json:"unread_total"`
	Conversations []watchSummary `json:"conversations"`
}

type watchSummary struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Category string     `json:"category"`
	Preview  string     `json:"preview,omitempty"`
	Unread   int        `json:"unread"`
	Activity *time.Time `json:"activity,omitempty"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.session(cmd.Context())
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := session.FetchSummaries(ctx, ""); err != nil {
		return fmt.Errorf("fetch conversations: %w", err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	emit := func() {
		if err := encoder.Encode(snapshotDirectory(session)); err != nil {
			a.logger.Warn().Err(err).Msg("encode watch snapshot")
		}
	}

	changed := make(chan struct{}, 64)
	session.SetOnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	emit()
	for {
		select {
		case <-changed:
			emit()
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	}
}

func snapshotDirectory(session *messaging.Session) watchSnapshot {
	summaries := session.Summaries()
	snapshot := watchSnapshot{
		At:            time.Now().UTC(),
		UnreadTotal:   session.UnreadTotal(),
		Conversations: make([]watchSummary, 0, len(summaries)),
	}
	for _, summary := range summaries {
		snapshot.Conversations = append(snapshot.Conversations, watchSummary{
			ID:       summary.ID(),
			Title:    summary.Title,
			Category: string(summary.Conversation.Category),
			Preview:  summary.Preview,
			Unread:   summary.Unread,
			Activity: activityPtr(summary),
		})
	}
	return snapshot
}

func activityPtr(summary models.ConversationSummary) *time.Time {
	at := summary.ActivityTime()
	if at.IsZero() {
		return nil
	}
	return &at
}
