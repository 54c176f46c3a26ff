package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List the user's conversations, most recent activity first",
		RunE:  runConversations,
	}
	cmd.Flags().String("search", "", "Filter by title, subject, category, or preview")
	return cmd
}

func runConversations(cmd *cobra.Command, _ []string) error {
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

	search, _ := cmd.Flags().GetString("search")
	summaries, err := session.FetchSummaries(cmd.Context(), search)
	if err != nil {
		return fmt.Errorf("fetch conversations: %w", err)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No conversations.")
		return nil
	}

	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		unread := ""
		if summary.Unread > 0 {
			unread = strconv.Itoa(summary.Unread)
		}
		rows = append(rows, []string{
			unread,
			truncate(summary.Title, 32),
			truncate(summary.Preview, 48),
			formatActivity(summary.ActivityTime()),
			summary.ID(),
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"UNREAD", "TITLE", "PREVIEW", "ACTIVITY", "ID"}, rows)
}

func formatActivity(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return at.Local().Format("2006-01-02 15:04")
}
