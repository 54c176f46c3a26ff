package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript <conversation-id>",
		Short: "Print a conversation transcript, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runTranscript,
	}
	cmd.Flags().Int("pages", 1, "Number of pages to load, newest pages first")
	return cmd
}

func runTranscript(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	if _, err := session.FetchSummaries(ctx, ""); err != nil {
		return fmt.Errorf("fetch conversations: %w", err)
	}
	if err := session.SelectConversation(ctx, args[0]); err != nil {
		return fmt.Errorf("open conversation: %w", err)
	}

	pages, _ := cmd.Flags().GetInt("pages")
	for i := 1; i < pages; i++ {
		snapshot := session.Transcript()
		if !snapshot.HasMore {
			break
		}
		if err := session.LoadOlder(ctx); err != nil {
			return fmt.Errorf("load older page: %w", err)
		}
	}

	snapshot := session.Transcript()
	if len(snapshot.Messages) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No messages.")
		return nil
	}

	out := cmd.OutOrStdout()
	if snapshot.HasMore {
		fmt.Fprintln(out, "(older messages not shown)")
	}
	for _, msg := range snapshot.Messages {
		fmt.Fprintf(out, "[%s] %s: %s\n",
			msg.CreatedAt.Local().Format("2006-01-02 15:04"),
			msg.SenderID,
			msg.Body,
		)
	}
	return nil
}
