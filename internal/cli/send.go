package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-id> <body>",
		Short: "Send a message to a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSend,
	}
}

func runSend(cmd *cobra.Command, args []string) error {
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

	body := strings.Join(args[1:], " ")
	msg, err := session.SendMessage(ctx, body)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message body is empty")
	}

	fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
	return nil
}
