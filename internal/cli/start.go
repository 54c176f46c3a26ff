package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/models"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <club|admin|officer|user> <id>",
		Short: "Open (or reuse) a conversation with a club or user",
		Args:  cobra.ExactArgs(2),
		RunE:  runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	targetType, err := parseTargetType(args[0])
	if err != nil {
		return err
	}

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

	conv, err := session.StartConversation(ctx, targetType, args[1])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), conv.ID)
	return nil
}

func parseTargetType(value string) (models.MemberType, error) {
	switch value {
	case "club":
		return models.MemberTypeClub, nil
	case "admin":
		return models.MemberTypeAdmin, nil
	case "officer":
		return models.MemberTypeOfficer, nil
	case "user", "other":
		return models.MemberTypeOther, nil
	default:
		return "", fmt.Errorf("unknown target type %q (expected club, admin, officer, or user)", value)
	}
}
