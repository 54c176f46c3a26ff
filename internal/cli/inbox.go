package cli

import (
	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/tui"
)

func newInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "Open the interactive inbox",
		RunE:  runInbox,
	}
}

func runInbox(cmd *cobra.Command, _ []string) error {
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

	return tui.Run(cmd.Context(), session, tui.Config{
		Theme:          a.cfg.TUI.Theme,
		ShowTimestamps: a.cfg.TUI.ShowTimestamps,
		CompactMode:    a.cfg.TUI.CompactMode,
	})
}
