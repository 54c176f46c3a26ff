// Package cli implements the orgdesk command line surface over the
// messaging engine.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// NewRootCmd builds the orgdesk command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orgdesk",
		Short:         "Conversation engine for the student-org admin dashboard",
		Long:          "orgdesk browses, sends, and follows org conversations from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file path")
	flags.String("db", "", "SQLite database path")
	flags.String("org", "", "Org scope override")
	flags.String("user", "", "Acting user id")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, console)")

	cmd.AddCommand(
		newConversationsCmd(),
		newTranscriptCmd(),
		newSendCmd(),
		newStartCmd(),
		newWatchCmd(),
		newSeedCmd(),
		newInboxCmd(),
	)

	return cmd
}
