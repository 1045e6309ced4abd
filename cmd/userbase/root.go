package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	Format  string
	DSN     string
	Verbose bool
}

// NewRootCommand builds the userbase admin CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "userbase",
		Short: "Administer a userbase identity store",
		Long: `userbase manages the identity store behind the authentication core:
schema creation, invitation codes, user roles and password resets.

Settings are read from USERBASE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("--format must be %q or %q, got %q", FormatYAML, FormatJSON, opts.Format))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatYAML, "output format (yaml|json)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN, overrides USERBASE_DATABASE_DSN")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable trace logging")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewInvitationsCommand(opts))
	cmd.AddCommand(NewUsersCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))

	return cmd
}
