package main

import (
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the tables and indexes the stores need.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create the identity store schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				return runMigrate(cmd, a)
			})
		},
	}
}

func runMigrate(cmd *cobra.Command, a *app) error {
	if err := a.repo.CreateSchema(cmd.Context()); err != nil {
		return a.Fail("schema creation failed", err)
	}
	return writeResult(cmd.OutOrStdout(), a.format, map[string]any{
		"migrated": true,
	})
}
