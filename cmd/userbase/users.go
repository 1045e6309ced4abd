package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-userbase"
	"github.com/goliatone/go-userbase/usernamepass"
)

// NewUsersCommand groups the identity commands.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and administer identities",
	}

	cmd.AddCommand(newUsersStatsCommand(rootOpts))
	cmd.AddCommand(newUsersRoleCommand(rootOpts))
	cmd.AddCommand(newUsersRequireResetCommand(rootOpts))

	return cmd
}

func newUsersStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "stats",
		Short:        "Connected users and daily registrations per scheme",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				stats, err := a.service.SchemeStats(cmd.Context())
				if err != nil {
					return a.Fail("could not collect scheme stats", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, stats)
			})
		},
	}
}

func newUsersRoleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "role ID ROLE",
		Short:        "Set the role of an identity",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := userbase.ParseRole(args[1])
			if !ok {
				return WrapExitError(ExitCommandError, "invalid argument",
					fmt.Errorf("unknown role %q", args[1]))
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				if err := a.repo.Directory().SetRole(a.Context(cmd.Context()), args[0], role); err != nil {
					return a.Fail("could not set role", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, map[string]any{
					"id":   args[0],
					"role": string(role),
				})
			})
		},
	}
}

func newUsersRequireResetCommand(rootOpts *RootOptions) *cobra.Command {
	var scheme string

	cmd := &cobra.Command{
		Use:          "require-reset ID",
		Short:        "Force a password change on the next login",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				err := a.service.RequirePasswordReset(a.Context(cmd.Context()), userbase.SchemeID(scheme), args[0])
				if err != nil {
					return a.Fail("could not require password reset", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, map[string]any{
					"id":             args[0],
					"scheme":         scheme,
					"requires_reset": true,
				})
			})
		},
	}

	cmd.Flags().StringVar(&scheme, "scheme", string(usernamepass.SchemeID), "authentication scheme")

	return cmd
}
