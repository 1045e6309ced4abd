package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-userbase"
)

// Invitation listings accepted by "invitations list".
const (
	listUnsent   = "unsent"
	listSent     = "sent"
	listAccepted = "accepted"
)

// NewInvitationsCommand groups the invitation ledger commands.
func NewInvitationsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invitations",
		Aliases: []string{"inv"},
		Short:   "Manage invitation codes",
	}

	cmd.AddCommand(newInvitationsGenerateCommand(rootOpts))
	cmd.AddCommand(newInvitationsListCommand(rootOpts))
	cmd.AddCommand(newInvitationsSendCommand(rootOpts))
	cmd.AddCommand(newInvitationsCancelCommand(rootOpts))

	return cmd
}

func newInvitationsGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "generate COUNT",
		Short:        "Generate unsent admin invitations",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count < 1 {
				return WrapExitError(ExitCommandError, "invalid argument",
					fmt.Errorf("COUNT must be a positive integer, got %q", args[0]))
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				invitations, err := a.service.Ledger().Generate(a.Context(cmd.Context()), count)
				if err != nil {
					return a.Fail("invitation generation failed", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, invitations)
			})
		},
	}
}

func newInvitationsListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:          "list unsent|sent|accepted",
		Short:        "List invitations by state",
		Args:         cobra.ExactArgs(1),
		ValidArgs:    []string{listUnsent, listSent, listAccepted},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			issuer, ok := userbase.ParseAdminFilter(filter)
			if !ok {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("--filter must be admin, user or any, got %q", filter))
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				return runInvitationsList(cmd, a, args[0], issuer)
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "issuer filter for sent and accepted listings (admin|user|any)")

	return cmd
}

func runInvitationsList(cmd *cobra.Command, a *app, state string, filter userbase.AdminFilter) error {
	ledger := a.service.Ledger()
	ctx := cmd.Context()

	var (
		invitations []userbase.Invitation
		err         error
	)
	switch state {
	case listUnsent:
		invitations, err = ledger.ListUnsent(ctx)
	case listSent:
		invitations, err = ledger.ListSent(ctx, filter)
	case listAccepted:
		invitations, err = ledger.ListAccepted(ctx, filter)
	default:
		return WrapExitError(ExitCommandError, "invalid argument",
			fmt.Errorf("unknown listing %q", state))
	}
	if err != nil {
		return a.Fail("could not list invitations", err)
	}
	if invitations == nil {
		invitations = []userbase.Invitation{}
	}
	return writeResult(cmd.OutOrStdout(), a.format, invitations)
}

func newInvitationsSendCommand(rootOpts *RootOptions) *cobra.Command {
	var issuer string

	cmd := &cobra.Command{
		Use:          "send CODE NOTE",
		Short:        "Mark an invitation as handed out",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				inv, err := a.service.Ledger().Send(a.Context(cmd.Context()), args[0], issuer, args[1])
				if err != nil {
					return a.Fail("could not send invitation", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, inv)
			})
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "identity id recorded as the issuer")

	return cmd
}

func newInvitationsCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "cancel CODE",
		Short:        "Delete an invitation that was not accepted",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				if err := a.service.Ledger().Cancel(a.Context(cmd.Context()), args[0]); err != nil {
					return a.Fail("could not cancel invitation", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, map[string]any{
					"cancelled": args[0],
				})
			})
		},
	}
}
