package main

import (
	"github.com/spf13/cobra"
)

// NewSessionsCommand groups the session commands. They only reach live
// sessions when USERBASE_REDIS_ADDR points at the shared store.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage issued sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "revoke SESSION_ID",
		Short:        "Revoke a session so its token stops resolving",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(a *app) error {
				if a.settings.RedisAddr == "" {
					a.logger.GetLogger("cli").Warn("no shared session store configured, revoking from a local store")
				}
				if err := a.service.Sessions().Revoke(a.Context(cmd.Context()), args[0]); err != nil {
					return a.Fail("could not revoke session", err)
				}
				return writeResult(cmd.OutOrStdout(), a.format, map[string]any{
					"revoked": args[0],
				})
			})
		},
	})

	return cmd
}
