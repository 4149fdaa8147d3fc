package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autopost/internal/notifications"
)

func newRefreshTokenCommand(ctx *commandContext) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "refresh-token",
		Short: "Exchange the Instagram access token for a fresh long-lived one",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireInstagramApp(); err != nil {
				return err
			}
			manager, err := ctx.tokenManager(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if check {
				status, err := manager.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, describeToken(status.Source, status.ExpiresAt, status.Remaining))
				return nil
			}
			status, err := manager.ForceRefresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, describeToken(status.Source, status.ExpiresAt, status.Remaining))
			payload := notifications.Payload{}
			if status.ExpiresAt != nil {
				payload["expiresAt"] = status.ExpiresAt.Format("2006-01-02")
			}
			if err := ctx.notifier().Publish(cmd.Context(), notifications.EventTokenRefreshed, payload); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "notification failed: %v\n", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only report the current token without refreshing")
	return cmd
}

func describeToken(source string, expiresAt *time.Time, remaining time.Duration) string {
	if expiresAt == nil {
		return fmt.Sprintf("Token (%s): expiry unknown or never expires", source)
	}
	days := int(remaining.Hours() / 24)
	return fmt.Sprintf("Token (%s): expires %s (%d days left)", source, expiresAt.Local().Format("2006-01-02 15:04"), days)
}
