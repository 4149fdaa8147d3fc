package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/mail"
	"autopost/internal/recipients"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	var (
		recordsPath string
		worksPath   string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Mail students about their published works",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(recordsPath) == "" || strings.TrimSpace(worksPath) == "" {
				return errors.New("--records and --works are required")
			}
			recordsFile, err := config.ExpandPath(recordsPath)
			if err != nil {
				return err
			}
			worksFile, err := config.ExpandPath(worksPath)
			if err != nil {
				return err
			}
			records, works, err := recipients.LoadFiles(recordsFile, worksFile)
			if err != nil {
				return err
			}
			plan := recipients.Plan(records, works)

			var sender mail.Sender
			if !dryRun {
				smtpSender, err := mail.NewSMTPSender(cfg)
				if err != nil {
					return err
				}
				sender = smtpSender
			}
			mailer := mail.NewMailer(cfg, sender, mail.WithLogger(ctx.ensureLogger()))

			out := cmd.OutOrStdout()
			if dryRun {
				for _, n := range plan {
					titles := make([]string, 0, len(n.Works))
					for _, w := range n.Works {
						titles = append(titles, w.Title)
					}
					fmt.Fprintf(out, "%s <%s>: %s\n", n.Salutation, n.Recipient.Email, strings.Join(titles, ", "))
				}
			}
			result, err := mailer.Deliver(cmd.Context(), plan, dryRun)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Planned %d, sent %d, failed %d\n", result.Planned, result.Sent, result.Failed)
			if result.Failed > 0 {
				return fmt.Errorf("%d mails failed", result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordsPath, "records", "", "JSON file with author records")
	cmd.Flags().StringVar(&worksPath, "works", "", "JSON file with published works")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without sending mail")
	return cmd
}
