package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/poster"
	"autopost/internal/store"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish the posts scheduled for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(dateFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				lock := flock.New(cfg.LockPath())
				ok, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire lock: %w", err)
				}
				if !ok {
					return errors.New("another autopost post run is already in progress")
				}
				defer lock.Unlock()

				p, err := ctx.buildPoster(cmd.Context(), st)
				if err != nil {
					return err
				}
				stats, err := p.RunDaily(cmd.Context(), date)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d processed, Instagram %d, X %d, errors %d\n",
					date.Format(store.DateLayout), stats.Processed, stats.InstagramSuccess, stats.XSuccess, stats.Errors)
				if stats.Errors > 0 {
					return fmt.Errorf("%d post errors; see the error log in `autopost status`", stats.Errors)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Day to post (YYYY-MM-DD, default today)")
	return cmd
}

func newTestPostCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string

	cmd := &cobra.Command{
		Use:   "test-post <folder>",
		Short: "Post one work folder immediately, ignoring the schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform := poster.Platform(strings.ToLower(strings.TrimSpace(platformFlag)))
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				p, err := ctx.buildPoster(cmd.Context(), st)
				if err != nil {
					return err
				}
				ids, err := p.TestPost(cmd.Context(), args[0], platform)
				printPostIDs(cmd, ids)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&platformFlag, "platform", string(poster.PlatformBoth), "Target platform: instagram, x or both")
	return cmd
}

func printPostIDs(cmd *cobra.Command, ids map[poster.Platform]string) {
	platforms := make([]string, 0, len(ids))
	for platform := range ids {
		platforms = append(platforms, string(platform))
	}
	sort.Strings(platforms)
	for _, platform := range platforms {
		fmt.Fprintf(cmd.OutOrStdout(), "%s post id: %s\n", platform, ids[poster.Platform(platform)])
	}
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Register new work folders in the post table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				p := poster.New(cfg, st, poster.WithLogger(ctx.ensureLogger()), poster.WithNotifier(ctx.notifier()))
				result, err := p.Scan(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d rows from %d new folders\n", result.Rows, result.Folders)
				return nil
			})
		},
	}
}
