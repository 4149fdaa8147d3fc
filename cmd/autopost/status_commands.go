package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the post table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				summary, err := st.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				posts, err := st.List(cmd.Context())
				if err != nil {
					return err
				}
				day := strings.TrimSpace(dateFlag)
				if day != "" {
					if _, err := parseDate(day); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintln(out, strings.Join(renderSummary(summary, colorize), "\n"))

				rows := make([][]string, 0, len(posts))
				for _, post := range posts {
					if day != "" && post.ScheduledDate != day {
						continue
					}
					if day == "" && !all && post.FullyPosted() && len(post.Errors()) == 0 {
						continue
					}
					rows = append(rows, postRow(post, colorize))
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No matching posts")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Folder", "Work", "Scheduled", "Instagram", "X", "Last error"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Only show posts scheduled on this day (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "Include fully posted rows")
	return cmd
}

func postRow(post *store.Post, colorize bool) []string {
	scheduled := post.ScheduledDate
	switch {
	case post.Skip:
		scheduled = colorText("skip", statusWarn, colorize)
	case scheduled == "":
		scheduled = "-"
	}
	lastError := ""
	if errs := post.Errors(); len(errs) > 0 {
		lastError = colorText(truncate(errs[len(errs)-1], 60), statusError, colorize)
	}
	return []string{
		strconv.FormatInt(post.ID, 10),
		post.FolderName,
		post.WorkName,
		scheduled,
		platformCell(post.InstagramPosted, colorize),
		platformCell(post.XPosted, colorize),
		lastError,
	}
}

func platformCell(posted, colorize bool) string {
	if posted {
		return colorText(yesNo(true), statusOK, colorize)
	}
	return yesNo(false)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	var (
		dateFlag      string
		workName      string
		caption       string
		tags          string
		skip          bool
		clearSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "schedule <id>",
		Short: "Set the work name, posting date and caption of a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid row id %q", args[0])
			}
			var details store.Details
			flags := cmd.Flags()
			if flags.Changed("date") {
				date, err := parseDate(dateFlag)
				if err != nil {
					return err
				}
				value := date.Format(store.DateLayout)
				details.ScheduledDate = &value
			}
			if clearSchedule {
				empty := ""
				details.ScheduledDate = &empty
			}
			if flags.Changed("work-name") {
				details.WorkName = &workName
			}
			if flags.Changed("caption") {
				details.Caption = &caption
			}
			if flags.Changed("tags") {
				details.Tags = &tags
			}
			if flags.Changed("skip") {
				details.Skip = &skip
			}
			if details == (store.Details{}) {
				return errors.New("nothing to update; pass at least one of --date, --work-name, --caption, --tags, --skip, --clear")
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				if err := st.UpdateDetails(cmd.Context(), id, details); err != nil {
					return err
				}
				post, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Row %d (%s): work %q, scheduled %s, skip %s\n",
					post.ID, post.FolderName, post.WorkName, valueOrDash(post.ScheduledDate), yesNo(post.Skip))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dateFlag, "date", "", "Posting day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&workName, "work-name", "", "Work name used in the generated caption")
	cmd.Flags().StringVar(&caption, "caption", "", "Custom caption replacing the generated one")
	cmd.Flags().StringVar(&tags, "tags", "", "Hashtags (empty falls back to posting.default_tags)")
	cmd.Flags().BoolVar(&skip, "skip", false, "Exclude the row from daily posting")
	cmd.Flags().BoolVar(&clearSchedule, "clear", false, "Remove the posting day")
	return cmd
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
