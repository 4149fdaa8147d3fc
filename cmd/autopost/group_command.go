package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/photos"
)

func newGroupCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceFlag string
		destFlag   string
		threshold  int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group raw photos into work folders by capture time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(strings.TrimSpace(sourceFlag))
			if err != nil {
				return err
			}
			if source == "" {
				return errors.New("--source is required")
			}
			dest := strings.TrimSpace(destFlag)
			if dest == "" {
				dest = cfg.Paths.GroupedDir
			}
			if dest, err = config.ExpandPath(dest); err != nil {
				return err
			}
			gap := cfg.GroupingThreshold()
			if cmd.Flags().Changed("threshold") {
				if threshold <= 0 {
					return fmt.Errorf("--threshold must be positive, got %d", threshold)
				}
				gap = time.Duration(threshold) * time.Minute
			}

			found, err := photos.Scan(source, ctx.ensureLogger())
			if err != nil {
				return err
			}
			groups := photos.GroupByTime(found, gap)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d photos in %d groups (gap > %s)\n", len(found), len(groups), gap)
			for i, g := range groups {
				fmt.Fprintf(out, "  %s: %d photos, %s – %s\n", photos.GroupDirName(i+1), len(g),
					g.First().TakenTime.Format("2006-01-02 15:04"), g.Last().TakenTime.Format("15:04"))
			}
			if dryRun || len(groups) == 0 {
				return nil
			}
			dirs, err := photos.Materialize(dest, groups)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %d folders to %s\n", len(dirs), dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", "", "Directory holding the raw photos (searched recursively)")
	cmd.Flags().StringVar(&destFlag, "dest", "", "Destination for group folders (default paths.grouped_dir)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Gap in minutes that starts a new group (default grouping.threshold_minutes)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the groups without copying files")
	return cmd
}
