package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"autopost/internal/config"
	"autopost/internal/gallery"
	"autopost/internal/store"
)

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath string
		noUpload   bool
		noThumbs   bool
		thumbWidth int
	)

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Export published works to gallery.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				objects, err := ctx.r2Client(cmd.Context())
				if err != nil {
					return err
				}
				exporter, err := gallery.NewExporter(cfg, st, objects, gallery.WithLogger(ctx.ensureLogger()))
				if err != nil {
					return err
				}
				output := strings.TrimSpace(outputPath)
				if output != "" {
					if output, err = config.ExpandPath(output); err != nil {
						return err
					}
				}
				payload, stats, err := exporter.Export(cmd.Context(), gallery.Options{
					OutputPath: output,
					Upload:     !noUpload,
					Thumbs:     !noThumbs,
					ThumbWidth: thumbWidth,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Exported %d of %d works (no images %d, no date %d)\n",
					stats.Exported, stats.Total, stats.SkippedNoImages, stats.SkippedNoCompletedDate)
				fmt.Fprintf(out, "Thumbnails: generated %d, existing %d, failed %d\n",
					stats.ThumbGenerated, stats.ThumbSkippedExisting, stats.ThumbFailed)
				if output != "" {
					fmt.Fprintf(out, "Wrote %s\n", output)
				}
				if !noUpload {
					fmt.Fprintf(out, "Uploaded %s (%d works)\n", objects.PublicURL(gallery.JSONKey), len(payload.Works))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&outputPath, "output", "", "Also write gallery.json to this local path")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Do not upload anything to R2")
	cmd.Flags().BoolVar(&noThumbs, "no-thumbs", false, "Skip thumbnail generation")
	cmd.Flags().IntVar(&thumbWidth, "thumb-width", 0, "Thumbnail width in pixels (default gallery.thumb_width)")
	return cmd
}
