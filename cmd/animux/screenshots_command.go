package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animux/internal/media/ffprobe"
	"animux/internal/screenshots"
)

func newScreenshotsCommand(ctx *commandContext) *cobra.Command {
	var (
		count int
		width int
	)

	cmd := &cobra.Command{
		Use:   "screenshots <input> <output-dir>",
		Short: "Capture evenly spaced preview frames",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}

			engine, err := screenshots.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			result, err := engine.Generate(cmd.Context(), args[0], args[1], probe.DurationSeconds(), screenshots.Options{
				Count:          count,
				ThumbnailWidth: width,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range result.FullSize {
				fmt.Fprintf(out, "%s\n%s\n", result.FullSize[i], result.Thumbnails[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Number of frames to capture (0 uses the default)")
	cmd.Flags().IntVar(&width, "width", 0, "Thumbnail width in pixels (0 uses the default)")
	return cmd
}

func newSpriteCommand(ctx *commandContext) *cobra.Command {
	var (
		interval   float64
		tileWidth  int
		tileHeight int
		columns    int
	)

	cmd := &cobra.Command{
		Use:   "sprite <input> <output-dir>",
		Short: "Build a seek-preview sprite sheet with a WebVTT index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}

			engine, err := screenshots.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			result, err := engine.GenerateSprite(cmd.Context(), args[0], args[1], probe.DurationSeconds(), screenshots.SpriteOptions{
				IntervalSeconds: interval,
				TileWidth:       tileWidth,
				TileHeight:      tileHeight,
				Columns:         columns,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sprite: %s (%d bytes)\n", result.SpritePath, result.SpriteSizeBytes)
			fmt.Fprintf(out, "VTT:    %s\n", result.VTTPath)
			return nil
		},
	}

	cmd.Flags().Float64Var(&interval, "interval", 0, "Seconds between sprite tiles (0 uses the default)")
	cmd.Flags().IntVar(&tileWidth, "tile-width", 0, "Tile width in pixels")
	cmd.Flags().IntVar(&tileHeight, "tile-height", 0, "Tile height in pixels")
	cmd.Flags().IntVar(&columns, "columns", 0, "Tiles per sprite row")
	return cmd
}
