package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"animux/internal/demux"
)

func newDemuxCommand(ctx *commandContext) *cobra.Command {
	var (
		skipVideo bool
		audioMode string
	)

	cmd := &cobra.Command{
		Use:   "demux <input> <output-dir>",
		Short: "Split a container into independent streams without re-encoding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := demux.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			result, err := engine.Demux(cmd.Context(), args[0], args[1], demux.Options{
				SkipVideo: skipVideo,
				AudioMode: demux.AudioMode(audioMode),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Video != nil {
				if result.Video.Path != "" {
					fmt.Fprintf(out, "Video:    %s\n", result.Video.Path)
				} else {
					fmt.Fprintf(out, "Video:    kept in source (stream %d)\n", result.Video.Source.StreamIndex)
				}
			}
			for _, track := range result.Audio {
				if track.Path != "" {
					fmt.Fprintf(out, "Audio:    %s\n", track.Path)
				} else {
					fmt.Fprintf(out, "Audio:    kept in source (stream %d, needs transcode)\n", track.Source.StreamIndex)
				}
			}
			for _, track := range result.Subtitles {
				fmt.Fprintf(out, "Subtitle: %s\n", track.Path)
			}
			if result.FontsDir != "" {
				fmt.Fprintf(out, "Fonts:    %s\n", result.FontsDir)
			}
			fmt.Fprintf(out, "Metadata: %s\n", result.MetadataPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipVideo, "skip-video", false, "Leave video in the source container")
	cmd.Flags().StringVar(&audioMode, "audio-mode", "all", "Audio extraction mode (all, smart)")
	return cmd
}
