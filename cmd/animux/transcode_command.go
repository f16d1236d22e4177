package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"animux/internal/encoding"
	"animux/internal/media/ffprobe"
)

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	transcodeCmd := &cobra.Command{
		Use:   "transcode",
		Short: "Transcode video or audio streams",
	}
	transcodeCmd.AddCommand(newTranscodeVideoCommand(ctx))
	transcodeCmd.AddCommand(newTranscodeAudioCommand(ctx))
	transcodeCmd.AddCommand(newTranscodeSampleCommand(ctx))
	return transcodeCmd
}

func newTranscodeVideoCommand(ctx *commandContext) *cobra.Command {
	var profileName string

	cmd := &cobra.Command{
		Use:   "video <input> <output>",
		Short: "Encode the main video stream with a named profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			profile, err := encoding.LookupProfile(profileName)
			if err != nil {
				return err
			}

			probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			bitDepth := 8
			if videos := probe.VideoStreams(); len(videos) > 0 {
				bitDepth = ffprobe.BitDepth(videos[0].PixFmt)
			}

			engine, err := encoding.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			if err := engine.TranscodeWithProfile(cmd.Context(), args[0], args[1], profile, bitDepth, progressPrinter(cmd.OutOrStdout())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encoded %s -> %s (profile %s)\n", args[0], args[1], profile.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "standard",
		"Encode profile ("+strings.Join(encoding.ProfileNames(), ", ")+")")
	return cmd
}

func newTranscodeAudioCommand(ctx *commandContext) *cobra.Command {
	var (
		codec      string
		bitrate    int
		offset     float64
		vbr        bool
		sampleRate int
		channels   int
	)

	cmd := &cobra.Command{
		Use:   "audio <input> <output>",
		Short: "Encode the first audio stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := encoding.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}

			if bitrate <= 0 {
				probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
				if err != nil {
					return err
				}
				var source int64
				if audio := probe.AudioStreams(); len(audio) > 0 {
					source = ffprobe.ExtractBitrate(audio[0])
				}
				bitrate = encoding.SuggestAudioBitrate(source)
			}

			opts := encoding.AudioOptions{
				Codec:             codec,
				BitrateKbps:       bitrate,
				SyncOffsetSeconds: offset,
				SampleRate:        sampleRate,
				Channels:          channels,
			}
			progress := progressPrinter(cmd.OutOrStdout())
			if vbr {
				err = engine.TranscodeAudioVBR(cmd.Context(), args[0], args[1], opts, progress)
			} else {
				err = engine.TranscodeAudioCBR(cmd.Context(), args[0], args[1], opts, progress)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Encoded %s -> %s (%s %dk)\n", args[0], args[1], codec, bitrate)
			return nil
		},
	}

	cmd.Flags().StringVar(&codec, "codec", "aac", "Target audio codec (aac, mp3, opus, flac)")
	cmd.Flags().IntVarP(&bitrate, "bitrate", "b", 0, "Target bitrate in kbps (0 derives it from the source)")
	cmd.Flags().Float64Var(&offset, "offset", 0, "Sync offset in seconds (positive trims, negative delays)")
	cmd.Flags().BoolVar(&vbr, "vbr", false, "Single-pass encode instead of the two-phase CBR pipeline")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "Output sample rate override")
	cmd.Flags().IntVar(&channels, "channels", 0, "Output channel count override")
	return cmd
}

func newTranscodeSampleCommand(ctx *commandContext) *cobra.Command {
	var (
		profileName string
		start       float64
		duration    float64
	)

	cmd := &cobra.Command{
		Use:   "sample <input> <output>",
		Short: "Encode a bounded sample for quality calibration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			profile, err := encoding.LookupProfile(profileName)
			if err != nil {
				return err
			}

			probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			bitDepth := 8
			if videos := probe.VideoStreams(); len(videos) > 0 {
				bitDepth = ffprobe.BitDepth(videos[0].PixFmt)
			}

			engine, err := encoding.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			result, err := engine.EncodeSample(cmd.Context(), args[0], args[1], profile, start, duration, bitDepth, progressPrinter(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample: %s (%d bytes, encoded in %.1fs)\n",
				result.OutputPath, result.OutputSizeBytes, result.EncodingTimeSeconds)
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "standard", "Encode profile")
	cmd.Flags().Float64Var(&start, "start", 0, "Sample window start in seconds")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Sample window length in seconds (0 uses the configured default)")
	return cmd
}
