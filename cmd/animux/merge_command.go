package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"animux/internal/media/ffprobe"
	"animux/internal/merge"
	"animux/internal/services"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		audioSpecs      []string
		externalSpecs   []string
		subtitleSpecs   []string
		chaptersFrom    string
		posterPath      string
		defaultAudio    int
		defaultSubtitle int
		subtitleCodec   string
	)

	cmd := &cobra.Command{
		Use:   "merge <video> <output>",
		Short: "Remux video, audio, subtitles, chapters, and attachments into one container",
		Long: `Remux separate streams into a single output container without re-encoding.

Track specs are comma-separated key=value pairs, for example:
  --audio path=ja.mka,lang=ja,title=Japanese
  --external-audio path=dub.m4a,lang=ru,offset=0.5
  --subtitle path=signs.ass,lang=en,font=a.ttf,font=b.otf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			mergeCfg := merge.Config{
				VideoPath:            args[0],
				OutputPath:           args[1],
				PosterPath:           posterPath,
				DefaultAudioIndex:    defaultAudio,
				DefaultSubtitleIndex: defaultSubtitle,
				SubtitleCodec:        subtitleCodec,
			}

			for _, spec := range audioSpecs {
				track, err := parseAudioSpec(spec)
				if err != nil {
					return err
				}
				mergeCfg.OriginalAudio = append(mergeCfg.OriginalAudio, track)
			}
			for _, spec := range externalSpecs {
				track, err := parseAudioSpec(spec)
				if err != nil {
					return err
				}
				mergeCfg.ExternalAudio = append(mergeCfg.ExternalAudio, track)
			}
			for _, spec := range subtitleSpecs {
				track, err := parseSubtitleSpec(spec)
				if err != nil {
					return err
				}
				mergeCfg.Subtitles = append(mergeCfg.Subtitles, track)
			}

			if chaptersFrom != "" {
				probe, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), chaptersFrom)
				if err != nil {
					return err
				}
				for _, chapter := range probe.Chapters {
					mergeCfg.Chapters = append(mergeCfg.Chapters, merge.Chapter{
						StartSeconds: chapter.StartSeconds(),
						EndSeconds:   chapter.EndSeconds(),
						Title:        chapter.Title(),
					})
				}
			}

			engine, err := merge.New(cfg, ctx.ensureLogger())
			if err != nil {
				return err
			}
			if err := engine.Merge(cmd.Context(), mergeCfg, progressPrinter(cmd.OutOrStdout())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged into %s\n", args[1])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&audioSpecs, "audio", nil, "Original audio track spec (repeatable)")
	cmd.Flags().StringArrayVar(&externalSpecs, "external-audio", nil, "External audio track spec (repeatable)")
	cmd.Flags().StringArrayVar(&subtitleSpecs, "subtitle", nil, "Subtitle track spec (repeatable)")
	cmd.Flags().StringVar(&chaptersFrom, "chapters-from", "", "Copy chapter markers from this media file")
	cmd.Flags().StringVar(&posterPath, "poster", "", "Poster image to attach as cover art")
	cmd.Flags().IntVar(&defaultAudio, "default-audio", 0, "Index of the default audio track across all audio inputs")
	cmd.Flags().IntVar(&defaultSubtitle, "default-subtitle", 0, "Index of the default subtitle track")
	cmd.Flags().StringVar(&subtitleCodec, "subtitle-codec", "", "Subtitle codec for the output (default ass)")
	return cmd
}

func parseAudioSpec(spec string) (merge.AudioInput, error) {
	var track merge.AudioInput
	err := parseTrackSpec(spec, func(key, value string) error {
		switch key {
		case "path":
			track.Path = value
		case "lang":
			track.Language = value
		case "title":
			track.Title = value
		case "offset":
			offset, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("offset %q: %w", value, err)
			}
			track.OffsetSeconds = offset
		default:
			return fmt.Errorf("unknown key %q", key)
		}
		return nil
	})
	if err != nil {
		return merge.AudioInput{}, services.Wrap(services.ErrValidation, "cli", "parse audio spec", spec, err)
	}
	if track.Path == "" {
		return merge.AudioInput{}, services.Wrap(services.ErrValidation, "cli", "parse audio spec", "audio spec needs path=", nil)
	}
	return track, nil
}

func parseSubtitleSpec(spec string) (merge.SubtitleInput, error) {
	var track merge.SubtitleInput
	err := parseTrackSpec(spec, func(key, value string) error {
		switch key {
		case "path":
			track.Path = value
		case "lang":
			track.Language = value
		case "title":
			track.Title = value
		case "font":
			track.Fonts = append(track.Fonts, value)
		default:
			return fmt.Errorf("unknown key %q", key)
		}
		return nil
	})
	if err != nil {
		return merge.SubtitleInput{}, services.Wrap(services.ErrValidation, "cli", "parse subtitle spec", spec, err)
	}
	if track.Path == "" {
		return merge.SubtitleInput{}, services.Wrap(services.ErrValidation, "cli", "parse subtitle spec", "subtitle spec needs path=", nil)
	}
	return track, nil
}

// parseTrackSpec splits "key=value,key=value" specs. A spec without any "="
// is shorthand for path=<spec>.
func parseTrackSpec(spec string, assign func(key, value string) error) error {
	if !strings.Contains(spec, "=") {
		return assign("path", strings.TrimSpace(spec))
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", part)
		}
		if err := assign(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}
