package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"animux/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file's container, streams, and chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			fmt.Fprintf(out, "Duration:  %.2fs\n", result.DurationSeconds())

			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				detail := ""
				switch stream.CodecType {
				case "video":
					detail = fmt.Sprintf("%dx%d %s %d-bit", stream.Width, stream.Height, stream.PixFmt, ffprobe.BitDepth(stream.PixFmt))
				case "audio":
					bitrate := ffprobe.ExtractBitrate(stream)
					if bitrate > 0 {
						detail = fmt.Sprintf("%dch %d bps", stream.Channels, bitrate)
					} else {
						detail = fmt.Sprintf("%dch", stream.Channels)
					}
				case "attachment":
					detail = stream.AttachmentFilename()
				}
				rows = append(rows, []string{
					strconv.Itoa(stream.Index),
					stream.CodecType,
					stream.CodecName,
					stream.Language(),
					stream.Title(),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Lang", "Title", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if len(result.Chapters) > 0 {
				chapterRows := make([][]string, 0, len(result.Chapters))
				for i, chapter := range result.Chapters {
					chapterRows = append(chapterRows, []string{
						strconv.Itoa(i + 1),
						fmt.Sprintf("%.3f", chapter.StartSeconds()),
						fmt.Sprintf("%.3f", chapter.EndSeconds()),
						chapter.Title(),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Chapter", "Start", "End", "Title"},
					chapterRows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
				))
			}
			return nil
		},
	}
}
