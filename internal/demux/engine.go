package demux

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"animux/internal/config"
	"animux/internal/encoding"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
	"animux/internal/services"
)

// demuxProbe abstracts media inspection for tests.
var demuxProbe = ffprobe.Inspect

// Option configures the engine.
type Option func(*Engine)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(runner *ffmpeg.Runner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// Engine splits containers into independent streams without re-encoding.
type Engine struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
	logger *slog.Logger
}

// New constructs a demux engine bound to the configured ffmpeg binary.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	runner, err := ffmpeg.NewRunner(cfg.FFmpegBinary())
	if err != nil {
		return nil, err
	}
	engine := &Engine{
		cfg:    cfg,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "demux"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// subtitleExtension maps a subtitle codec to an output file extension.
func subtitleExtension(codec string) string {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "subrip", "srt":
		return ".srt"
	case "webvtt":
		return ".vtt"
	case "ssa":
		return ".ssa"
	default:
		return ".ass"
	}
}

// audioExtension maps an audio codec to a lossless-copy container extension.
func audioExtension(codec string) string {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "mp3":
		return ".mp3"
	case "aac":
		return ".m4a"
	case "flac":
		return ".flac"
	case "opus":
		return ".opus"
	case "ac3", "eac3":
		return ".ac3"
	default:
		return ".mka"
	}
}

// trackBaseName builds an output name like "audio_01_ja".
func trackBaseName(kind string, ordinal int, language string) string {
	if language == "" {
		return fmt.Sprintf("%s_%02d", kind, ordinal)
	}
	return fmt.Sprintf("%s_%02d_%s", kind, ordinal, language)
}

// Demux extracts streams from input into outDir per the given options and
// writes a JSON metadata sidecar describing the result.
func (e *Engine) Demux(ctx context.Context, input, outDir string, opts Options) (Result, error) {
	if e == nil {
		return Result{}, errors.New("engine not initialized")
	}
	if opts.AudioMode == "" {
		opts.AudioMode = AudioModeAll
	}
	if opts.AudioMode != AudioModeAll && opts.AudioMode != AudioModeSmart {
		return Result{}, services.Wrap(services.ErrValidation, "demux", "validate options", fmt.Sprintf("unknown audio mode %q", opts.AudioMode), nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, services.Wrap(nil, "demux", "create output directory", "", err)
	}

	probe, err := demuxProbe(ctx, e.cfg.FFprobeBinary(), input)
	if err != nil {
		return Result{}, err
	}

	logger := logging.WithContext(ctx, e.logger)
	result := Result{
		Container:       probe.Format.FormatName,
		DurationSeconds: probe.DurationSeconds(),
		Tags:            probe.Format.Tags,
	}

	if video, err := e.demuxVideo(ctx, input, outDir, probe, opts); err != nil {
		return Result{}, err
	} else if video != nil {
		result.Video = video
	}

	audio, err := e.demuxAudio(ctx, input, outDir, probe, opts)
	if err != nil {
		return Result{}, err
	}
	result.Audio = audio

	subtitles, err := e.demuxSubtitles(ctx, input, outDir, probe)
	if err != nil {
		return Result{}, err
	}
	result.Subtitles = subtitles

	for _, chapter := range probe.Chapters {
		result.Chapters = append(result.Chapters, Chapter{
			StartSeconds: chapter.StartSeconds(),
			EndSeconds:   chapter.EndSeconds(),
			Title:        chapter.Title(),
		})
	}

	fontsDir, err := e.extractAttachments(ctx, input, outDir, probe)
	if err != nil {
		return Result{}, err
	}
	result.FontsDir = fontsDir

	sidecar := filepath.Join(outDir, "metadata.json")
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return Result{}, services.Wrap(nil, "demux", "encode metadata", "", err)
	}
	if err := os.WriteFile(sidecar, payload, 0o644); err != nil {
		return Result{}, services.Wrap(nil, "demux", "write metadata sidecar", "", err)
	}
	result.MetadataPath = sidecar

	logger.Info("demux complete",
		logging.String("input", input),
		logging.Int("audio_tracks", len(result.Audio)),
		logging.Int("subtitle_tracks", len(result.Subtitles)),
		logging.Bool("video_extracted", result.Video != nil && result.Video.Path != ""),
	)
	return result, nil
}

func (e *Engine) demuxVideo(ctx context.Context, input, outDir string, probe ffprobe.Result, opts Options) (*VideoTrack, error) {
	streams := probe.VideoStreams()
	if len(streams) == 0 {
		return nil, nil
	}
	stream := streams[0]
	track := &VideoTrack{
		Codec:    stream.CodecName,
		Width:    stream.Width,
		Height:   stream.Height,
		PixFmt:   stream.PixFmt,
		BitDepth: ffprobe.BitDepth(stream.PixFmt),
	}
	if opts.SkipVideo {
		track.Source = &SourceRef{Path: input, StreamIndex: stream.Index}
		return track, nil
	}
	output := filepath.Join(outDir, "video.mkv")
	args := []string{"-y", "-hide_banner", "-i", input, "-map", "0:v:0", "-c", "copy", "-an", "-sn", output}
	if err := e.runner.Run(ctx, args, nil); err != nil {
		return nil, services.Wrap(nil, "demux", "extract video", "", err)
	}
	track.Path = output
	return track, nil
}

func (e *Engine) demuxAudio(ctx context.Context, input, outDir string, probe ffprobe.Result, opts Options) ([]AudioTrack, error) {
	var tracks []AudioTrack
	for ordinal, stream := range probe.AudioStreams() {
		bitrate := ffprobe.ExtractBitrate(stream)
		track := AudioTrack{
			Codec:          stream.CodecName,
			BitrateBits:    bitrate,
			Channels:       stream.Channels,
			SampleRate:     stream.SampleRate,
			Language:       stream.Language(),
			Title:          stream.Title(),
			Default:        stream.Disposition.Default != 0,
			NeedsTranscode: encoding.NeedsAudioTranscode(stream.CodecName, bitrate),
		}
		if opts.AudioMode == AudioModeSmart && track.NeedsTranscode {
			// Leave the track in the source; the transcode stage decodes
			// it directly, avoiding a redundant lossless copy.
			track.Source = &SourceRef{Path: input, StreamIndex: stream.Index}
			tracks = append(tracks, track)
			continue
		}
		output := filepath.Join(outDir, trackBaseName("audio", ordinal, track.Language)+audioExtension(stream.CodecName))
		args := []string{
			"-y", "-hide_banner", "-i", input,
			"-map", fmt.Sprintf("0:a:%d", ordinal),
			"-c", "copy", "-vn", "-sn",
			output,
		}
		if err := e.runner.Run(ctx, args, nil); err != nil {
			return nil, services.Wrap(nil, "demux", fmt.Sprintf("extract audio track %d", ordinal), "", err)
		}
		track.Path = output
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (e *Engine) demuxSubtitles(ctx context.Context, input, outDir string, probe ffprobe.Result) ([]SubtitleTrack, error) {
	var tracks []SubtitleTrack
	for ordinal, stream := range probe.SubtitleStreams() {
		language := stream.Language()
		output := filepath.Join(outDir, trackBaseName("subtitle", ordinal, language)+subtitleExtension(stream.CodecName))
		args := []string{
			"-y", "-hide_banner", "-i", input,
			"-map", fmt.Sprintf("0:s:%d", ordinal),
			output,
		}
		if err := e.runner.Run(ctx, args, nil); err != nil {
			return nil, services.Wrap(nil, "demux", fmt.Sprintf("extract subtitle track %d", ordinal), "", err)
		}
		tracks = append(tracks, SubtitleTrack{
			Path:     output,
			Codec:    stream.CodecName,
			Language: language,
			Title:    stream.Title(),
			Default:  stream.Disposition.Default != 0,
			Forced:   stream.Disposition.Forced != 0,
		})
	}
	return tracks, nil
}

// extractAttachments dumps embedded fonts into a fonts/ subdirectory.
// Attachments are addressed by their ordinal among attachment-type streams,
// never by absolute stream index.
func (e *Engine) extractAttachments(ctx context.Context, input, outDir string, probe ffprobe.Result) (string, error) {
	attachments := probe.AttachmentStreams()
	if len(attachments) == 0 {
		return "", nil
	}
	fontsDir := filepath.Join(outDir, "fonts")
	if err := os.MkdirAll(fontsDir, 0o755); err != nil {
		return "", services.Wrap(nil, "demux", "create fonts directory", "", err)
	}
	for ordinal, stream := range attachments {
		name := stream.AttachmentFilename()
		if name == "" {
			name = fmt.Sprintf("attachment_%02d", ordinal)
		}
		output := filepath.Join(fontsDir, filepath.Base(name))
		args := []string{
			"-y", "-hide_banner",
			"-dump_attachment:t:" + fmt.Sprint(ordinal), output,
			"-i", input,
		}
		err := e.runner.Run(ctx, args, nil)
		if err != nil {
			// ffmpeg exits non-zero when asked only to dump an attachment
			// with no output file; the dump itself still happens.
			if _, statErr := os.Stat(output); statErr != nil {
				return "", services.Wrap(nil, "demux", fmt.Sprintf("extract attachment %d", ordinal), "", err)
			}
		}
	}
	return fontsDir, nil
}
