package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"animux/internal/config"
	"animux/internal/encoding"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
	"animux/internal/services"
)

// mergeProbe abstracts media inspection for tests.
var mergeProbe = ffprobe.Inspect

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

// Engine assembles a final container from extracted and transcoded streams,
// copying codecs unchanged except subtitles.
type Engine struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
	logger *slog.Logger
}

// New constructs a merge engine bound to the configured ffmpeg binary.
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
		logger: logging.NewComponentLogger(logger, "merge"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// fontMimeType infers the attachment MIME type from the font extension.
func fontMimeType(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".otf") {
		return "application/vnd.ms-opentype"
	}
	return "application/x-truetype-font"
}

// posterMimeType infers the attachment MIME type for a cover image.
func posterMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// chapterSidecar renders chapters as an ffmetadata document with a
// millisecond timebase.
func chapterSidecar(chapters []Chapter) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	for _, chapter := range chapters {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", int64(math.Round(chapter.StartSeconds*1000)))
		fmt.Fprintf(&b, "END=%d\n", int64(math.Round(chapter.EndSeconds*1000)))
		if chapter.Title != "" {
			fmt.Fprintf(&b, "title=%s\n", escapeMetadataValue(chapter.Title))
		}
	}
	return b.String()
}

// escapeMetadataValue escapes the characters ffmetadata treats specially.
func escapeMetadataValue(value string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "=", "\\=", ";", "\\;", "#", "\\#", "\n", "\\\n")
	return replacer.Replace(value)
}

func offsetArgs(offsetSeconds float64) []string {
	switch {
	case offsetSeconds > 0:
		return []string{"-ss", encoding.FormatSeconds(offsetSeconds)}
	case offsetSeconds < 0:
		return []string{"-itsoffset", fmt.Sprintf("%.3f", -offsetSeconds)}
	default:
		return nil
	}
}

// buildArgs constructs the full remux command line. Inputs are appended in
// a fixed order (video, chapter sidecar, original audio, external audio,
// subtitles); each group records its input-index offset because earlier
// groups may be absent.
func (e *Engine) buildArgs(cfg Config, chapterPath string) ([]string, error) {
	if cfg.VideoPath == "" {
		return nil, errors.New("video path required")
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("output path required")
	}
	subtitleCodec := cfg.SubtitleCodec
	if subtitleCodec == "" {
		subtitleCodec = "ass"
	}

	args := []string{"-y", "-hide_banner", "-i", cfg.VideoPath}
	inputIndex := 1

	chapterInput := -1
	if chapterPath != "" {
		args = append(args, "-f", "ffmetadata", "-i", chapterPath)
		chapterInput = inputIndex
		inputIndex++
	}

	audio := append(append([]AudioInput{}, cfg.OriginalAudio...), cfg.ExternalAudio...)
	audioInputs := make([]int, len(audio))
	for i, track := range audio {
		args = append(args, offsetArgs(track.OffsetSeconds)...)
		args = append(args, "-i", track.Path)
		audioInputs[i] = inputIndex
		inputIndex++
	}

	subtitleInputs := make([]int, len(cfg.Subtitles))
	for i, track := range cfg.Subtitles {
		args = append(args, "-i", track.Path)
		subtitleInputs[i] = inputIndex
		inputIndex++
	}

	args = append(args, "-map", "0:v:0")
	for _, idx := range audioInputs {
		args = append(args, "-map", fmt.Sprintf("%d:a:0", idx))
	}
	for _, idx := range subtitleInputs {
		args = append(args, "-map", fmt.Sprintf("%d:s:0", idx))
	}
	if chapterInput >= 0 {
		args = append(args, "-map_chapters", fmt.Sprint(chapterInput))
	}

	args = append(args, "-c", "copy", "-c:s", subtitleCodec)

	for i, track := range audio {
		if track.Language != "" {
			args = append(args, fmt.Sprintf("-metadata:s:a:%d", i), "language="+track.Language)
		}
		if track.Title != "" {
			args = append(args, fmt.Sprintf("-metadata:s:a:%d", i), "title="+track.Title)
		}
		flag := "0"
		if i == cfg.DefaultAudioIndex {
			flag = "default"
		}
		args = append(args, fmt.Sprintf("-disposition:a:%d", i), flag)
	}
	for i, track := range cfg.Subtitles {
		if track.Language != "" {
			args = append(args, fmt.Sprintf("-metadata:s:s:%d", i), "language="+track.Language)
		}
		if track.Title != "" {
			args = append(args, fmt.Sprintf("-metadata:s:s:%d", i), "title="+track.Title)
		}
		flag := "0"
		if i == cfg.DefaultSubtitleIndex {
			flag = "default"
		}
		args = append(args, fmt.Sprintf("-disposition:s:%d", i), flag)
	}

	// Fonts attach per subtitle track in order, then the poster last.
	attachment := 0
	for _, track := range cfg.Subtitles {
		for _, font := range track.Fonts {
			args = append(args, "-attach", font,
				fmt.Sprintf("-metadata:s:t:%d", attachment), "mimetype="+fontMimeType(font))
			attachment++
		}
	}
	if cfg.PosterPath != "" {
		args = append(args, "-attach", cfg.PosterPath,
			fmt.Sprintf("-metadata:s:t:%d", attachment), "mimetype="+posterMimeType(cfg.PosterPath),
			fmt.Sprintf("-metadata:s:t:%d", attachment), "filename=cover")
	}

	args = append(args, cfg.OutputPath)
	return args, nil
}

// Merge assembles the output container. The chapter sidecar, when present,
// is written next to the output and removed when the job finishes either way.
func (e *Engine) Merge(ctx context.Context, cfg Config, progress encoding.ProgressFunc) error {
	if e == nil {
		return errors.New("engine not initialized")
	}

	chapterPath := ""
	if len(cfg.Chapters) > 0 {
		chapterPath = cfg.OutputPath + ".chapters.txt"
		if err := os.WriteFile(chapterPath, []byte(chapterSidecar(cfg.Chapters)), 0o644); err != nil {
			return services.Wrap(nil, "merge", "write chapter sidecar", "", err)
		}
		defer os.Remove(chapterPath)
	}

	args, err := e.buildArgs(cfg, chapterPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "merge", "build command", err.Error(), nil)
	}

	duration := e.probeDuration(ctx, cfg.VideoPath)
	sampler := logging.NewProgressSampler(5)
	logger := logging.WithContext(ctx, e.logger)
	started := time.Now()

	err = e.runner.Run(ctx, args, func(line string) {
		seconds, ok := encoding.ParseTimeToSeconds(line)
		if !ok || duration <= 0 {
			return
		}
		percent := math.Min(100, seconds/duration*100)
		event := encoding.ProgressEvent{
			Percent:       percent,
			CurrentTime:   seconds,
			TotalDuration: duration,
			Stage:         "merge",
		}
		if percent > 0 {
			elapsed := time.Since(started).Seconds()
			event.ETASeconds = elapsed / percent * (100 - percent)
		}
		if progress != nil {
			progress(event)
		}
		if sampler.ShouldLog(percent, "merge") {
			logger.Info("merge progress",
				logging.Float64("progress_percent", percent),
				logging.Float64("progress_eta_seconds", event.ETASeconds),
			)
		}
	})
	if err != nil {
		return services.Wrap(nil, "merge", "remux", "", err)
	}
	return nil
}

func (e *Engine) probeDuration(ctx context.Context, path string) float64 {
	result, err := mergeProbe(ctx, e.cfg.FFprobeBinary(), path)
	if err != nil {
		e.logger.Warn("probe for duration failed; progress disabled",
			logging.String("input", path),
			logging.Error(err),
		)
		return 0
	}
	return result.DurationSeconds()
}
