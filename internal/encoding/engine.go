package encoding

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"animux/internal/config"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
)

// encodeProbe abstracts media inspection for tests.
var encodeProbe = ffprobe.Inspect

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

// Engine coordinates ffmpeg transcode jobs.
type Engine struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
	logger *slog.Logger
}

// New constructs a transcode engine bound to the configured ffmpeg binary.
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
		logger: logging.NewComponentLogger(logger, "encoding"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// probeDuration returns the container duration for progress computation, or
// 0 when the probe fails (progress is then simply not reported).
func (e *Engine) probeDuration(ctx context.Context, path string) float64 {
	result, err := encodeProbe(ctx, e.cfg.FFprobeBinary(), path)
	if err != nil {
		e.logger.Warn("probe for duration failed; progress disabled",
			logging.String("input", path),
			logging.Error(err),
		)
		return 0
	}
	return result.DurationSeconds()
}

// run executes ffmpeg, feeding diagnostic lines through the tracker and
// sampling log output.
func (e *Engine) run(ctx context.Context, args []string, tracker *progressTracker, progress ProgressFunc) error {
	sampler := logging.NewProgressSampler(5)
	logger := logging.WithContext(ctx, e.logger)
	logger.Debug("launching ffmpeg", logging.String("args", strings.Join(args, " ")))
	return e.runner.Run(ctx, args, func(line string) {
		event, ok := tracker.Update(line)
		if !ok {
			return
		}
		if progress != nil {
			progress(event)
		}
		if sampler.ShouldLog(event.Percent, event.Stage) {
			logger.Info("transcode progress",
				logging.String("progress_stage", event.Stage),
				logging.Float64("progress_percent", event.Percent),
				logging.Float64("progress_eta_seconds", event.ETASeconds),
			)
		}
	})
}
