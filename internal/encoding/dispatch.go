package encoding

import (
	"context"
	"errors"

	"animux/internal/config"
	"animux/internal/workerpool"
)

// Limits is a snapshot of the dispatcher's pool caps.
type Limits struct {
	VideoMax    int
	VideoActive int
	AudioMax    int
	AudioActive int
}

// Dispatcher funnels transcode jobs through two admission pools: a small
// GPU-bound cap for video and a CPU-core-sized cap for audio. Caps can be
// adjusted at runtime without touching running jobs.
type Dispatcher struct {
	engine *Engine
	video  *workerpool.Pool
	audio  *workerpool.Pool
}

// NewDispatcher sizes the pools from the configured caps.
func NewDispatcher(cfg *config.Config, engine *Engine) (*Dispatcher, error) {
	if engine == nil {
		return nil, errors.New("engine required")
	}
	return &Dispatcher{
		engine: engine,
		video:  workerpool.New(cfg.Concurrency.VideoMax),
		audio:  workerpool.New(cfg.Concurrency.AudioMax),
	}, nil
}

// Limits reports current caps and active counts.
func (d *Dispatcher) Limits() Limits {
	return Limits{
		VideoMax:    d.video.MaxConcurrent(),
		VideoActive: d.video.Active(),
		AudioMax:    d.audio.MaxConcurrent(),
		AudioActive: d.audio.Active(),
	}
}

// SetVideoMaxConcurrent adjusts the video pool cap.
func (d *Dispatcher) SetVideoMaxConcurrent(n int) { d.video.SetMaxConcurrent(n) }

// SetAudioMaxConcurrent adjusts the audio pool cap.
func (d *Dispatcher) SetAudioMaxConcurrent(n int) { d.audio.SetMaxConcurrent(n) }

// TranscodeVideo runs a video encode once the video pool admits it.
func (d *Dispatcher) TranscodeVideo(ctx context.Context, input, output string, opts VideoOptions, progress ProgressFunc) error {
	return d.video.Submit(ctx, func(taskCtx context.Context) error {
		return d.engine.TranscodeVideo(taskCtx, input, output, opts, progress)
	})
}

// TranscodeWithProfile runs a profile encode once the video pool admits it.
func (d *Dispatcher) TranscodeWithProfile(ctx context.Context, input, output string, profile Profile, sourceBitDepth int, progress ProgressFunc) error {
	return d.video.Submit(ctx, func(taskCtx context.Context) error {
		return d.engine.TranscodeWithProfile(taskCtx, input, output, profile, sourceBitDepth, progress)
	})
}

// TranscodeAudioCBR runs a two-phase audio encode once the audio pool
// admits it.
func (d *Dispatcher) TranscodeAudioCBR(ctx context.Context, input, output string, opts AudioOptions, progress ProgressFunc) error {
	return d.audio.Submit(ctx, func(taskCtx context.Context) error {
		return d.engine.TranscodeAudioCBR(taskCtx, input, output, opts, progress)
	})
}

// TranscodeAudioVBR runs a single-pass audio encode once the audio pool
// admits it.
func (d *Dispatcher) TranscodeAudioVBR(ctx context.Context, input, output string, opts AudioOptions, progress ProgressFunc) error {
	return d.audio.Submit(ctx, func(taskCtx context.Context) error {
		return d.engine.TranscodeAudioVBR(taskCtx, input, output, opts, progress)
	})
}

// Close shuts both pools down. Running jobs finish normally.
func (d *Dispatcher) Close() {
	d.video.Close()
	d.audio.Close()
}
