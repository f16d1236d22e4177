package encoding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"animux/internal/services"
)

// EncodeSample runs the video pipeline restricted to a time window and
// reports the output size and wall-clock encode time. An external quality
// search uses these results to evaluate size/quality trade-offs; this engine
// does not itself compute quality scores.
func (e *Engine) EncodeSample(ctx context.Context, input, output string, profile Profile, startSeconds, durationSeconds float64, sourceBitDepth int, progress ProgressFunc) (SampleResult, error) {
	if e == nil {
		return SampleResult{}, errors.New("engine not initialized")
	}
	if startSeconds < 0 {
		startSeconds = 0
	}
	if durationSeconds <= 0 {
		durationSeconds = float64(e.cfg.Encoding.SampleDurationSeconds)
	}

	opts := profile.Options(e.cfg.Encoding.UseGPU, sourceBitDepth)
	// The window start reuses the pre-input seek; the duration cap is
	// spliced in ahead of the output path.
	opts.SyncOffsetSeconds = startSeconds
	args, err := e.buildVideoArgs(input, output, opts)
	if err != nil {
		return SampleResult{}, services.Wrap(services.ErrValidation, "encoding", "sample encode", err.Error(), nil)
	}
	bounded := make([]string, 0, len(args)+2)
	bounded = append(bounded, args[:len(args)-1]...)
	bounded = append(bounded, "-t", fmt.Sprintf("%.3f", durationSeconds), output)

	tracker := newProgressTracker("sample encode", durationSeconds)
	started := time.Now()
	if err := e.run(ctx, bounded, tracker, progress); err != nil {
		return SampleResult{}, services.Wrap(nil, "encoding", "sample encode", "", err)
	}
	elapsed := time.Since(started).Seconds()

	info, err := os.Stat(output)
	if err != nil {
		return SampleResult{}, services.Wrap(services.ErrNotFound, "encoding", "sample encode", "output missing after encode", err)
	}
	return SampleResult{
		OutputPath:          output,
		EncodingTimeSeconds: elapsed,
		OutputSizeBytes:     info.Size(),
	}, nil
}
