package encoding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"animux/internal/services"
)

// maxSuggestedAudioKbps caps suggested audio bitrates.
const maxSuggestedAudioKbps = 256

// SuggestAudioBitrate converts a source bitrate in bits/second to a suggested
// target in kbps, capped at 256. Unknown sources default to the cap.
func SuggestAudioBitrate(sourceBitsPerSecond int64) int {
	if sourceBitsPerSecond <= 0 {
		return maxSuggestedAudioKbps
	}
	kbps := int(math.Round(float64(sourceBitsPerSecond) / 1000))
	if kbps > maxSuggestedAudioKbps {
		return maxSuggestedAudioKbps
	}
	return kbps
}

// audioEncoder maps a codec name to the ffmpeg encoder identifier.
func audioEncoder(codec string) (string, error) {
	switch codec {
	case "aac", "":
		return "aac", nil
	case "mp3":
		return "libmp3lame", nil
	case "opus":
		return "libopus", nil
	case "flac":
		return "flac", nil
	default:
		return "", fmt.Errorf("unsupported audio codec %q", codec)
	}
}

// offsetInputArgs applies a positive sync offset as a pre-input seek.
func offsetInputArgs(offsetSeconds float64) []string {
	if offsetSeconds <= 0 {
		return nil
	}
	return []string{"-ss", FormatSeconds(offsetSeconds)}
}

// offsetFilterArgs applies a negative sync offset as a fixed delay on every
// channel. Mirrors the positive-offset head trim.
func offsetFilterArgs(offsetSeconds float64) []string {
	if offsetSeconds >= 0 {
		return nil
	}
	delayMs := int64(math.Round(-offsetSeconds * 1000))
	return []string{"-af", fmt.Sprintf("adelay=delays=%d:all=1", delayMs)}
}

// TranscodeAudioCBR performs a two-phase constant-bitrate encode: decode to
// an intermediate uncompressed file honoring the sync offset, then encode the
// intermediate to the target codec. Progress spans 0-50% for the decode and
// 50-100% for the encode. The intermediate file is removed regardless of
// outcome.
func (e *Engine) TranscodeAudioCBR(ctx context.Context, input, output string, opts AudioOptions, progress ProgressFunc) error {
	if e == nil {
		return errors.New("engine not initialized")
	}
	encoder, err := audioEncoder(opts.Codec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "encoding", "audio encode", err.Error(), nil)
	}
	if opts.BitrateKbps <= 0 {
		return services.Wrap(services.ErrValidation, "encoding", "audio encode", "target bitrate required", nil)
	}

	intermediate := output + ".decode.wav"
	defer os.Remove(intermediate)

	duration := e.probeDuration(ctx, input)

	decodeArgs := []string{"-y", "-hide_banner"}
	decodeArgs = append(decodeArgs, offsetInputArgs(opts.SyncOffsetSeconds)...)
	decodeArgs = append(decodeArgs, "-i", input)
	decodeArgs = append(decodeArgs, offsetFilterArgs(opts.SyncOffsetSeconds)...)
	decodeArgs = append(decodeArgs, "-map", "0:a:0", "-vn", "-sn", "-c:a", "pcm_s16le", intermediate)

	decodeTracker := newScaledProgressTracker("audio decode", duration, 0, 0.5)
	if err := e.run(ctx, decodeArgs, decodeTracker, progress); err != nil {
		return services.Wrap(nil, "encoding", "audio decode", "", err)
	}

	encodeArgs := []string{"-y", "-hide_banner", "-i", intermediate, "-c:a", encoder, "-b:a", fmt.Sprintf("%dk", opts.BitrateKbps)}
	encodeArgs = append(encodeArgs, sampleRateChannelArgs(opts)...)
	encodeArgs = append(encodeArgs, output)

	encodeTracker := newScaledProgressTracker("audio encode", duration, 50, 0.5)
	if err := e.run(ctx, encodeArgs, encodeTracker, progress); err != nil {
		return services.Wrap(nil, "encoding", "audio encode", "", err)
	}
	return nil
}

// TranscodeAudioVBR performs a single-pass encode with a target bitrate and
// optional sample-rate/channel overrides. No intermediate file is produced.
func (e *Engine) TranscodeAudioVBR(ctx context.Context, input, output string, opts AudioOptions, progress ProgressFunc) error {
	if e == nil {
		return errors.New("engine not initialized")
	}
	encoder, err := audioEncoder(opts.Codec)
	if err != nil {
		return services.Wrap(services.ErrValidation, "encoding", "audio encode", err.Error(), nil)
	}
	if opts.BitrateKbps <= 0 {
		return services.Wrap(services.ErrValidation, "encoding", "audio encode", "target bitrate required", nil)
	}

	args := []string{"-y", "-hide_banner"}
	args = append(args, offsetInputArgs(opts.SyncOffsetSeconds)...)
	args = append(args, "-i", input)
	args = append(args, offsetFilterArgs(opts.SyncOffsetSeconds)...)
	args = append(args, "-map", "0:a:0", "-vn", "-sn", "-c:a", encoder, "-b:a", fmt.Sprintf("%dk", opts.BitrateKbps))
	args = append(args, sampleRateChannelArgs(opts)...)
	args = append(args, output)

	tracker := newProgressTracker("audio encode", e.probeDuration(ctx, input))
	if err := e.run(ctx, args, tracker, progress); err != nil {
		return services.Wrap(nil, "encoding", "audio encode", "", err)
	}
	return nil
}

func sampleRateChannelArgs(opts AudioOptions) []string {
	var args []string
	if opts.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(opts.Channels))
	}
	return args
}
