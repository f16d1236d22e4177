package encoding

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"animux/internal/config"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
)

type captureExecutor struct {
	calls     [][]string
	lines     []string
	err       error
	touchLast bool
}

func (c *captureExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	c.calls = append(c.calls, append([]string{binary}, args...))
	for _, line := range c.lines {
		if onLine != nil {
			onLine(line)
		}
	}
	if c.touchLast && len(args) > 0 {
		_ = os.WriteFile(args[len(args)-1], []byte("encoded"), 0o644)
	}
	return c.err
}

func newTestEngine(t *testing.T, exec ffmpeg.Executor) *Engine {
	t.Helper()
	cfg := config.Default()
	runner, err := ffmpeg.NewRunner("ffmpeg", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatal(err)
	}
	engine, err := New(&cfg, logging.NewNop(), WithRunner(runner))
	if err != nil {
		t.Fatal(err)
	}
	return engine
}

func stubProbeDuration(t *testing.T, seconds float64) {
	t.Helper()
	original := encodeProbe
	encodeProbe = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Format: ffprobe.Format{Duration: strconv.FormatFloat(seconds, 'f', -1, 64)}}, nil
	}
	t.Cleanup(func() { encodeProbe = original })
}

func TestResolveEncoder(t *testing.T) {
	tests := []struct {
		codec VideoCodec
		gpu   bool
		want  string
	}{
		{CodecH264, true, "h264_nvenc"},
		{CodecH264, false, "libx264"},
		{CodecHEVC, true, "hevc_nvenc"},
		{CodecHEVC, false, "libx265"},
		{CodecAV1, true, "av1_nvenc"},
		{CodecAV1, false, "libsvtav1"},
	}
	for _, tc := range tests {
		got, err := ResolveEncoder(tc.codec, tc.gpu)
		if err != nil {
			t.Fatalf("ResolveEncoder(%q, %v): %v", tc.codec, tc.gpu, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveEncoder(%q, %v) = %q want %q", tc.codec, tc.gpu, got, tc.want)
		}
	}
	if _, err := ResolveEncoder("vp8", false); err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestRateControlArgs(t *testing.T) {
	args, err := rateControlArgs(VideoOptions{RateControl: RateControlCQ, Quality: 23, UseGPU: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(args, " ") != "-rc:v vbr -cq:v 23 -b:v 0" {
		t.Fatalf("cq args: %v", args)
	}

	args, err = rateControlArgs(VideoOptions{RateControl: RateControlVBR, BitrateKbps: 4000, MaxRateKbps: 8000, BufSizeKbps: 16000})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(args, " ") != "-b:v 4000k -maxrate 8000k -bufsize 16000k" {
		t.Fatalf("vbr args: %v", args)
	}

	if _, err := rateControlArgs(VideoOptions{RateControl: RateControlVBR}); err == nil {
		t.Fatal("vbr without bitrate should fail")
	}
	if _, err := rateControlArgs(VideoOptions{RateControl: RateControlCRF, UseGPU: true}); err == nil {
		t.Fatal("crf on GPU should fail")
	}
	if _, err := rateControlArgs(VideoOptions{}); err == nil {
		t.Fatal("missing mode should fail")
	}
}

func TestBuildVideoArgsGPUDebandRoundTrip(t *testing.T) {
	engine := newTestEngine(t, &captureExecutor{})
	args, err := engine.buildVideoArgs("in.mkv", "out.mkv", VideoOptions{
		Codec:       CodecHEVC,
		UseGPU:      true,
		RateControl: RateControlCQ,
		Quality:     22,
		BitDepth:    10,
		Deband:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-hwaccel cuda") {
		t.Fatalf("missing hwaccel: %s", joined)
	}
	filter := ""
	for i, arg := range args {
		if arg == "-vf" && i+1 < len(args) {
			filter = args[i+1]
		}
	}
	// The deband filter runs on host frames: download, filter, upload.
	if !strings.HasPrefix(filter, "hwdownload,") || !strings.HasSuffix(filter, ",hwupload_cuda") {
		t.Fatalf("deband chain must round-trip through host memory: %q", filter)
	}
	if !strings.Contains(filter, "deband=") {
		t.Fatalf("missing deband filter: %q", filter)
	}
	if strings.Contains(joined, "-pix_fmt") {
		t.Fatalf("GPU path must not force -pix_fmt: %s", joined)
	}
}

func TestBuildVideoArgsCPU(t *testing.T) {
	engine := newTestEngine(t, &captureExecutor{})
	args, err := engine.buildVideoArgs("in.mkv", "out.mkv", VideoOptions{
		Codec:       CodecHEVC,
		RateControl: RateControlCRF,
		Quality:     19,
		BitDepth:    10,
	})
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-c:v libx265", "-crf 19", "-pix_fmt yuv420p10le", "-map 0:v:0 -an -sn"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
	if strings.Contains(joined, "hwaccel") {
		t.Fatalf("CPU path must not request hwaccel: %s", joined)
	}
}

func TestTranscodeAudioCBRTwoPhases(t *testing.T) {
	stubProbeDuration(t, 100)
	exec := &captureExecutor{lines: []string{"time=00:00:50.00"}}
	engine := newTestEngine(t, exec)

	dir := t.TempDir()
	output := filepath.Join(dir, "track.m4a")
	var events []ProgressEvent
	err := engine.TranscodeAudioCBR(context.Background(), "in.mkv", output, AudioOptions{
		Codec:             "aac",
		BitrateKbps:       192,
		SyncOffsetSeconds: 1.5,
	}, func(event ProgressEvent) { events = append(events, event) })
	if err != nil {
		t.Fatal(err)
	}

	if len(exec.calls) != 2 {
		t.Fatalf("expected two ffmpeg invocations, got %d", len(exec.calls))
	}
	decode := strings.Join(exec.calls[0], " ")
	encode := strings.Join(exec.calls[1], " ")
	if !strings.Contains(decode, "-ss 00:00:01.500") {
		t.Fatalf("positive offset should pre-seek the decode: %s", decode)
	}
	if !strings.Contains(decode, "pcm_s16le") {
		t.Fatalf("decode phase must write uncompressed audio: %s", decode)
	}
	if !strings.Contains(encode, "-b:a 192k") || !strings.Contains(encode, "-c:a aac") {
		t.Fatalf("encode phase args: %s", encode)
	}

	// Phase 1 events are scaled to 0-50, phase 2 to 50-100.
	if len(events) != 2 || events[0].Percent != 25 || events[1].Percent != 75 {
		t.Fatalf("unexpected progress scaling: %+v", events)
	}

	intermediate := output + ".decode.wav"
	if _, err := os.Stat(intermediate); !os.IsNotExist(err) {
		t.Fatalf("intermediate file should be removed: %v", err)
	}
}

func TestTranscodeAudioCBRNegativeOffsetUsesDelay(t *testing.T) {
	stubProbeDuration(t, 100)
	exec := &captureExecutor{}
	engine := newTestEngine(t, exec)

	err := engine.TranscodeAudioCBR(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "track.m4a"), AudioOptions{
		Codec:             "aac",
		BitrateKbps:       128,
		SyncOffsetSeconds: -0.75,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	decode := strings.Join(exec.calls[0], " ")
	if strings.Contains(decode, "-ss ") {
		t.Fatalf("negative offset must not pre-seek: %s", decode)
	}
	if !strings.Contains(decode, "adelay=delays=750:all=1") {
		t.Fatalf("negative offset should delay all channels: %s", decode)
	}
}

func TestTranscodeAudioVBRSinglePass(t *testing.T) {
	stubProbeDuration(t, 100)
	exec := &captureExecutor{}
	engine := newTestEngine(t, exec)

	err := engine.TranscodeAudioVBR(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "track.opus"), AudioOptions{
		Codec:       "opus",
		BitrateKbps: 160,
		SampleRate:  48000,
		Channels:    2,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected single invocation, got %d", len(exec.calls))
	}
	joined := strings.Join(exec.calls[0], " ")
	for _, want := range []string{"-c:a libopus", "-b:a 160k", "-ar 48000", "-ac 2"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
}

func TestEncodeSampleBoundsWindow(t *testing.T) {
	stubProbeDuration(t, 1400)
	exec := &captureExecutor{touchLast: true}
	engine := newTestEngine(t, exec)

	output := filepath.Join(t.TempDir(), "sample.mkv")
	profile, err := LookupProfile("standard")
	if err != nil {
		t.Fatal(err)
	}
	result, err := engine.EncodeSample(context.Background(), "in.mkv", output, profile, 60, 300, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "-ss 00:01:00.000") {
		t.Fatalf("missing window start: %s", joined)
	}
	if !strings.Contains(joined, "-t 300.000") {
		t.Fatalf("missing window duration: %s", joined)
	}
	if result.OutputSizeBytes <= 0 {
		t.Fatalf("expected output size, got %d", result.OutputSizeBytes)
	}
	if result.OutputPath != output {
		t.Fatalf("unexpected output path %q", result.OutputPath)
	}
}

func TestTranscodeWithProfileSwitchesRateControl(t *testing.T) {
	profile := Profile{Name: "x", Codec: CodecHEVC, RateControl: RateControlCQ, Quality: 20}
	opts := profile.Options(false, 8)
	if opts.RateControl != RateControlCRF {
		t.Fatalf("CPU engine should use crf, got %q", opts.RateControl)
	}
	opts = profile.Options(true, 10)
	if opts.RateControl != RateControlCQ {
		t.Fatalf("GPU engine should keep cq, got %q", opts.RateControl)
	}
	if opts.BitDepth != 10 {
		t.Fatalf("bit depth should pass through, got %d", opts.BitDepth)
	}
}
