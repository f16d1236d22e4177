package demux

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animux/internal/config"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
)

type captureExecutor struct {
	calls [][]string
	err   error
}

func (c *captureExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	c.calls = append(c.calls, append([]string{binary}, args...))
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

func stubProbe(t *testing.T, result ffprobe.Result) {
	t.Helper()
	original := demuxProbe
	demuxProbe = func(context.Context, string, string) (ffprobe.Result, error) {
		return result, nil
	}
	t.Cleanup(func() { demuxProbe = original })
}

func TestSubtitleExtension(t *testing.T) {
	tests := map[string]string{
		"subrip": ".srt",
		"srt":    ".srt",
		"webvtt": ".vtt",
		"ssa":    ".ssa",
		"ass":    ".ass",
		"pgs":    ".ass",
		"":       ".ass",
	}
	for codec, want := range tests {
		if got := subtitleExtension(codec); got != want {
			t.Fatalf("subtitleExtension(%q) = %q want %q", codec, got, want)
		}
	}
}

func TestDemuxSmartModeKeepsTranscodeTracksInSource(t *testing.T) {
	stubProbe(t, ffprobe.Result{
		Format: ffprobe.Format{FormatName: "matroska", Duration: "120.0"},
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", PixFmt: "yuv420p10le", Width: 1920, Height: 1080},
			{Index: 1, CodecType: "audio", CodecName: "mp3", BitRate: "320000", Channels: 2},
			{Index: 2, CodecType: "audio", CodecName: "flac", Tags: map[string]string{"BPS": "900000"}, Channels: 2},
		},
	})
	exec := &captureExecutor{}
	engine := newTestEngine(t, exec)

	outDir := t.TempDir()
	result, err := engine.Demux(context.Background(), "/src/show.mkv", outDir, Options{
		SkipVideo: true,
		AudioMode: AudioModeSmart,
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Video == nil || result.Video.Path != "" || result.Video.Source == nil {
		t.Fatalf("skipVideo should reference the source, got %+v", result.Video)
	}
	if result.Video.BitDepth != 10 {
		t.Fatalf("bit depth = %d", result.Video.BitDepth)
	}

	if len(result.Audio) != 2 {
		t.Fatalf("expected 2 audio tracks, got %d", len(result.Audio))
	}
	mp3, flac := result.Audio[0], result.Audio[1]
	if mp3.Path == "" || mp3.Source != nil || mp3.NeedsTranscode {
		t.Fatalf("mp3 track should be extracted: %+v", mp3)
	}
	if flac.Path != "" || flac.Source == nil || !flac.NeedsTranscode {
		t.Fatalf("flac track should stay in the source: %+v", flac)
	}
	if flac.Source.Path != "/src/show.mkv" || flac.Source.StreamIndex != 2 {
		t.Fatalf("flac source ref: %+v", flac.Source)
	}

	// Only the mp3 extraction should have run.
	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 ffmpeg call, got %d: %v", len(exec.calls), exec.calls)
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "-map 0:a:0") || !strings.Contains(joined, "-c copy") {
		t.Fatalf("mp3 extraction args: %s", joined)
	}
	if !strings.HasSuffix(exec.calls[0][len(exec.calls[0])-1], ".mp3") {
		t.Fatalf("mp3 output extension: %s", joined)
	}

	sidecar := filepath.Join(outDir, "metadata.json")
	payload, err := os.ReadFile(sidecar)
	if err != nil {
		t.Fatalf("metadata sidecar missing: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("sidecar not valid JSON: %v", err)
	}
	if decoded.Container != "matroska" || decoded.DurationSeconds != 120 {
		t.Fatalf("sidecar content: %+v", decoded)
	}
}

func TestDemuxAllModeExtractsEverything(t *testing.T) {
	stubProbe(t, ffprobe.Result{
		Format: ffprobe.Format{FormatName: "matroska", Duration: "60"},
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", PixFmt: "yuv420p"},
			{Index: 1, CodecType: "audio", CodecName: "flac", Tags: map[string]string{"language": "jpn"}},
			{Index: 2, CodecType: "subtitle", CodecName: "ass", Tags: map[string]string{"language": "eng"}},
		},
		Chapters: []ffprobe.Chapter{
			{StartTime: "0.0", EndTime: "90.0", Tags: map[string]string{"title": "Opening"}},
		},
	})
	exec := &captureExecutor{}
	engine := newTestEngine(t, exec)

	result, err := engine.Demux(context.Background(), "/src/show.mkv", t.TempDir(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Video == nil || result.Video.Path == "" {
		t.Fatalf("video should be extracted: %+v", result.Video)
	}
	if len(result.Audio) != 1 || result.Audio[0].Path == "" {
		t.Fatalf("audio should be extracted in all mode: %+v", result.Audio)
	}
	if result.Audio[0].Language != "ja" {
		t.Fatalf("language should normalize, got %q", result.Audio[0].Language)
	}
	if len(result.Subtitles) != 1 || !strings.HasSuffix(result.Subtitles[0].Path, ".ass") {
		t.Fatalf("subtitle extraction: %+v", result.Subtitles)
	}
	if len(result.Chapters) != 1 || result.Chapters[0].Title != "Opening" || result.Chapters[0].EndSeconds != 90 {
		t.Fatalf("chapters: %+v", result.Chapters)
	}
	if len(exec.calls) != 3 {
		t.Fatalf("expected 3 ffmpeg calls, got %d", len(exec.calls))
	}
}

func TestExtractAttachmentsUsesTypeRelativeOrdinals(t *testing.T) {
	stubProbe(t, ffprobe.Result{
		Format: ffprobe.Format{FormatName: "matroska"},
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264"},
			{Index: 1, CodecType: "audio", CodecName: "aac", BitRate: "128000"},
			{Index: 5, CodecType: "attachment", Tags: map[string]string{"filename": "font-a.ttf"}},
			{Index: 6, CodecType: "attachment", Tags: map[string]string{"filename": "font-b.otf"}},
		},
	})
	exec := &captureExecutor{}
	engine := newTestEngine(t, exec)

	outDir := t.TempDir()
	result, err := engine.Demux(context.Background(), "/src/show.mkv", outDir, Options{SkipVideo: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.FontsDir != filepath.Join(outDir, "fonts") {
		t.Fatalf("fonts dir: %q", result.FontsDir)
	}

	var dumpArgs []string
	for _, call := range exec.calls {
		joined := strings.Join(call, " ")
		if strings.Contains(joined, "-dump_attachment") {
			dumpArgs = append(dumpArgs, joined)
		}
	}
	if len(dumpArgs) != 2 {
		t.Fatalf("expected 2 attachment dumps, got %v", dumpArgs)
	}
	// The streams sit at absolute indices 5 and 6 but must be addressed by
	// their position among attachment streams.
	if !strings.Contains(dumpArgs[0], "-dump_attachment:t:0") {
		t.Fatalf("first dump: %s", dumpArgs[0])
	}
	if !strings.Contains(dumpArgs[1], "-dump_attachment:t:1") {
		t.Fatalf("second dump: %s", dumpArgs[1])
	}
	if !strings.Contains(dumpArgs[0], "font-a.ttf") || !strings.Contains(dumpArgs[1], "font-b.otf") {
		t.Fatalf("dump targets: %v", dumpArgs)
	}
}

func TestDemuxRejectsUnknownAudioMode(t *testing.T) {
	engine := newTestEngine(t, &captureExecutor{})
	if _, err := engine.Demux(context.Background(), "in.mkv", t.TempDir(), Options{AudioMode: "some"}); err == nil {
		t.Fatal("expected validation error")
	}
}
