package screenshots

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"animux/internal/config"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
)

type countingExecutor struct {
	mu      sync.Mutex
	calls   [][]string
	active  int
	highest int
}

func (c *countingExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	c.mu.Lock()
	c.calls = append(c.calls, append([]string{binary}, args...))
	c.active++
	if c.active > c.highest {
		c.highest = c.active
	}
	c.mu.Unlock()

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return nil
}

func newTestEngine(t *testing.T, exec ffmpeg.Executor, screenshotMax int) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Concurrency.ScreenshotMax = screenshotMax
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

func TestCapturePointsAreEvenlySpread(t *testing.T) {
	points := capturePoints(100, 4)
	want := []float64{20, 40, 60, 80}
	if len(points) != len(want) {
		t.Fatalf("points = %v", points)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("points = %v want %v", points, want)
		}
	}
}

func TestGenerateProducesThumbnailsAndFullSize(t *testing.T) {
	exec := &countingExecutor{}
	engine := newTestEngine(t, exec, 2)

	result, err := engine.Generate(context.Background(), "in.mkv", t.TempDir(), 600, Options{Count: 3, ThumbnailWidth: 320})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.FullSize) != 3 || len(result.Thumbnails) != 3 {
		t.Fatalf("result = %+v", result)
	}

	var scaled, unscaled int
	for _, call := range exec.calls {
		joined := strings.Join(call, " ")
		if !strings.Contains(joined, "-frames:v 1") {
			t.Fatalf("capture must grab a single frame: %s", joined)
		}
		if strings.Contains(joined, "scale=320:-1") {
			scaled++
		} else {
			unscaled++
		}
	}
	if scaled != 3 || unscaled != 3 {
		t.Fatalf("scaled=%d unscaled=%d", scaled, unscaled)
	}
}

func TestGenerateRejectsZeroDuration(t *testing.T) {
	engine := newTestEngine(t, &countingExecutor{}, 2)
	if _, err := engine.Generate(context.Background(), "in.mkv", t.TempDir(), 0, Options{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGenerateSpriteWritesVTT(t *testing.T) {
	exec := &countingExecutor{}
	engine := newTestEngine(t, exec, 2)

	result, err := engine.GenerateSprite(context.Background(), "in.mkv", t.TempDir(), 35, SpriteOptions{
		IntervalSeconds: 10,
		TileWidth:       160,
		TileHeight:      90,
		Columns:         2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(exec.calls) != 1 {
		t.Fatalf("expected one ffmpeg call, got %d", len(exec.calls))
	}
	joined := strings.Join(exec.calls[0], " ")
	// 35s at 10s intervals is 4 tiles, 2 columns wide, 2 rows tall.
	if !strings.Contains(joined, "fps=1/10,scale=160:90,tile=2x2") {
		t.Fatalf("sprite filter: %s", joined)
	}

	vtt, err := readFile(result.VTTPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(vtt, "WEBVTT\n") {
		t.Fatalf("vtt header: %q", vtt)
	}
	for _, want := range []string{
		"00:00:00.000 --> 00:00:10.000\nsprite.jpg#xywh=0,0,160,90",
		"00:00:10.000 --> 00:00:20.000\nsprite.jpg#xywh=160,0,160,90",
		"00:00:20.000 --> 00:00:30.000\nsprite.jpg#xywh=0,90,160,90",
		"00:00:30.000 --> 00:00:35.000\nsprite.jpg#xywh=160,90,160,90",
	} {
		if !strings.Contains(vtt, want) {
			t.Fatalf("missing cue %q in %q", want, vtt)
		}
	}
}

func readFile(path string) (string, error) {
	payload, err := os.ReadFile(path)
	return string(payload), err
}
