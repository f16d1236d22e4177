package encoding

import (
	"testing"
	"time"
)

func TestParseTimeToSeconds(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"time=00:01:30.50", 90.5, true},
		{"frame=  100 fps= 25 time=01:00:00.00 bitrate=1000k", 3600, true},
		{"size=  512kB time=00:00:05.04 speed=1.2x", 5.04, true},
		{"no token here", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseTimeToSeconds(tc.line)
		if ok != tc.ok {
			t.Fatalf("ParseTimeToSeconds(%q) ok=%v want %v", tc.line, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseTimeToSeconds(%q) = %v want %v", tc.line, got, tc.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		0:       "00:00:00.000",
		90.5:    "00:01:30.500",
		3661.25: "01:01:01.250",
	}
	for input, want := range tests {
		if got := FormatSeconds(input); got != want {
			t.Fatalf("FormatSeconds(%v) = %q want %q", input, got, want)
		}
	}
}

func TestProgressTrackerPercentAndETA(t *testing.T) {
	tracker := newProgressTracker("video encode", 200)
	base := time.Now()
	tracker.started = base
	tracker.now = func() time.Time { return base.Add(10 * time.Second) }

	event, ok := tracker.Update("frame=1 time=00:00:50.00 speed=5x")
	if !ok {
		t.Fatal("expected progress token")
	}
	if event.Percent != 25 {
		t.Fatalf("percent = %v", event.Percent)
	}
	// 10s elapsed at 25% leaves 30s.
	if event.ETASeconds < 29.9 || event.ETASeconds > 30.1 {
		t.Fatalf("eta = %v", event.ETASeconds)
	}
	if event.Stage != "video encode" {
		t.Fatalf("stage = %q", event.Stage)
	}
}

func TestProgressTrackerClampsAt100(t *testing.T) {
	tracker := newProgressTracker("video encode", 10)
	event, ok := tracker.Update("time=00:00:30.00")
	if !ok || event.Percent != 100 {
		t.Fatalf("expected clamp to 100, got %+v ok=%v", event, ok)
	}
}

func TestProgressTrackerScaling(t *testing.T) {
	tracker := newScaledProgressTracker("audio decode", 100, 0, 0.5)
	event, _ := tracker.Update("time=00:01:40.00")
	if event.Percent != 50 {
		t.Fatalf("phase 1 should top out at 50, got %v", event.Percent)
	}
	tracker = newScaledProgressTracker("audio encode", 100, 50, 0.5)
	event, _ = tracker.Update("time=00:00:50.00")
	if event.Percent != 75 {
		t.Fatalf("phase 2 midpoint should map to 75, got %v", event.Percent)
	}
}

func TestProgressTrackerIgnoresLinesWithoutToken(t *testing.T) {
	tracker := newProgressTracker("video encode", 100)
	if _, ok := tracker.Update("Press [q] to stop"); ok {
		t.Fatal("expected no event")
	}
}

func TestProgressTrackerUnknownDuration(t *testing.T) {
	tracker := newProgressTracker("video encode", 0)
	if _, ok := tracker.Update("time=00:00:10.00"); ok {
		t.Fatal("expected no event when duration is unknown")
	}
}
