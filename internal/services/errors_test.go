package services

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("exit status 1")
	err := Wrap(ErrProcess, "encoding", "video encode", "ffmpeg failed", base)
	if !errors.Is(err, ErrProcess) {
		t.Fatalf("expected ErrProcess classification, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "encoding: video encode: ffmpeg failed") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrProcess) {
		t.Fatalf("expected default ErrProcess marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestProcessErrorClassification(t *testing.T) {
	err := NewProcessError("ffmpeg", 187, "frame=100\nConversion failed!")
	if !errors.Is(err, ErrProcess) {
		t.Fatalf("ProcessError should match ErrProcess")
	}
	if errors.Is(err, ErrSpawn) {
		t.Fatalf("ProcessError must not match ErrSpawn")
	}
	if !strings.Contains(err.Error(), "exited with code 187") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestProcessErrorTruncatesOutput(t *testing.T) {
	long := strings.Repeat("x", 400) + "\n" + strings.Repeat("y", 400)
	err := NewProcessError("ffmpeg", 1, long)
	if len(err.Output) > 500 {
		t.Fatalf("output not truncated: %d bytes", len(err.Output))
	}
	if !strings.HasSuffix(err.Output, strings.Repeat("y", 400)) {
		t.Fatalf("expected tail preserved, got %q", err.Output[:40])
	}
}

func TestTailStringDropsPartialLine(t *testing.T) {
	value := "first line here\nsecond"
	got := TailString(value, 10)
	if got != "second" {
		t.Fatalf("expected clean tail, got %q", got)
	}
}
