package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", path)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool defaults: %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if cfg.Concurrency.VideoMax != defaultVideoMaxConcurrent {
		t.Fatalf("unexpected video cap %d", cfg.Concurrency.VideoMax)
	}
	if cfg.Concurrency.DonorMax < 1 || cfg.Concurrency.DonorMax > defaultDonorMaxConcurrentCap {
		t.Fatalf("donor cap out of range: %d", cfg.Concurrency.DonorMax)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "animux.toml")
	content := strings.Join([]string{
		"[tools]",
		`ffmpeg_binary = "/opt/ffmpeg/bin/ffmpeg"`,
		"",
		"[concurrency]",
		"video_max = 3",
		"",
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg override lost: %q", cfg.FFmpegBinary())
	}
	if cfg.Concurrency.VideoMax != 3 {
		t.Fatalf("video cap override lost: %d", cfg.Concurrency.VideoMax)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging overrides lost: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Concurrency.VideoMax = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero video cap")
	}
	cfg = Default()
	_ = cfg.normalize()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/media")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "media") {
		t.Fatalf("unexpected expansion %q", got)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}
