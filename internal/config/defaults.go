package config

import "github.com/shirou/gopsutil/v4/cpu"

const (
	defaultStagingDir            = "~/.local/share/animux/staging"
	defaultLibraryDir            = "~/library"
	defaultLogDir                = "~/.local/share/animux/logs"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultGOPSize               = 600
	defaultLookaheadFrames       = 32
	defaultSampleDuration        = 300
	defaultVideoMaxConcurrent    = 2
	defaultScreenshotConcurrent  = 4
	defaultDonorMaxConcurrentCap = 16
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Encoding: Encoding{
			UseGPU:                true,
			Deband:                false,
			GOPSize:               defaultGOPSize,
			LookaheadFrames:       defaultLookaheadFrames,
			SampleDurationSeconds: defaultSampleDuration,
		},
		Concurrency: Concurrency{
			VideoMax:      defaultVideoMaxConcurrent,
			AudioMax:      logicalCores(),
			ScreenshotMax: defaultScreenshotConcurrent,
			DonorMax:      minInt(logicalCores(), defaultDonorMaxConcurrentCap),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func logicalCores() int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		return 1
	}
	return count
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
