package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeEncoding()
	c.normalizeConcurrency()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		c.Paths.LibraryDir = defaultLibraryDir
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpegBinary) == "" {
		c.Tools.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.TrimSpace(c.Tools.FFprobeBinary) == "" {
		c.Tools.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeEncoding() {
	if c.Encoding.GOPSize <= 0 {
		c.Encoding.GOPSize = defaultGOPSize
	}
	if c.Encoding.LookaheadFrames <= 0 {
		c.Encoding.LookaheadFrames = defaultLookaheadFrames
	}
	if c.Encoding.SampleDurationSeconds <= 0 {
		c.Encoding.SampleDurationSeconds = defaultSampleDuration
	}
}

func (c *Config) normalizeConcurrency() {
	if c.Concurrency.VideoMax <= 0 {
		c.Concurrency.VideoMax = defaultVideoMaxConcurrent
	}
	if c.Concurrency.AudioMax <= 0 {
		c.Concurrency.AudioMax = logicalCores()
	}
	if c.Concurrency.ScreenshotMax <= 0 {
		c.Concurrency.ScreenshotMax = defaultScreenshotConcurrent
	}
	if c.Concurrency.DonorMax <= 0 {
		c.Concurrency.DonorMax = minInt(logicalCores(), defaultDonorMaxConcurrentCap)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
