package config

import (
	"errors"
	"fmt"
)

const maxPoolCap = 64

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConcurrency(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConcurrency() error {
	for name, value := range map[string]int{
		"concurrency.video_max":      c.Concurrency.VideoMax,
		"concurrency.audio_max":      c.Concurrency.AudioMax,
		"concurrency.screenshot_max": c.Concurrency.ScreenshotMax,
		"concurrency.donor_max":      c.Concurrency.DonorMax,
	} {
		if value < 1 || value > maxPoolCap {
			return fmt.Errorf("%s must be between 1 and %d, got %d", name, maxPoolCap, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.SampleDurationSeconds > 3600 {
		return errors.New("encoding.sample_duration_seconds must not exceed 3600")
	}
	return nil
}
