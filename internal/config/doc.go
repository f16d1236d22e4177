// Package config loads, normalizes, and validates the TOML configuration for
// animux. Loading never fails just because the file is missing; defaults are
// used and the caller learns whether a file was found.
package config
