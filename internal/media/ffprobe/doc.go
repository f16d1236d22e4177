// Package ffprobe provides structured media file analysis via the external
// ffprobe binary. Results are produced fresh on every call and are never
// cached. Beyond raw decoding, it hosts the two derived helpers used across
// the engines: ordered bit-rate extraction and bit-depth inference from the
// pixel format.
package ffprobe
