package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"animux/internal/services"
)

// runProbe abstracts ffprobe execution for tests.
var runProbe = func(ctx context.Context, binary string, args []string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Stderr, exitErr.ExitCode(), err
		}
		return nil, -1, err
	}
	return output, 0, nil
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams  []Stream  `json:"streams"`
	Chapters []Chapter `json:"chapters"`
	Format   Format    `json:"format"`
}

// Disposition carries per-stream default/forced flags.
type Disposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	Profile       string            `json:"profile"`
	PixFmt        string            `json:"pix_fmt"`
	Duration      string            `json:"duration"`
	BitRate       string            `json:"bit_rate"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	Disposition   Disposition       `json:"disposition"`
	Tags          map[string]string `json:"tags"`
}

// Chapter describes one chapter entry.
type Chapter struct {
	ID        int64             `json:"id"`
	TimeBase  string            `json:"time_base"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Tags      map[string]string `json:"tags"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response. A failed process and a malformed response are reported as
// distinct error kinds.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-show_chapters",
		"-of", "json",
		"--", path,
	}
	output, exitCode, err := runProbe(ctx, binary, args)
	if err != nil {
		if exitCode < 0 {
			return Result{}, services.Wrap(services.ErrSpawn, "ffprobe", "start "+binary, "", err)
		}
		return Result{}, services.NewProcessError(binary, exitCode, string(output))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrProbeParse, "ffprobe", "decode output", "", err)
	}
	return result, nil
}

// StreamsOfType returns streams whose codec_type matches kind, in container order.
func (r Result) StreamsOfType(kind string) []Stream {
	var streams []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			streams = append(streams, stream)
		}
	}
	return streams
}

// VideoStreams returns the container's video streams.
func (r Result) VideoStreams() []Stream { return r.StreamsOfType("video") }

// AudioStreams returns the container's audio streams.
func (r Result) AudioStreams() []Stream { return r.StreamsOfType("audio") }

// SubtitleStreams returns the container's subtitle streams.
func (r Result) SubtitleStreams() []Stream { return r.StreamsOfType("subtitle") }

// AttachmentStreams returns the container's attachment streams (fonts and
// cover art) in container order. Attachment extraction addresses these by
// their position in this slice, not by absolute stream index.
func (r Result) AttachmentStreams() []Stream { return r.StreamsOfType("attachment") }

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	value := parseFloat(r.Format.Duration)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// Tag returns a tag value by case-insensitive key lookup.
func (s Stream) Tag(key string) string {
	for name, value := range s.Tags {
		if strings.EqualFold(name, key) {
			return value
		}
	}
	return ""
}

// Title returns the stream's title tag, if any.
func (s Stream) Title() string { return strings.TrimSpace(s.Tag("title")) }

// AttachmentFilename returns the filename tag of an attachment stream.
func (s Stream) AttachmentFilename() string { return strings.TrimSpace(s.Tag("filename")) }

// AttachmentMimeType returns the mimetype tag of an attachment stream.
func (s Stream) AttachmentMimeType() string { return strings.TrimSpace(s.Tag("mimetype")) }

// Language returns the stream's language tag normalized to a BCP-47 base
// form when it parses, or the raw tag value otherwise.
func (s Stream) Language() string {
	raw := strings.TrimSpace(s.Tag("language"))
	if raw == "" || strings.EqualFold(raw, "und") {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return raw
	}
	return base.String()
}

// DurationSeconds returns the stream duration in seconds, or 0 when unavailable.
func (s Stream) DurationSeconds() float64 {
	value := parseFloat(s.Duration)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

// StartSeconds returns the chapter start in seconds.
func (c Chapter) StartSeconds() float64 {
	value := parseFloat(c.StartTime)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

// EndSeconds returns the chapter end in seconds.
func (c Chapter) EndSeconds() float64 {
	value := parseFloat(c.EndTime)
	if math.IsNaN(value) {
		return 0
	}
	return value
}

// Title returns the chapter title tag, if any.
func (c Chapter) Title() string {
	for name, value := range c.Tags {
		if strings.EqualFold(name, "title") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
