package demux

// AudioMode selects which audio tracks are extracted to standalone files.
type AudioMode string

const (
	// AudioModeAll extracts every audio track.
	AudioModeAll AudioMode = "all"
	// AudioModeSmart extracts only tracks that will not be re-encoded
	// later; tracks needing a transcode stay referenced in the source so
	// the decode happens once, at transcode time.
	AudioModeSmart AudioMode = "smart"
)

// Options controls a demux job.
type Options struct {
	// SkipVideo leaves the video stream in the source container and
	// returns a reference to it instead of a lossless copy.
	SkipVideo bool
	AudioMode AudioMode
}

// SourceRef points at a stream left inside its original container.
// StreamIndex is the absolute index within that container.
type SourceRef struct {
	Path        string `json:"path"`
	StreamIndex int    `json:"stream_index"`
}

// VideoTrack describes the demuxed video stream. Path is empty when the
// stream was left in the source, in which case Source is set.
type VideoTrack struct {
	Path     string     `json:"path,omitempty"`
	Source   *SourceRef `json:"source,omitempty"`
	Codec    string     `json:"codec"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	PixFmt   string     `json:"pix_fmt,omitempty"`
	BitDepth int        `json:"bit_depth"`
}

// AudioTrack describes one audio stream. Path is empty for tracks left in
// the source under smart mode; Source then identifies the original stream.
type AudioTrack struct {
	Path           string     `json:"path,omitempty"`
	Source         *SourceRef `json:"source,omitempty"`
	Codec          string     `json:"codec"`
	BitrateBits    int64      `json:"bitrate_bits,omitempty"`
	Channels       int        `json:"channels,omitempty"`
	SampleRate     string     `json:"sample_rate,omitempty"`
	Language       string     `json:"language,omitempty"`
	Title          string     `json:"title,omitempty"`
	Default        bool       `json:"default,omitempty"`
	NeedsTranscode bool       `json:"needs_transcode"`
}

// SubtitleTrack describes one extracted subtitle stream.
type SubtitleTrack struct {
	Path     string `json:"path"`
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
	Default  bool   `json:"default,omitempty"`
	Forced   bool   `json:"forced,omitempty"`
}

// Chapter is a flattened chapter record in seconds.
type Chapter struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Title        string  `json:"title,omitempty"`
}

// Result is the outcome of a demux job. It is also serialized to the JSON
// metadata sidecar next to the extracted streams.
type Result struct {
	Container       string            `json:"container"`
	DurationSeconds float64           `json:"duration_seconds"`
	Video           *VideoTrack       `json:"video,omitempty"`
	Audio           []AudioTrack      `json:"audio,omitempty"`
	Subtitles       []SubtitleTrack   `json:"subtitles,omitempty"`
	Chapters        []Chapter         `json:"chapters,omitempty"`
	FontsDir        string            `json:"fonts_dir,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	MetadataPath    string            `json:"-"`
}
