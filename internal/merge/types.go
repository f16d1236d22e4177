package merge

// AudioInput describes one audio track to include in the output, either an
// original (demuxed from the source) or an external donor track.
type AudioInput struct {
	Path     string
	Language string
	Title    string
	// OffsetSeconds shifts the track relative to the video. Positive trims
	// the head, negative delays playback.
	OffsetSeconds float64
}

// SubtitleInput describes one subtitle track plus the font files it needs.
type SubtitleInput struct {
	Path     string
	Language string
	Title    string
	Fonts    []string
}

// Chapter is one chapter marker in seconds.
type Chapter struct {
	StartSeconds float64
	EndSeconds   float64
	Title        string
}

// Config describes a remux job. Input groups are assembled in a fixed
// order: video, chapter sidecar, original audio, external audio, subtitles.
type Config struct {
	VideoPath     string
	OriginalAudio []AudioInput
	ExternalAudio []AudioInput
	Subtitles     []SubtitleInput
	Chapters      []Chapter
	PosterPath    string

	// DefaultAudioIndex and DefaultSubtitleIndex select the default tracks
	// by position across the combined audio list and the subtitle list.
	DefaultAudioIndex    int
	DefaultSubtitleIndex int

	// SubtitleCodec is the codec all subtitle streams are normalized to.
	// Empty means "ass".
	SubtitleCodec string

	OutputPath string
}
