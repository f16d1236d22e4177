package library

import "time"

// ContentType classifies an episode file.
type ContentType string

const (
	ContentSeries  ContentType = "series"
	ContentSpecial ContentType = "special"
	ContentUnknown ContentType = "unknown"
)

// Episode is one library entry.
type Episode struct {
	ID            int64
	SeriesTitle   string
	EpisodeNumber *int
	ContentType   ContentType
	FilePath      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TrackKind distinguishes merged track types.
type TrackKind string

const (
	TrackAudio    TrackKind = "audio"
	TrackSubtitle TrackKind = "subtitle"
)

// Track is an audio or subtitle track attached to an episode, typically
// imported from a donor file.
type Track struct {
	ID        string
	EpisodeID int64
	Kind      TrackKind
	Language  string
	Title     string
	DubGroup  string
	FilePath  string
	CreatedAt time.Time
}
