package donor

import "animux/internal/library"

// ContentType mirrors the library classification so matches can be filtered
// against episode content types directly.
type ContentType = library.ContentType

const (
	ContentSeries  = library.ContentSeries
	ContentSpecial = library.ContentSpecial
	ContentUnknown = library.ContentUnknown
)

// FileKind is the donor file's media kind, derived from its extension.
type FileKind string

const (
	KindVideo    FileKind = "video"
	KindAudio    FileKind = "audio"
	KindSubtitle FileKind = "subtitle"
)

// File is one scanned donor file. Immutable once created.
type File struct {
	Path          string
	Kind          FileKind
	EpisodeNumber *int
	ContentType   ContentType
	DubGroup      string
}

// Confidence describes how a donor file was correlated to an episode.
type Confidence string

const (
	ConfidenceAuto      Confidence = "auto"
	ConfidenceManual    Confidence = "manual"
	ConfidenceUnmatched Confidence = "unmatched"
)

// Match pairs a donor file with a target episode. Target is nil when
// unmatched. A manual override is never silently overwritten by automatic
// matching.
type Match struct {
	File       File
	Target     *library.Episode
	Confidence Confidence
}
