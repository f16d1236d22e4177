package encoding

import "strings"

// aacCopyCeilingBits is the highest AAC bitrate kept as-is during demux and
// donor-track processing.
const aacCopyCeilingBits = 256000

// NeedsAudioTranscode reports whether an audio track must be re-encoded
// rather than copied. MP3 never needs re-encoding; AAC at or below 256 kbps
// does not; everything else (including unknown codecs and AAC with an
// unknown bitrate) does.
func NeedsAudioTranscode(codec string, bitrateBits int64) bool {
	switch strings.ToLower(strings.TrimSpace(codec)) {
	case "mp3":
		return false
	case "aac":
		return bitrateBits <= 0 || bitrateBits > aacCopyCeilingBits
	default:
		return true
	}
}
