// Package demux splits media containers into independent streams without
// re-encoding, with policy knobs for skipping video and deferring audio
// tracks that will be transcoded anyway.
package demux
