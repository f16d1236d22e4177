// Package encoding implements the transcode engine: GPU/CPU video encodes
// with configurable rate control, two-phase constant-bitrate audio encodes,
// single-pass VBR audio encodes, profile-driven encodes, and bounded sample
// encodes used for quality calibration. Progress is derived by parsing the
// time= token from ffmpeg diagnostic output.
package encoding
