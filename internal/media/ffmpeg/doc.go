// Package ffmpeg wraps execution of the external ffmpeg binary. The runner
// streams diagnostic output line by line to a caller-supplied callback and
// reports completion; it performs no parsing of the output itself. A binary
// that cannot be started is reported as a spawn error, distinct from a
// started process exiting non-zero.
package ffmpeg
