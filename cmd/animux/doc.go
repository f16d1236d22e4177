// Command animux is the CLI for the animux transcode, demux, merge, and
// donor-track orchestration core.
package main
