package encoding

// ProgressEvent reports incremental progress for one running job. Events are
// emitted repeatedly and never persisted.
type ProgressEvent struct {
	Percent       float64
	CurrentTime   float64
	TotalDuration float64
	ETASeconds    float64
	Stage         string
}

// ProgressFunc receives progress events during a job. A nil ProgressFunc is
// always safe to pass.
type ProgressFunc func(ProgressEvent)

// ChannelSink adapts a progress channel to a ProgressFunc. Events are dropped
// rather than blocking when the receiver falls behind; the channel is owned
// by the caller and closed by the caller once the job returns.
func ChannelSink(ch chan<- ProgressEvent) ProgressFunc {
	if ch == nil {
		return nil
	}
	return func(event ProgressEvent) {
		select {
		case ch <- event:
		default:
		}
	}
}

// RateControl selects the encoder rate-control mode.
type RateControl string

const (
	RateControlCQ      RateControl = "cq"
	RateControlCRF     RateControl = "crf"
	RateControlVBR     RateControl = "vbr"
	RateControlConstQP RateControl = "constqp"
)

// VideoCodec identifies the target video codec family.
type VideoCodec string

const (
	CodecH264 VideoCodec = "h264"
	CodecHEVC VideoCodec = "hevc"
	CodecAV1  VideoCodec = "av1"
)

// VideoOptions configures one video transcode job. Supplied by the caller per
// job; the engine never mutates it.
type VideoOptions struct {
	Codec       VideoCodec
	UseGPU      bool
	RateControl RateControl
	// Quality is the CQ/CRF/QP value depending on RateControl.
	Quality int
	// BitrateKbps, MaxRateKbps and BufSizeKbps apply in VBR mode.
	BitrateKbps int
	MaxRateKbps int
	BufSizeKbps int
	// BitDepth selects the encode pixel format (8, 10 or 12).
	BitDepth int
	// Deband inserts the CPU deband filter before encoding.
	Deband bool
	// SyncOffsetSeconds shifts the input start (positive trims the head).
	SyncOffsetSeconds float64
}

// AudioOptions configures one audio transcode job.
type AudioOptions struct {
	Codec       string
	BitrateKbps int
	// SampleRate and Channels override the source values when positive.
	SampleRate int
	Channels   int
	// SyncOffsetSeconds: positive trims the start via a pre-input seek,
	// negative delays every channel by the absolute offset.
	SyncOffsetSeconds float64
}

// SampleResult reports the outcome of a bounded calibration encode.
type SampleResult struct {
	OutputPath          string
	EncodingTimeSeconds float64
	OutputSizeBytes     int64
}
