package encoding

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timeTokenPattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseTimeToSeconds extracts the time=HH:MM:SS.cc token from an ffmpeg
// diagnostic line and converts it to seconds. The boolean reports whether a
// token was present.
func ParseTimeToSeconds(line string) (float64, bool) {
	match := timeTokenPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[3], 64)
	if err != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}

// FormatSeconds renders a second count as HH:MM:SS.mmm for command lines and
// sidecar files.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int64(seconds)
	millis := int64((seconds - float64(whole)) * 1000)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60
	return pad2(h) + ":" + pad2(m) + ":" + pad2(s) + "." + pad3(millis)
}

func pad2(v int64) string {
	str := strconv.FormatInt(v, 10)
	if len(str) < 2 {
		return "0" + str
	}
	return str
}

func pad3(v int64) string {
	str := strconv.FormatInt(v, 10)
	for len(str) < 3 {
		str = "0" + str
	}
	return str
}

// progressTracker converts raw ffmpeg lines into ProgressEvents. Percent and
// ETA are derived from the job's total duration and wall-clock elapsed time.
type progressTracker struct {
	stage    string
	duration float64
	started  time.Time
	// scale maps the job's native 0..100 progress into a slice of the
	// overall operation (two-phase audio reports 0-50 then 50-100).
	scaleOffset float64
	scaleFactor float64
	now         func() time.Time
}

func newProgressTracker(stage string, durationSeconds float64) *progressTracker {
	return newScaledProgressTracker(stage, durationSeconds, 0, 1)
}

func newScaledProgressTracker(stage string, durationSeconds, offset, factor float64) *progressTracker {
	tracker := &progressTracker{
		stage:       strings.TrimSpace(stage),
		duration:    durationSeconds,
		scaleOffset: offset,
		scaleFactor: factor,
		now:         time.Now,
	}
	tracker.started = tracker.now()
	return tracker
}

// Update parses one diagnostic line. The boolean reports whether the line
// contained a progress token.
func (t *progressTracker) Update(line string) (ProgressEvent, bool) {
	current, ok := ParseTimeToSeconds(line)
	if !ok || t.duration <= 0 {
		return ProgressEvent{}, false
	}
	percent := current / t.duration * 100
	if percent > 100 {
		percent = 100
	}
	eta := 0.0
	if percent > 0 {
		elapsed := t.now().Sub(t.started).Seconds()
		eta = elapsed / percent * (100 - percent)
	}
	return ProgressEvent{
		Percent:       t.scaleOffset + percent*t.scaleFactor,
		CurrentTime:   current,
		TotalDuration: t.duration,
		ETASeconds:    eta,
		Stage:         t.stage,
	}, true
}
