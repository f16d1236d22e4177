package encoding

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Profile names a reusable set of video encode settings. The source bit
// depth is resolved per job so a profile can serve both 8- and 10-bit inputs.
type Profile struct {
	Name        string
	Codec       VideoCodec
	RateControl RateControl
	Quality     int
	BitrateKbps int
	MaxRateKbps int
	BufSizeKbps int
	Deband      bool
}

// Options materializes the profile into per-job VideoOptions.
func (p Profile) Options(useGPU bool, sourceBitDepth int) VideoOptions {
	rc := p.RateControl
	// CQ and CRF are the same intent on different engines; profiles store
	// the intent and the engine picks the mechanism.
	if useGPU && rc == RateControlCRF {
		rc = RateControlCQ
	} else if !useGPU && rc == RateControlCQ {
		rc = RateControlCRF
	}
	return VideoOptions{
		Codec:       p.Codec,
		UseGPU:      useGPU,
		RateControl: rc,
		Quality:     p.Quality,
		BitrateKbps: p.BitrateKbps,
		MaxRateKbps: p.MaxRateKbps,
		BufSizeKbps: p.BufSizeKbps,
		BitDepth:    sourceBitDepth,
		Deband:      p.Deband,
	}
}

var builtinProfiles = map[string]Profile{
	"archive": {
		Name:        "archive",
		Codec:       CodecHEVC,
		RateControl: RateControlCQ,
		Quality:     20,
	},
	"standard": {
		Name:        "standard",
		Codec:       CodecHEVC,
		RateControl: RateControlCQ,
		Quality:     24,
	},
	"compact": {
		Name:        "compact",
		Codec:       CodecHEVC,
		RateControl: RateControlVBR,
		BitrateKbps: 2500,
		MaxRateKbps: 5000,
		BufSizeKbps: 10000,
	},
	"deband": {
		Name:        "deband",
		Codec:       CodecHEVC,
		RateControl: RateControlCQ,
		Quality:     22,
		Deband:      true,
	},
}

// LookupProfile resolves a named profile.
func LookupProfile(name string) (Profile, error) {
	profile, ok := builtinProfiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("unknown encode profile %q (available: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return profile, nil
}

// ProfileNames lists the built-in profile names in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for name := range builtinProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TranscodeWithProfile encodes input using a named profile, honoring the
// configured GPU preference and the source's bit depth.
func (e *Engine) TranscodeWithProfile(ctx context.Context, input, output string, profile Profile, sourceBitDepth int, progress ProgressFunc) error {
	opts := profile.Options(e.cfg.Encoding.UseGPU, sourceBitDepth)
	if e.cfg.Encoding.Deband {
		opts.Deband = true
	}
	return e.TranscodeVideo(ctx, input, output, opts, progress)
}
