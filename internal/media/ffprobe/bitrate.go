package ffprobe

import (
	"sort"
	"strconv"
	"strings"
)

// ExtractBitrate resolves a stream's bit rate in bits per second, trying in
// order: the explicit bit_rate field, a BPS tag, a BPS-<lang> tag, then any
// tag whose name contains "BPS" case-insensitively. The first positive value
// wins; zero or negative candidates are skipped and the search continues.
// The candidate order is load-bearing; do not collapse it into a single map
// scan.
func ExtractBitrate(stream Stream) int64 {
	if value := parseBitrate(stream.BitRate); value > 0 {
		return value
	}
	if value := parseBitrate(stream.Tag("BPS")); value > 0 {
		return value
	}
	for _, key := range sortedTagKeys(stream.Tags) {
		if !strings.HasPrefix(strings.ToUpper(key), "BPS-") {
			continue
		}
		if value := parseBitrate(stream.Tags[key]); value > 0 {
			return value
		}
	}
	for _, key := range sortedTagKeys(stream.Tags) {
		if !strings.Contains(strings.ToUpper(key), "BPS") {
			continue
		}
		if value := parseBitrate(stream.Tags[key]); value > 0 {
			return value
		}
	}
	return 0
}

// BitDepth infers the bit depth from a pixel-format string: formats naming
// "12" are 12-bit, "10" are 10-bit, everything else (including empty) is 8.
func BitDepth(pixFmt string) int {
	switch {
	case strings.Contains(pixFmt, "12"):
		return 12
	case strings.Contains(pixFmt, "10"):
		return 10
	default:
		return 8
	}
}

func parseBitrate(value string) int64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func sortedTagKeys(tags map[string]string) []string {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
