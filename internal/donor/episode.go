package donor

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// episodeMatcher is one named filename pattern. Matchers run strictly in
// order and the first hit wins; reordering changes outcomes on ambiguous
// names, so the specific localized idioms stay ahead of the generic ones.
type episodeMatcher struct {
	name    string
	pattern *regexp.Regexp
	group   int
}

var episodeMatchers = []episodeMatcher{
	{
		// "2.sezon.05.serija.iz.12"
		name:    "sezon-serija",
		pattern: regexp.MustCompile(`(?i)(?:\d{1,2}\.)?sezon\.(\d{1,4})\.serija`),
		group:   1,
	},
	{
		// "05.serija" without a season prefix
		name:    "serija",
		pattern: regexp.MustCompile(`(?i)(?:^|[^\d])(\d{1,4})\.serija`),
		group:   1,
	},
	{
		// "S01E05"
		name:    "season-episode",
		pattern: regexp.MustCompile(`(?i)s\d{1,2}[ ._-]?e(\d{1,4})`),
		group:   1,
	},
	{
		// "Episode 7", "ep07"
		name:    "episode-word",
		pattern: regexp.MustCompile(`(?i)(?:episode|ep)[ ._-]?(\d{1,4})`),
		group:   1,
	},
	{
		// "[Group][Show][07][1080p]" - a short bare number in brackets
		name:    "bracket-number",
		pattern: regexp.MustCompile(`\[(\d{1,4})\]`),
		group:   1,
	},
	{
		// "Show - 07", "Show - 07v2"
		name:    "dash-number",
		pattern: regexp.MustCompile(`[-_] ?(\d{1,4})(?:v\d)?(?:[ .\[(]|$)`),
		group:   1,
	},
	{
		// "Show 07" - last resort, a standalone number not glued to text
		name:    "bare-number",
		pattern: regexp.MustCompile(`(?:^|[ ._])(\d{1,4})(?:[ ._]|$)`),
		group:   1,
	},
}

// ExtractEpisodeNumber parses an episode number out of a donor filename.
// Returns nil when no pattern matches. Pure function of the name.
func ExtractEpisodeNumber(filename string) *int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	for _, matcher := range episodeMatchers {
		groups := matcher.pattern.FindStringSubmatch(base)
		if groups == nil {
			continue
		}
		value, err := strconv.Atoi(groups[matcher.group])
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

// Keywords match on word boundaries so "road" never reads as "oad".
var (
	specialPattern = regexp.MustCompile(`(?i)(?:^|[^a-z])(ova|oad|special|sp\d+|ncop|nced|creditless|extras?|omake)(?:[^a-z]|$)`)
	seriesPattern  = regexp.MustCompile(`(?i)(?:^|[^a-z])(serija|episode|ep\d+|season|sezon|s\d{1,2}e\d{1,4})(?:[^a-z]|$)`)
)

// DetectContentType classifies a donor filename as series, special, or
// unknown. The classification is independent of episode-number extraction
// so callers can filter specials before matching.
func DetectContentType(filename string) ContentType {
	base := filepath.Base(filename)
	if specialPattern.MatchString(base) {
		return ContentSpecial
	}
	if seriesPattern.MatchString(base) {
		return ContentSeries
	}
	if ExtractEpisodeNumber(filename) != nil {
		return ContentSeries
	}
	return ContentUnknown
}

var dubGroupPattern = regexp.MustCompile(`^\[([^\]\d][^\]]*)\]`)

// ExtractDubGroup pulls a leading "[Group]" label off the filename, skipping
// purely numeric brackets.
func ExtractDubGroup(filename string) string {
	groups := dubGroupPattern.FindStringSubmatch(filepath.Base(filename))
	if groups == nil {
		return ""
	}
	return strings.TrimSpace(groups[1])
}
