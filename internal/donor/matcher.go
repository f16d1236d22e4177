package donor

import (
	"fmt"
	"sync"

	"animux/internal/library"
	"animux/internal/services"
)

// Matcher correlates donor files with library episodes. Automatic matching
// never overwrites a manual override; overrides can be cleared back to
// unmatched.
type Matcher struct {
	mu       sync.Mutex
	episodes map[int]library.Episode
	matches  []Match
}

// NewMatcher indexes episodes by number. Episodes without a number are not
// matchable automatically.
func NewMatcher(episodes []library.Episode) *Matcher {
	index := make(map[int]library.Episode, len(episodes))
	for _, episode := range episodes {
		if episode.EpisodeNumber == nil {
			continue
		}
		index[*episode.EpisodeNumber] = episode
	}
	return &Matcher{episodes: index}
}

// Match runs automatic matching over donors, replacing prior automatic
// results but preserving any manual overrides keyed by donor path.
func (m *Matcher) Match(donors []File) []Match {
	m.mu.Lock()
	defer m.mu.Unlock()

	manual := make(map[string]Match, len(m.matches))
	for _, match := range m.matches {
		if match.Confidence == ConfidenceManual {
			manual[match.File.Path] = match
		}
	}

	matches := make([]Match, 0, len(donors))
	for _, donor := range donors {
		if kept, ok := manual[donor.Path]; ok {
			matches = append(matches, kept)
			continue
		}
		matches = append(matches, autoMatch(donor, m.episodes))
	}
	m.matches = matches
	return append([]Match(nil), matches...)
}

func autoMatch(donor File, episodes map[int]library.Episode) Match {
	if donor.EpisodeNumber == nil {
		return Match{File: donor, Confidence: ConfidenceUnmatched}
	}
	episode, ok := episodes[*donor.EpisodeNumber]
	if !ok {
		return Match{File: donor, Confidence: ConfidenceUnmatched}
	}
	return Match{File: donor, Target: &episode, Confidence: ConfidenceAuto}
}

// Matches returns the current match list.
func (m *Matcher) Matches() []Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Match(nil), m.matches...)
}

// SetManual pins a donor file to an episode.
func (m *Matcher) SetManual(donorPath string, episode library.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.matches {
		if m.matches[i].File.Path == donorPath {
			target := episode
			m.matches[i].Target = &target
			m.matches[i].Confidence = ConfidenceManual
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "donor", "manual match", fmt.Sprintf("no donor file %q", donorPath), nil)
}

// ClearManual reverts a manual override back to unmatched.
func (m *Matcher) ClearManual(donorPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.matches {
		if m.matches[i].File.Path == donorPath {
			m.matches[i].Target = nil
			m.matches[i].Confidence = ConfidenceUnmatched
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "donor", "clear match", fmt.Sprintf("no donor file %q", donorPath), nil)
}
