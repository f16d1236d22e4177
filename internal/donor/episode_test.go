package donor

import "testing"

func TestExtractEpisodeNumber(t *testing.T) {
	tests := []struct {
		filename string
		want     int
		none     bool
	}{
		// The localized pattern must beat the generic dash pattern, which
		// would otherwise read the season number.
		{"Show - 2.sezon.05.serija.iz.12.mkv", 5, false},
		{"12.serija.mka", 12, false},
		{"[Group][Show][07][1080p].mkv", 7, false},
		{"Show.S01E05.1080p.mkv", 5, false},
		{"Show S02 E13.mkv", 13, false},
		{"Show Episode 9.mkv", 9, false},
		{"Show.ep04.ass", 4, false},
		{"Show - 07v2 [BD].mkv", 7, false},
		{"Show - 24.mkv", 24, false},
		{"Show 11 [720p].mkv", 11, false},
		{"Showname.mkv", 0, true},
		{"Opening Theme.flac", 0, true},
	}
	for _, tc := range tests {
		got := ExtractEpisodeNumber(tc.filename)
		if tc.none {
			if got != nil {
				t.Fatalf("ExtractEpisodeNumber(%q) = %d, want none", tc.filename, *got)
			}
			continue
		}
		if got == nil {
			t.Fatalf("ExtractEpisodeNumber(%q) = none, want %d", tc.filename, tc.want)
		}
		if *got != tc.want {
			t.Fatalf("ExtractEpisodeNumber(%q) = %d, want %d", tc.filename, *got, tc.want)
		}
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		filename string
		want     ContentType
	}{
		{"Show - 2.sezon.05.serija.mkv", ContentSeries},
		{"Show.S01E05.mkv", ContentSeries},
		{"Show - OVA.mkv", ContentSpecial},
		{"Show.Special.mkv", ContentSpecial},
		{"Show - NCOP.mkv", ContentSpecial},
		{"Show SP01.mkv", ContentSpecial},
		{"On the Road.mkv", ContentUnknown},
		{"[Group] Show - 07.mkv", ContentSeries},
		{"Random notes.ass", ContentUnknown},
	}
	for _, tc := range tests {
		if got := DetectContentType(tc.filename); got != tc.want {
			t.Fatalf("DetectContentType(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestExtractDubGroup(t *testing.T) {
	tests := map[string]string{
		"[SomeDub] Show - 05.mka": "SomeDub",
		"[07] Show.mka":           "",
		"Show - 05.mka":           "",
	}
	for filename, want := range tests {
		if got := ExtractDubGroup(filename); got != want {
			t.Fatalf("ExtractDubGroup(%q) = %q, want %q", filename, got, want)
		}
	}
}
