package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"animux/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int { return &v }

func TestAddAndListEpisodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	second, err := store.AddEpisode(ctx, Episode{
		SeriesTitle:   "Show",
		EpisodeNumber: intPtr(2),
		ContentType:   ContentSeries,
		FilePath:      "/library/show/02.mkv",
	})
	if err != nil {
		t.Fatal(err)
	}
	first, err := store.AddEpisode(ctx, Episode{
		SeriesTitle:   "Show",
		EpisodeNumber: intPtr(1),
		ContentType:   ContentSeries,
		FilePath:      "/library/show/01.mkv",
	})
	if err != nil {
		t.Fatal(err)
	}
	special, err := store.AddEpisode(ctx, Episode{
		SeriesTitle: "Show",
		ContentType: ContentSpecial,
		FilePath:    "/library/show/ova.mkv",
	})
	if err != nil {
		t.Fatal(err)
	}

	episodes, err := store.Episodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 3 {
		t.Fatalf("episodes = %d", len(episodes))
	}
	// Numbered episodes come first in number order; unnumbered last.
	if episodes[0].ID != first.ID || episodes[1].ID != second.ID || episodes[2].ID != special.ID {
		t.Fatalf("order: %v %v %v", episodes[0].ID, episodes[1].ID, episodes[2].ID)
	}
	if episodes[2].EpisodeNumber != nil {
		t.Fatalf("special should have no number: %+v", episodes[2])
	}
	if *episodes[0].EpisodeNumber != 1 {
		t.Fatalf("first number = %d", *episodes[0].EpisodeNumber)
	}
}

func TestEpisodeByIDNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.EpisodeByID(context.Background(), 42)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestInsertAndDeleteTrack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	episode, err := store.AddEpisode(ctx, Episode{FilePath: "/library/show/01.mkv"})
	if err != nil {
		t.Fatal(err)
	}

	track, err := store.InsertTrack(ctx, Track{
		EpisodeID: episode.ID,
		Kind:      TrackAudio,
		Language:  "ru",
		DubGroup:  "SomeDub",
		FilePath:  "/library/show/01.ru.m4a",
	})
	if err != nil {
		t.Fatal(err)
	}
	if track.ID == "" {
		t.Fatal("track should get a generated id")
	}

	tracks, err := store.Tracks(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].ID != track.ID || tracks[0].Kind != TrackAudio {
		t.Fatalf("tracks = %+v", tracks)
	}

	if err := store.DeleteTrack(ctx, track.ID); err != nil {
		t.Fatal(err)
	}
	// Deleting an already-deleted row is fine; rollback may retry.
	if err := store.DeleteTrack(ctx, track.ID); err != nil {
		t.Fatal(err)
	}
	tracks, err = store.Tracks(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 0 {
		t.Fatalf("tracks should be empty, got %+v", tracks)
	}
}

func TestInsertTrackValidatesKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	episode, err := store.AddEpisode(ctx, Episode{FilePath: "/library/show/01.mkv"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.InsertTrack(ctx, Track{EpisodeID: episode.ID, Kind: "video"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.db")

	store, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	episode, err := store.AddEpisode(context.Background(), Episode{FilePath: "/library/show/01.mkv"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, err := reopened.EpisodeByID(context.Background(), episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FilePath != "/library/show/01.mkv" {
		t.Fatalf("episode = %+v", got)
	}
}
