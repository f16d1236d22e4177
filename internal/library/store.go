package library

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"animux/internal/config"
	"animux/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// release and must be migrated or recreated.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages library persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the library database under LibraryDir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LibraryDir, "library.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// AddEpisode inserts an episode and returns it with its assigned ID.
func (s *Store) AddEpisode(ctx context.Context, episode Episode) (Episode, error) {
	if episode.FilePath == "" {
		return Episode{}, services.Wrap(services.ErrValidation, "library", "add episode", "file path required", nil)
	}
	if episode.ContentType == "" {
		episode.ContentType = ContentUnknown
	}
	now := timestamp()
	res, err := s.execWithRetry(ctx,
		`INSERT INTO episodes (series_title, episode_number, content_type, file_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		episode.SeriesTitle, episode.EpisodeNumber, string(episode.ContentType), episode.FilePath, now, now)
	if err != nil {
		return Episode{}, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Episode{}, fmt.Errorf("episode id: %w", err)
	}
	episode.ID = id
	episode.CreatedAt = parseTimestamp(now)
	episode.UpdatedAt = episode.CreatedAt
	return episode, nil
}

// Episodes lists all episodes ordered by episode number then ID.
func (s *Store) Episodes(ctx context.Context) ([]Episode, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, series_title, episode_number, content_type, file_path, created_at, updated_at
		 FROM episodes ORDER BY episode_number IS NULL, episode_number, id`)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// EpisodeByID fetches one episode.
func (s *Store) EpisodeByID(ctx context.Context, id int64) (Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, series_title, episode_number, content_type, file_path, created_at, updated_at
		 FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, services.Wrap(services.ErrNotFound, "library", "episode lookup", fmt.Sprintf("episode %d", id), nil)
	}
	return episode, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (Episode, error) {
	var (
		episode   Episode
		number    sql.NullInt64
		content   string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&episode.ID, &episode.SeriesTitle, &number, &content, &episode.FilePath, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Episode{}, err
		}
		return Episode{}, fmt.Errorf("scan episode: %w", err)
	}
	if number.Valid {
		value := int(number.Int64)
		episode.EpisodeNumber = &value
	}
	episode.ContentType = ContentType(content)
	episode.CreatedAt = parseTimestamp(createdAt)
	episode.UpdatedAt = parseTimestamp(updatedAt)
	return episode, nil
}

// InsertTrack persists a track and returns it with its assigned UUID.
func (s *Store) InsertTrack(ctx context.Context, track Track) (Track, error) {
	if track.EpisodeID == 0 {
		return Track{}, services.Wrap(services.ErrValidation, "library", "insert track", "episode id required", nil)
	}
	if track.Kind != TrackAudio && track.Kind != TrackSubtitle {
		return Track{}, services.Wrap(services.ErrValidation, "library", "insert track", fmt.Sprintf("unknown track kind %q", track.Kind), nil)
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	now := timestamp()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO tracks (id, episode_id, kind, language, title, dub_group, file_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, track.EpisodeID, string(track.Kind), track.Language, track.Title, track.DubGroup, track.FilePath, now)
	if err != nil {
		return Track{}, fmt.Errorf("insert track: %w", err)
	}
	track.CreatedAt = parseTimestamp(now)
	return track, nil
}

// DeleteTrack removes a track row. Missing rows are not an error so rollback
// can retry safely.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	_, err := s.execWithRetry(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

// Tracks lists an episode's tracks in insertion order.
func (s *Store) Tracks(ctx context.Context, episodeID int64) ([]Track, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, episode_id, kind, language, title, dub_group, file_path, created_at
		 FROM tracks WHERE episode_id = ? ORDER BY created_at, id`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var (
			track     Track
			kind      string
			createdAt string
		)
		if err := rows.Scan(&track.ID, &track.EpisodeID, &kind, &track.Language, &track.Title, &track.DubGroup, &track.FilePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.Kind = TrackKind(kind)
		track.CreatedAt = parseTimestamp(createdAt)
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}
