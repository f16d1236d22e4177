package donor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"animux/internal/config"
	"animux/internal/demux"
	"animux/internal/encoding"
	"animux/internal/fileutil"
	"animux/internal/library"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/media/ffprobe"
	"animux/internal/services"
	"animux/internal/workerpool"
)

// donorProbe abstracts media inspection for tests.
var donorProbe = ffprobe.Inspect

// TrackState is the per-track processing state.
type TrackState string

const (
	StateWaiting   TrackState = "waiting"
	StateTranscode TrackState = "transcode"
	StateCopy      TrackState = "copy"
	StateDone      TrackState = "done"
	StateError     TrackState = "error"
)

// TrackSelection is one donor track chosen for merging, with per-track
// overrides.
type TrackSelection struct {
	Match Match
	// Language and Title override the stored track metadata.
	Language string
	Title    string
	// OffsetSeconds is the audio-offset convention: positive trims the
	// head, negative delays. Subtitle shifting negates it.
	OffsetSeconds float64
	// Fonts are copied alongside a subtitle track.
	Fonts []string
}

// TrackStatus reports the outcome for one selection.
type TrackStatus struct {
	DonorPath string
	State     TrackState
	TrackID   string
	Error     string
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithEncoder injects a custom transcode engine (primarily for tests).
func WithEncoder(engine *encoding.Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.encoder = engine
		}
	}
}

// WithDemuxer injects a custom demux engine (primarily for tests).
func WithDemuxer(engine *demux.Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.demuxer = engine
		}
	}
}

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(runner *ffmpeg.Runner) Option {
	return func(p *Pipeline) {
		if runner != nil {
			p.runner = runner
		}
	}
}

// Pipeline merges selected donor tracks into library episodes with
// transactional rollback on cancellation.
type Pipeline struct {
	cfg       *config.Config
	store     *library.Store
	encoder   *encoding.Engine
	demuxer   *demux.Engine
	runner    *ffmpeg.Runner
	pool      *workerpool.Pool
	logger    *slog.Logger
	cancelled atomic.Bool
}

// NewPipeline constructs a donor pipeline with its own admission pool sized
// from the configured donor cap.
func NewPipeline(cfg *config.Config, store *library.Store, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if store == nil {
		return nil, errors.New("store required")
	}
	encoder, err := encoding.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	demuxer, err := demux.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	runner, err := ffmpeg.NewRunner(cfg.FFmpegBinary())
	if err != nil {
		return nil, err
	}
	pipeline := &Pipeline{
		cfg:     cfg,
		store:   store,
		encoder: encoder,
		demuxer: demuxer,
		runner:  runner,
		pool:    workerpool.New(cfg.Concurrency.DonorMax),
		logger:  logging.NewComponentLogger(logger, "donor"),
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline, nil
}

// Pool exposes the admission pool for runtime cap adjustments.
func (p *Pipeline) Pool() *workerpool.Pool { return p.pool }

// Cancel flips the shared flag. Tracks not yet started short-circuit into
// an error state; in-flight external processes are not terminated.
func (p *Pipeline) Cancel() { p.cancelled.Store(true) }

// Cancelled reports whether a cancel was requested.
func (p *Pipeline) Cancelled() bool { return p.cancelled.Load() }

// Process merges every selection, running tracks concurrently under the
// donor pool cap. On cancellation all committed side effects are rolled
// back and the per-track statuses report what happened.
func (p *Pipeline) Process(ctx context.Context, selections []TrackSelection) ([]TrackStatus, error) {
	if p == nil {
		return nil, errors.New("pipeline not initialized")
	}
	p.cancelled.Store(false)

	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, p.logger)

	// One merge job per library at a time; concurrent daemons would race
	// on track rows and staged files.
	lock := flock.New(filepath.Join(p.cfg.Paths.LibraryDir, ".animux-merge.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(nil, "donor", "acquire library lock", "", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "donor", "acquire library lock", "another merge job is running", nil)
	}
	defer func() { _ = lock.Unlock() }()

	ledger := NewLedger()
	statuses := make([]TrackStatus, len(selections))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for i, selection := range selections {
		i, selection := i, selection
		statuses[i] = TrackStatus{DonorPath: selection.Match.File.Path, State: StateWaiting}
		group.Go(func() error {
			return p.pool.Submit(groupCtx, func(taskCtx context.Context) error {
				status := p.processTrack(taskCtx, selection, ledger)
				mu.Lock()
				statuses[i] = status
				mu.Unlock()
				// Track failures surface in statuses, not as a group
				// abort; unrelated tracks keep going.
				return nil
			})
		})
	}
	if err := group.Wait(); err != nil {
		p.rollback(ctx, ledger)
		return statuses, err
	}

	if p.cancelled.Load() {
		logger.Info("merge cancelled, rolling back", logging.Int("committed", ledger.Len()))
		p.rollback(ctx, ledger)
		return statuses, services.Wrap(services.ErrCancelled, "donor", "process tracks", "", nil)
	}

	logger.Info("donor merge complete", logging.Int("tracks", len(selections)))
	return statuses, nil
}

func (p *Pipeline) processTrack(ctx context.Context, selection TrackSelection, ledger *Ledger) TrackStatus {
	status := TrackStatus{DonorPath: selection.Match.File.Path, State: StateWaiting}
	fail := func(err error) TrackStatus {
		status.State = StateError
		status.Error = err.Error()
		return status
	}

	if p.cancelled.Load() {
		return fail(errors.New("cancelled"))
	}
	if selection.Match.Target == nil {
		return fail(errors.New("no target episode"))
	}
	episode := *selection.Match.Target

	switch selection.Match.File.Kind {
	case KindAudio:
		return p.processAudio(ctx, selection, episode, ledger)
	case KindSubtitle:
		return p.processSubtitle(ctx, selection, episode, ledger)
	case KindVideo:
		return p.processEmbedded(ctx, selection, episode, ledger)
	default:
		return fail(fmt.Errorf("unsupported donor kind %q", selection.Match.File.Kind))
	}
}

// trackDestination places merged tracks next to the episode file.
func trackDestination(episode library.Episode, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(episode.FilePath), filepath.Ext(episode.FilePath))
	if suffix != "" {
		base += "." + suffix
	}
	return filepath.Join(filepath.Dir(episode.FilePath), base+ext)
}

// commitTrack persists the row and records it in the ledger before the
// side effect counts as durable.
func (p *Pipeline) commitTrack(ctx context.Context, track library.Track, ledger *Ledger) (library.Track, error) {
	inserted, err := p.store.InsertTrack(ctx, track)
	if err != nil {
		return library.Track{}, err
	}
	ledger.Append(AddedRecord{Type: RecordTrack, DatabaseID: inserted.ID, FilePath: inserted.FilePath})
	return inserted, nil
}

func (p *Pipeline) processAudio(ctx context.Context, selection TrackSelection, episode library.Episode, ledger *Ledger) TrackStatus {
	status := TrackStatus{DonorPath: selection.Match.File.Path, State: StateWaiting}
	donor := selection.Match.File

	probe, err := donorProbe(ctx, p.cfg.FFprobeBinary(), donor.Path)
	if err != nil {
		return failStatus(status, err)
	}
	audioStreams := probe.AudioStreams()
	if len(audioStreams) == 0 {
		return failStatus(status, errors.New("donor file has no audio stream"))
	}
	stream := audioStreams[0]
	bitrate := ffprobe.ExtractBitrate(stream)

	suffix := selection.Language
	if suffix == "" {
		suffix = donor.DubGroup
	}
	needsTranscode := encoding.NeedsAudioTranscode(stream.CodecName, bitrate)
	if needsTranscode || selection.OffsetSeconds != 0 {
		status.State = StateTranscode
		destination := trackDestination(episode, suffix, ".m4a")
		opts := encoding.AudioOptions{
			Codec:             "aac",
			BitrateKbps:       encoding.SuggestAudioBitrate(bitrate),
			SyncOffsetSeconds: selection.OffsetSeconds,
		}
		if err := p.encoder.TranscodeAudioCBR(ctx, donor.Path, destination, opts, nil); err != nil {
			return failStatus(status, err)
		}
		return p.finishTrack(ctx, status, selection, episode, library.TrackAudio, destination, ledger)
	}

	status.State = StateCopy
	destination := trackDestination(episode, suffix, filepath.Ext(donor.Path))
	if err := fileutil.CopyFile(donor.Path, destination); err != nil {
		return failStatus(status, err)
	}
	return p.finishTrack(ctx, status, selection, episode, library.TrackAudio, destination, ledger)
}

func (p *Pipeline) processSubtitle(ctx context.Context, selection TrackSelection, episode library.Episode, ledger *Ledger) TrackStatus {
	status := TrackStatus{DonorPath: selection.Match.File.Path, State: StateWaiting}
	donor := selection.Match.File

	suffix := selection.Language
	if suffix == "" {
		suffix = donor.DubGroup
	}
	destination := trackDestination(episode, suffix, filepath.Ext(donor.Path))

	if selection.OffsetSeconds != 0 {
		// Shifting subtitle cues is the mirror of delaying audio, so the
		// offset is negated relative to the audio convention.
		status.State = StateTranscode
		if err := p.shiftSubtitle(ctx, donor.Path, destination, -selection.OffsetSeconds); err != nil {
			return failStatus(status, err)
		}
	} else {
		status.State = StateCopy
		if err := fileutil.CopyFile(donor.Path, destination); err != nil {
			return failStatus(status, err)
		}
	}

	for _, font := range selection.Fonts {
		target := filepath.Join(filepath.Dir(episode.FilePath), "fonts", filepath.Base(font))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return failStatus(status, err)
		}
		if err := fileutil.CopyFile(font, target); err != nil {
			return failStatus(status, err)
		}
	}

	return p.finishTrack(ctx, status, selection, episode, library.TrackSubtitle, destination, ledger)
}

// shiftSubtitle rewrites cue times through ffmpeg's input timestamp offset.
func (p *Pipeline) shiftSubtitle(ctx context.Context, input, output string, offsetSeconds float64) error {
	args := []string{
		"-y", "-hide_banner",
		"-itsoffset", fmt.Sprintf("%.3f", offsetSeconds),
		"-i", input,
		"-c", "copy",
		output,
	}
	return p.runner.Run(ctx, args, nil)
}

// processEmbedded extracts audio tracks out of a donor video container and
// merges each one.
func (p *Pipeline) processEmbedded(ctx context.Context, selection TrackSelection, episode library.Episode, ledger *Ledger) TrackStatus {
	status := TrackStatus{DonorPath: selection.Match.File.Path, State: StateTranscode}
	donor := selection.Match.File

	staging := filepath.Join(p.cfg.Paths.StagingDir, "donor", uuid.NewString())
	defer os.RemoveAll(staging)

	result, err := p.demuxer.Demux(ctx, donor.Path, staging, demux.Options{
		SkipVideo: true,
		AudioMode: demux.AudioModeSmart,
	})
	if err != nil {
		return failStatus(status, err)
	}
	if len(result.Audio) == 0 {
		return failStatus(status, errors.New("donor container has no audio stream"))
	}

	// First audio track carries the dub; the rest are commentary or
	// alternates and stay untouched.
	track := result.Audio[0]
	suffix := selection.Language
	if suffix == "" {
		suffix = track.Language
	}

	var destination string
	if track.Path != "" {
		destination = trackDestination(episode, suffix, filepath.Ext(track.Path))
		if err := fileutil.CopyFile(track.Path, destination); err != nil {
			return failStatus(status, err)
		}
	} else {
		destination = trackDestination(episode, suffix, ".m4a")
		opts := encoding.AudioOptions{
			Codec:             "aac",
			BitrateKbps:       encoding.SuggestAudioBitrate(track.BitrateBits),
			SyncOffsetSeconds: selection.OffsetSeconds,
		}
		if err := p.encoder.TranscodeAudioCBR(ctx, track.Source.Path, destination, opts, nil); err != nil {
			return failStatus(status, err)
		}
	}
	return p.finishTrack(ctx, status, selection, episode, library.TrackAudio, destination, ledger)
}

func (p *Pipeline) finishTrack(ctx context.Context, status TrackStatus, selection TrackSelection, episode library.Episode, kind library.TrackKind, destination string, ledger *Ledger) TrackStatus {
	inserted, err := p.commitTrack(ctx, library.Track{
		EpisodeID: episode.ID,
		Kind:      kind,
		Language:  selection.Language,
		Title:     selection.Title,
		DubGroup:  selection.Match.File.DubGroup,
		FilePath:  destination,
	}, ledger)
	if err != nil {
		return failStatus(status, err)
	}
	status.State = StateDone
	status.TrackID = inserted.ID
	return status
}

func failStatus(status TrackStatus, err error) TrackStatus {
	status.State = StateError
	status.Error = err.Error()
	return status
}

// rollback undoes every ledger entry: delete the row, then best-effort
// delete its file, continuing past individual failures until the ledger is
// drained. Pre-existing data is never touched.
func (p *Pipeline) rollback(ctx context.Context, ledger *Ledger) {
	logger := logging.WithContext(ctx, p.logger)
	for _, record := range ledger.DrainAll() {
		if err := p.store.DeleteTrack(ctx, record.DatabaseID); err != nil {
			logger.Warn("rollback: delete row failed",
				logging.String("track_id", record.DatabaseID),
				logging.Error(err),
			)
		}
		if record.FilePath == "" {
			continue
		}
		if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("rollback: delete file failed",
				logging.String("path", record.FilePath),
				logging.Error(err),
			)
		}
	}
}
