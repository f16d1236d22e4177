// Package screenshots generates preview images and thumbnail sprite sheets
// from a video file, bounded by a shared worker pool so bulk generation does
// not saturate storage I/O.
package screenshots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"animux/internal/config"
	"animux/internal/encoding"
	"animux/internal/logging"
	"animux/internal/media/ffmpeg"
	"animux/internal/services"
	"animux/internal/workerpool"
)

// Options controls screenshot generation.
type Options struct {
	// Count is the number of capture points, spread evenly across the
	// duration. Zero means 8.
	Count int
	// ThumbnailWidth is the scaled-down width in pixels. Zero means 320.
	ThumbnailWidth int
}

// Result lists the generated files in timestamp order.
type Result struct {
	Thumbnails []string
	FullSize   []string
}

// SpriteOptions controls sprite-sheet generation.
type SpriteOptions struct {
	// IntervalSeconds is the spacing between tiles. Zero means 10.
	IntervalSeconds float64
	// TileWidth and TileHeight size each tile. Zero means 160x90.
	TileWidth  int
	TileHeight int
	// Columns is the sheet width in tiles. Zero means 10.
	Columns int
}

// SpriteResult describes a generated sprite sheet and its WebVTT sidecar.
type SpriteResult struct {
	SpritePath      string
	VTTPath         string
	SpriteSizeBytes int64
}

// Option configures the engine.
type Option func(*Engine)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(runner *ffmpeg.Runner) Option {
	return func(e *Engine) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// Engine captures stills and sprite sheets via ffmpeg.
type Engine struct {
	cfg    *config.Config
	runner *ffmpeg.Runner
	pool   *workerpool.Pool
	logger *slog.Logger
}

// New constructs a screenshot engine with its own admission pool sized from
// the configured screenshot cap.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	runner, err := ffmpeg.NewRunner(cfg.FFmpegBinary())
	if err != nil {
		return nil, err
	}
	engine := &Engine{
		cfg:    cfg,
		runner: runner,
		pool:   workerpool.New(cfg.Concurrency.ScreenshotMax),
		logger: logging.NewComponentLogger(logger, "screenshots"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Pool exposes the admission pool for runtime cap adjustments.
func (e *Engine) Pool() *workerpool.Pool { return e.pool }

// capturePoints spreads count timestamps evenly inside (0, duration).
func capturePoints(durationSeconds float64, count int) []float64 {
	points := make([]float64, 0, count)
	step := durationSeconds / float64(count+1)
	for i := 1; i <= count; i++ {
		points = append(points, step*float64(i))
	}
	return points
}

// Generate captures count full-size frames plus scaled thumbnails. Captures
// run concurrently under the pool cap.
func (e *Engine) Generate(ctx context.Context, input, outDir string, durationSeconds float64, opts Options) (Result, error) {
	if e == nil {
		return Result{}, errors.New("engine not initialized")
	}
	if durationSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrValidation, "screenshots", "generate", "positive duration required", nil)
	}
	if opts.Count <= 0 {
		opts.Count = 8
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 320
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, services.Wrap(nil, "screenshots", "create output directory", "", err)
	}

	var (
		mu     sync.Mutex
		result Result
	)
	group, groupCtx := errgroup.WithContext(ctx)
	for i, point := range capturePoints(durationSeconds, opts.Count) {
		i, point := i, point
		group.Go(func() error {
			return e.pool.Submit(groupCtx, func(taskCtx context.Context) error {
				full := filepath.Join(outDir, fmt.Sprintf("screenshot_%02d.jpg", i))
				thumb := filepath.Join(outDir, fmt.Sprintf("thumb_%02d.jpg", i))
				if err := e.captureFrame(taskCtx, input, full, point, 0); err != nil {
					return err
				}
				if err := e.captureFrame(taskCtx, input, thumb, point, opts.ThumbnailWidth); err != nil {
					return err
				}
				mu.Lock()
				result.FullSize = append(result.FullSize, full)
				result.Thumbnails = append(result.Thumbnails, thumb)
				mu.Unlock()
				return nil
			})
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}
	sort.Strings(result.FullSize)
	sort.Strings(result.Thumbnails)

	logging.WithContext(ctx, e.logger).Info("screenshots generated",
		logging.String("input", input),
		logging.Int("count", len(result.FullSize)),
	)
	return result, nil
}

func (e *Engine) captureFrame(ctx context.Context, input, output string, atSeconds float64, width int) error {
	args := []string{
		"-y", "-hide_banner",
		"-ss", encoding.FormatSeconds(atSeconds),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
	}
	if width > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-1", width))
	}
	args = append(args, output)
	if err := e.runner.Run(ctx, args, nil); err != nil {
		return services.Wrap(nil, "screenshots", "capture frame", "", err)
	}
	return nil
}

// GenerateSprite renders one tiled sprite sheet and a WebVTT sidecar mapping
// time ranges to sprite coordinates.
func (e *Engine) GenerateSprite(ctx context.Context, input, outDir string, durationSeconds float64, opts SpriteOptions) (SpriteResult, error) {
	if e == nil {
		return SpriteResult{}, errors.New("engine not initialized")
	}
	if durationSeconds <= 0 {
		return SpriteResult{}, services.Wrap(services.ErrValidation, "screenshots", "generate sprite", "positive duration required", nil)
	}
	if opts.IntervalSeconds <= 0 {
		opts.IntervalSeconds = 10
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = 160
	}
	if opts.TileHeight <= 0 {
		opts.TileHeight = 90
	}
	if opts.Columns <= 0 {
		opts.Columns = 10
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return SpriteResult{}, services.Wrap(nil, "screenshots", "create output directory", "", err)
	}

	tiles := int(math.Ceil(durationSeconds / opts.IntervalSeconds))
	if tiles < 1 {
		tiles = 1
	}
	rows := (tiles + opts.Columns - 1) / opts.Columns

	spritePath := filepath.Join(outDir, "sprite.jpg")
	vttPath := filepath.Join(outDir, "sprite.vtt")

	filter := fmt.Sprintf("fps=1/%g,scale=%d:%d,tile=%dx%d",
		opts.IntervalSeconds, opts.TileWidth, opts.TileHeight, opts.Columns, rows)
	args := []string{
		"-y", "-hide_banner",
		"-i", input,
		"-vf", filter,
		"-frames:v", "1",
		"-q:v", "4",
		spritePath,
	}
	err := e.pool.Submit(ctx, func(taskCtx context.Context) error {
		return e.runner.Run(taskCtx, args, nil)
	})
	if err != nil {
		return SpriteResult{}, services.Wrap(nil, "screenshots", "render sprite", "", err)
	}

	vtt := spriteVTT(filepath.Base(spritePath), durationSeconds, tiles, opts)
	if err := os.WriteFile(vttPath, []byte(vtt), 0o644); err != nil {
		return SpriteResult{}, services.Wrap(nil, "screenshots", "write vtt sidecar", "", err)
	}

	var size int64
	if info, err := os.Stat(spritePath); err == nil {
		size = info.Size()
	}
	return SpriteResult{SpritePath: spritePath, VTTPath: vttPath, SpriteSizeBytes: size}, nil
}

// spriteVTT renders the WebVTT cue list. Each cue covers one interval and
// points at its tile via a media-fragment rectangle.
func spriteVTT(spriteName string, durationSeconds float64, tiles int, opts SpriteOptions) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for i := 0; i < tiles; i++ {
		start := float64(i) * opts.IntervalSeconds
		end := math.Min(durationSeconds, start+opts.IntervalSeconds)
		x := (i % opts.Columns) * opts.TileWidth
		y := (i / opts.Columns) * opts.TileHeight
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s --> %s\n", encoding.FormatSeconds(start), encoding.FormatSeconds(end))
		fmt.Fprintf(&b, "%s#xywh=%d,%d,%d,%d\n", spriteName, x, y, opts.TileWidth, opts.TileHeight)
	}
	return b.String()
}
