package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/actionseg/internal/config"
	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/ffmpeg"
	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/kikiluvv/actionseg/internal/store"
	"github.com/rs/zerolog"
)

// Prober reads container metadata
type Prober interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
}

// Pipeline probes a video, consults the cache, runs detection and shapes
// the result for downstream cropping.
type Pipeline struct {
	logger  zerolog.Logger
	detCfg  detector.Config
	prober  Prober
	cache   *store.Store
	ownsDB  bool
	detOpts []detector.Option
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithProber replaces the ffprobe-backed metadata reader
func WithProber(p Prober) Option {
	return func(pl *Pipeline) { pl.prober = p }
}

// WithStore uses an already open cache. The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(pl *Pipeline) { pl.cache = s }
}

// WithDetectorOptions are passed to every detector the pipeline builds
func WithDetectorOptions(opts ...detector.Option) Option {
	return func(pl *Pipeline) { pl.detOpts = append(pl.detOpts, opts...) }
}

// New creates a new pipeline instance
func New(logger zerolog.Logger, appCfg *config.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		detCfg: appCfg.Detector(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.detCfg.Validate(); err != nil {
		return nil, err
	}

	if p.prober == nil {
		exec, err := ffmpeg.NewWithBinaries(logger, appCfg.FFmpeg.BinaryPath, appCfg.FFmpeg.ProbePath, appCfg.FFmpeg.Threads)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ffmpeg: %w", err)
		}
		p.prober = exec
		p.detOpts = append([]detector.Option{detector.WithExecutor(exec)}, p.detOpts...)
	}

	if p.cache == nil && appCfg.Cache.Enabled {
		cache, err := store.Open(appCfg.Cache.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		p.cache = cache
		p.ownsDB = true
	}

	return p, nil
}

// Close releases pipeline resources
func (p *Pipeline) Close() error {
	if p.cache != nil && p.ownsDB {
		return p.cache.Close()
	}
	return nil
}

// DetectorConfig returns the detection settings Analyze would use for opts
func (p *Pipeline) DetectorConfig(opts AnalyzeOptions) detector.Config {
	cfg := p.detCfg.WithDurations(opts.TargetDuration, opts.MinDuration, opts.MaxDuration)
	if opts.LocalOnly {
		cfg = cfg.WithoutRemote()
	}
	return cfg
}

// Analyze runs the full analysis pipeline on input video
func (p *Pipeline) Analyze(ctx context.Context, input string, opts AnalyzeOptions) (*Report, error) {
	started := time.Now()

	if input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}

	cfg := p.DetectorConfig(opts)
	det, err := detector.New(p.logger, cfg, p.detOpts...)
	if err != nil {
		return nil, err
	}

	log := p.logger.With().Str("input", input).Str("strategy", det.Strategy()).Logger()
	log.Info().
		Float64("target", cfg.TargetDuration).
		Float64("min", cfg.MinDuration).
		Float64("max", cfg.MaxDuration).
		Msg("starting analysis pipeline")

	// Stage 1: Extract video metadata
	info, err := p.prober.ProbeVideo(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to probe video: %w", err)
	}
	video := summarize(info)

	log.Info().
		Float64("duration", video.Duration).
		Int("width", video.Width).
		Int("height", video.Height).
		Float64("fps", video.FPS).
		Msg("video metadata extracted")

	report := &Report{
		RunID:         uuid.NewString(),
		InputPath:     input,
		Video:         video,
		Strategy:      det.Strategy(),
		Chronological: opts.Chronological,
		CreatedAt:     started,
	}

	// Stage 2: Cached or fresh detection
	res, err := p.detect(ctx, det, input, report, opts)
	if err != nil {
		return nil, err
	}

	report.Source = string(res.Source)
	report.Outcome = res.Outcome
	if res.Reason != nil {
		report.Reason = res.Reason.Error()
	}

	// Stage 3: Shape output for cropping
	segs := res.Segments
	if len(segs) == 0 && !opts.NoFallback {
		if fb, ok := openingSegment(cfg.TargetDuration, video.Duration); ok {
			log.Warn().
				Stringer("outcome", res.Outcome).
				Float64("end", fb.End).
				Msg("no segments detected, using opening of video")
			segs = []segments.Segment{fb}
			report.Fallback = true
			report.Source = sourceFallback
		}
	}
	if opts.MaxSegments > 0 && len(segs) > opts.MaxSegments {
		segs = segs[:opts.MaxSegments]
	}
	if opts.Chronological {
		segs = segments.SortChronological(segs)
	}
	if segs == nil {
		segs = []segments.Segment{}
	}
	report.Segments = segs
	report.Elapsed = time.Since(started)

	log.Info().
		Str("run_id", report.RunID).
		Str("source", report.Source).
		Stringer("outcome", report.Outcome).
		Int("segments", len(report.Segments)).
		Bool("cached", report.CachedFrom != "").
		Dur("elapsed", report.Elapsed).
		Msg("analysis pipeline complete")

	return report, nil
}

func (p *Pipeline) detect(ctx context.Context, det *detector.Detector, input string, report *Report, opts AnalyzeOptions) (segments.Result, error) {
	useCache := p.cache != nil && !opts.NoCache

	var key store.Key
	if useCache {
		var err error
		key, err = store.KeyFor(input, det.Config().Fingerprint())
		if err != nil {
			p.logger.Debug().Err(err).Msg("cannot key video for cache")
			useCache = false
		}
	}

	if useCache {
		entry, err := p.cache.Get(ctx, key)
		switch {
		case err == nil:
			report.CachedFrom = entry.RunID
			return segments.Result{Segments: entry.Segments, Outcome: entry.Outcome, Source: entry.Source}, nil
		case !errors.Is(err, store.ErrNotFound):
			p.logger.Warn().Err(err).Msg("cache read failed")
		}
	}

	res, err := det.Detect(ctx, input)
	if err != nil {
		return segments.Result{}, err
	}

	// unreadable sources are never cached
	if useCache && res.Outcome != segments.OutcomeSourceUnreadable {
		if _, err := p.cache.Put(ctx, key, report.RunID, res); err != nil {
			p.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
	return res, nil
}

// openingSegment covers the first min(target, duration) seconds
func openingSegment(target, duration float64) (segments.Segment, bool) {
	end := math.Min(target, duration)
	if end <= 0 {
		return segments.Segment{}, false
	}
	return segments.New(0, end, fallbackScore, fallbackScore), true
}

func summarize(info *ffmpeg.VideoInfo) VideoSummary {
	if info == nil {
		return VideoSummary{}
	}
	return VideoSummary{
		Duration:   info.Duration.Seconds(),
		Width:      info.Width,
		Height:     info.Height,
		FPS:        info.FPS,
		FrameCount: info.FrameCount,
		VideoCodec: info.VideoCodec,
		HasAudio:   info.HasAudio,
	}
}
