package detector

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
)

// LocalProvider runs the optical-flow pipeline on the local machine:
// sample, score, normalize, window, clamp and resolve overlaps.
type LocalProvider struct {
	logger zerolog.Logger
	cfg    Config
	opener motion.Opener
	scorer *motion.Scorer
}

// NewLocalProvider builds the local strategy. cfg is assumed valid.
func NewLocalProvider(logger zerolog.Logger, cfg Config, opener motion.Opener, flow motion.FlowEstimator) *LocalProvider {
	logger = logger.With().Str("component", "local-detector").Logger()
	return &LocalProvider{
		logger: logger,
		cfg:    cfg,
		opener: opener,
		scorer: motion.NewScorer(logger, flow),
	}
}

// Name implements Provider
func (p *LocalProvider) Name() string {
	return string(segments.SourceLocal)
}

// Detect implements Provider. Panics in the pipeline are recovered and
// reported as an unreadable source.
func (p *LocalProvider) Detect(ctx context.Context, videoPath string) (res segments.Result, err error) {
	log := p.logger.With().Str("video", videoPath).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("local detection panicked")
			res = segments.Empty(segments.SourceLocal, segments.OutcomeSourceUnreadable, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	dec, err := p.opener.Open(ctx, videoPath)
	if err != nil {
		log.Warn().Err(err).Msg("cannot open video")
		return segments.Empty(segments.SourceLocal, segments.OutcomeSourceUnreadable, err), nil
	}
	defer func() {
		if cerr := dec.Close(); cerr != nil {
			log.Debug().Err(cerr).Msg("decoder close")
		}
	}()

	sampler, err := motion.NewSampler(dec, p.cfg.Stride)
	if err != nil {
		if errors.Is(err, motion.ErrUnopenable) {
			log.Warn().Err(err).Msg("video metadata unusable")
			return segments.Empty(segments.SourceLocal, segments.OutcomeSourceUnreadable, err), nil
		}
		return segments.Result{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	meta := sampler.Meta()

	samples, err := p.scorer.Score(ctx, sampler)
	if err != nil {
		log.Warn().Err(err).Msg("motion scoring failed")
		return segments.Empty(segments.SourceLocal, segments.OutcomeSourceUnreadable, err), nil
	}
	if len(samples) < 2 {
		log.Info().Int("samples", len(samples)).Msg("too few motion samples")
		return segments.Empty(segments.SourceLocal, segments.OutcomeDegenerateSignal,
			fmt.Errorf("collected %d motion samples", len(samples))), nil
	}

	normalized := Normalize(samples)
	windows, err := ExtractWindows(normalized, meta.FPS, p.cfg)
	if err != nil {
		return segments.Result{}, err
	}

	videoDuration := math.Max(meta.Duration(), samples[len(samples)-1].Timestamp)
	candidates := ClampAll(windows, videoDuration, p.cfg)
	selected := ResolveOverlaps(candidates)

	log.Info().
		Float64("fps", meta.FPS).
		Int("frames", meta.FrameCount).
		Int("samples", len(samples)).
		Int("windows", len(windows)).
		Int("candidates", len(candidates)).
		Int("segments", len(selected)).
		Msg("local detection complete")

	return segments.Found(segments.SourceLocal, selected), nil
}
