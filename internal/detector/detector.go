package detector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kikiluvv/actionseg/internal/ffmpeg"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
)

// Detector picks the detection strategy once at construction: remote
// with local fallback when remote mode is enabled and a key is set,
// otherwise local only. It holds no per-call state.
type Detector struct {
	logger   zerolog.Logger
	cfg      Config
	provider Provider
}

type options struct {
	opener     motion.Opener
	flow       motion.FlowEstimator
	httpClient *http.Client
	exec       *ffmpeg.Executor
}

// Option customises a Detector
type Option func(*options)

// WithOpener replaces the ffmpeg-backed video opener
func WithOpener(o motion.Opener) Option {
	return func(opts *options) { opts.opener = o }
}

// WithFlowEstimator replaces the configured optical flow backend
func WithFlowEstimator(f motion.FlowEstimator) Option {
	return func(opts *options) { opts.flow = f }
}

// WithHTTPClient sets the client used for remote calls
func WithHTTPClient(c *http.Client) Option {
	return func(opts *options) { opts.httpClient = c }
}

// WithExecutor decodes through an existing ffmpeg executor
func WithExecutor(e *ffmpeg.Executor) Option {
	return func(opts *options) { opts.exec = e }
}

// New validates cfg and wires the strategy. The only error it returns
// wraps ErrInvalidConfig.
func New(logger zerolog.Logger, cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With().Str("component", "detector").Logger()

	if o.flow == nil {
		flow, err := motion.NewFlowEstimator(cfg.FlowBackend, cfg.Flow)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		o.flow = flow
	}

	if o.opener == nil {
		o.opener = defaultOpener(logger, o.exec, cfg)
	}

	var provider Provider = NewLocalProvider(logger, cfg, o.opener, o.flow)
	if cfg.Remote.Active() {
		remote := NewRemoteProvider(logger, cfg, o.httpClient)
		provider = NewFallback(logger, remote, provider)
	}

	logger.Debug().
		Str("strategy", provider.Name()).
		Str("fingerprint", cfg.Fingerprint()).
		Msg("detector ready")

	return &Detector{logger: logger, cfg: cfg, provider: provider}, nil
}

// Config returns the configuration the detector was built with
func (d *Detector) Config() Config {
	return d.cfg
}

// Strategy names the selected provider chain
func (d *Detector) Strategy() string {
	return d.provider.Name()
}

// Detect finds the most active segments of a video, ordered by descending
// score. Data problems yield an empty Result with an explanatory outcome.
func (d *Detector) Detect(ctx context.Context, videoPath string) (segments.Result, error) {
	res, err := d.provider.Detect(ctx, videoPath)
	if err != nil {
		return segments.Result{}, err
	}

	if !res.OK() {
		d.logger.Warn().
			Err(res.Reason).
			Str("video", videoPath).
			Stringer("outcome", res.Outcome).
			Str("source", string(res.Source)).
			Msg("no segments detected")
	}
	return res, nil
}

// defaultOpener decodes through ffmpeg. Without ffmpeg every video is
// unopenable.
func defaultOpener(logger zerolog.Logger, exec *ffmpeg.Executor, cfg Config) motion.Opener {
	if exec == nil {
		var err error
		exec, err = ffmpeg.New(logger, 0)
		if err != nil {
			return motion.OpenerFunc(func(context.Context, string) (motion.Decoder, error) {
				return nil, fmt.Errorf("%w: %v", motion.ErrUnopenable, err)
			})
		}
	}
	return motion.FFmpegOpener(exec, ffmpeg.FrameOptions{Width: cfg.FrameWidth, Height: cfg.FrameHeight})
}
