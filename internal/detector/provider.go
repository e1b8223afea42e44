package detector

import (
	"context"

	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
)

// Provider is one segment detection strategy
type Provider interface {
	Name() string
	// Detect reports data problems through the Result outcome. The error
	// is reserved for ErrInvalidConfig.
	Detect(ctx context.Context, videoPath string) (segments.Result, error)
}

// Fallback runs Secondary whenever Primary reports the remote service
// unavailable. Anything else Primary returns is final.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	logger    zerolog.Logger
}

// NewFallback composes two providers
func NewFallback(logger zerolog.Logger, primary, secondary Provider) *Fallback {
	return &Fallback{
		Primary:   primary,
		Secondary: secondary,
		logger:    logger.With().Str("component", "fallback").Logger(),
	}
}

// Name implements Provider
func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Detect implements Provider
func (f *Fallback) Detect(ctx context.Context, videoPath string) (segments.Result, error) {
	res, err := f.Primary.Detect(ctx, videoPath)
	if err != nil {
		return segments.Result{}, err
	}
	if res.Outcome != segments.OutcomeRemoteUnavailable {
		return res, nil
	}

	f.logger.Warn().
		Err(res.Reason).
		Str("video", videoPath).
		Str("primary", f.Primary.Name()).
		Str("secondary", f.Secondary.Name()).
		Msg("primary provider unavailable, falling back")

	return f.Secondary.Detect(ctx, videoPath)
}
