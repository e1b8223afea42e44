package motion

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
)

// Scorer measures motion between consecutive sampled frames
type Scorer struct {
	logger zerolog.Logger
	flow   FlowEstimator
}

// NewScorer creates a scorer around a flow estimator
func NewScorer(logger zerolog.Logger, flow FlowEstimator) *Scorer {
	return &Scorer{
		logger: logger.With().Str("component", "motion-scorer").Logger(),
		flow:   flow,
	}
}

// Score drains the sampler and returns one motion sample per consecutive
// pair of frames, anchored at the later frame. The first frame has no
// predecessor and produces no sample.
func (s *Scorer) Score(ctx context.Context, sampler *Sampler) ([]segments.MotionSample, error) {
	var (
		samples []segments.MotionSample
		prev    *FrameSample
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := sampler.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if prev != nil {
			mag, err := s.flow.MeanMagnitude(prev.Luma, frame.Luma)
			if err != nil {
				return nil, fmt.Errorf("flow between frames %d and %d: %w", prev.Index, frame.Index, err)
			}
			samples = append(samples, segments.MotionSample{
				Index:     frame.Index,
				Timestamp: frame.Timestamp,
				Raw:       mag,
			})
		}
		prev = &frame
	}

	s.logger.Debug().
		Int("samples", len(samples)).
		Msg("motion scoring complete")

	return samples, nil
}
