package detector

import (
	"github.com/kikiluvv/actionseg/internal/segments"
	"gonum.org/v1/gonum/floats"
)

// Normalize min-max scales the raw scores of a whole video into [0,1].
// A constant sequence maps to all zeros.
func Normalize(samples []segments.MotionSample) []segments.NormalizedSample {
	if len(samples) == 0 {
		return nil
	}

	raw := make([]float64, len(samples))
	for i, s := range samples {
		raw[i] = s.Raw
	}
	lo, hi := floats.Min(raw), floats.Max(raw)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	out := make([]segments.NormalizedSample, len(samples))
	for i, s := range samples {
		out[i] = segments.NormalizedSample{
			MotionSample: s,
			Normalized:   (s.Raw - lo) / span,
		}
	}
	return out
}
