package detector

import (
	"fmt"
	"math"

	"github.com/kikiluvv/actionseg/internal/segments"
	"gonum.org/v1/gonum/stat"
)

// thresholdStdDevs is how far above the mean a window average must be
const thresholdStdDevs = 0.5

// WindowLength is the number of motion samples spanning target seconds
func WindowLength(fps, target float64, stride int) int {
	if stride < 1 {
		return 0
	}
	return int(math.Round(fps * target / float64(stride)))
}

// Threshold is mean + 0.5 population standard deviations of the
// normalized scores, raised to floor when floor is higher.
func Threshold(samples []segments.NormalizedSample, floor float64) float64 {
	if len(samples) == 0 {
		return floor
	}
	values := normalizedValues(samples)
	mean, std := stat.PopMeanStdDev(values, nil)
	return math.Max(mean+thresholdStdDevs*std, floor)
}

// ExtractWindows slides a target-length window with 50% overlap over the
// samples and keeps every window whose average clears the threshold.
// Window spans run from the first to the last sample timestamp.
func ExtractWindows(samples []segments.NormalizedSample, fps float64, cfg Config) ([]segments.Window, error) {
	windowLen := WindowLength(fps, cfg.TargetDuration, cfg.Stride)
	if windowLen <= 0 {
		return nil, fmt.Errorf("%w: window length %d from fps %.3f, target %vs, stride %d",
			ErrInvalidConfig, windowLen, fps, cfg.TargetDuration, cfg.Stride)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	step := windowLen / 2
	if step < 1 {
		step = 1
	}

	values := normalizedValues(samples)
	threshold := Threshold(samples, cfg.MotionFloor)

	var windows []segments.Window
	for i := 0; i+windowLen <= len(samples); i += step {
		avg := stat.Mean(values[i:i+windowLen], nil)
		if avg <= threshold {
			continue
		}
		windows = append(windows, segments.Window{
			Start:    samples[i].Timestamp,
			End:      samples[i+windowLen-1].Timestamp,
			AvgScore: avg,
			Samples:  samples[i : i+windowLen : i+windowLen],
		})
	}
	return windows, nil
}

func normalizedValues(samples []segments.NormalizedSample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Normalized
	}
	return values
}
