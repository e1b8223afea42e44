package detector

import (
	"math"

	"github.com/kikiluvv/actionseg/internal/segments"
)

// durationTolerance absorbs float error in the min/max duration checks
const durationTolerance = 1e-9

// confidenceGain scales a window average into a confidence
const confidenceGain = 1.5

// Clamp turns a candidate window into a segment. Short windows are
// extended evenly on both sides and clipped to [0, videoDuration]; a
// window whose resulting duration is outside [MinDuration, MaxDuration]
// is rejected rather than truncated.
func Clamp(w segments.Window, videoDuration float64, cfg Config) (segments.Segment, bool) {
	start, end := w.Start, w.End

	if d := end - start; d < cfg.MinDuration {
		ext := (cfg.MinDuration - d) / 2
		start = math.Max(0, start-ext)
		end += ext
		if videoDuration > 0 {
			end = math.Min(videoDuration, end)
		}
	}

	d := end - start
	if d < cfg.MinDuration-durationTolerance || d > cfg.MaxDuration+durationTolerance {
		return segments.Segment{}, false
	}

	return segments.New(start, end, w.AvgScore, math.Min(1, w.AvgScore*confidenceGain)), true
}

// ClampAll applies Clamp to every window, dropping rejected ones
func ClampAll(windows []segments.Window, videoDuration float64, cfg Config) []segments.Segment {
	out := make([]segments.Segment, 0, len(windows))
	for _, w := range windows {
		if seg, ok := Clamp(w, videoDuration, cfg); ok {
			out = append(out, seg)
		}
	}
	return out
}
