package segments

import "sort"

// Segment is a time interval selected as a high-activity clip.
// Times are in seconds from the start of the video.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// New builds a segment and derives its duration
func New(start, end, score, confidence float64) Segment {
	return Segment{
		Start:      start,
		End:        end,
		Duration:   end - start,
		Score:      score,
		Confidence: confidence,
	}
}

// Overlaps reports whether the half-open intervals [s.Start,s.End) and
// [o.Start,o.End) intersect.
func (s Segment) Overlaps(o Segment) bool {
	return !(s.End <= o.Start || s.Start >= o.End)
}

// MotionSample is the raw activity measured between two consecutive
// sampled frames, anchored at the later frame.
type MotionSample struct {
	Index     int
	Timestamp float64
	Raw       float64
}

// NormalizedSample is a MotionSample rescaled into [0,1] over a whole video.
type NormalizedSample struct {
	MotionSample
	Normalized float64
}

// Window is a contiguous run of normalized samples kept as a candidate.
type Window struct {
	Start    float64
	End      float64
	AvgScore float64
	Samples  []NormalizedSample
}

// Duration returns End - Start
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// SortChronological returns a copy of segs ordered by start time.
// Detection output is ordered by descending score; callers that want
// timeline order must ask for it.
func SortChronological(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// NonOverlapping reports whether no two segments in segs overlap.
func NonOverlapping(segs []Segment) bool {
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if segs[i].Overlaps(segs[j]) {
				return false
			}
		}
	}
	return true
}
