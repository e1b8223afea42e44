package detector

import (
	"errors"
	"fmt"

	"github.com/kikiluvv/actionseg/internal/segments"
)

// Form fields and file field of the remote analyze request
const (
	FieldVideo          = "video"
	FieldTargetDuration = "target_duration"
	FieldMinDuration    = "min_duration"
	FieldMaxDuration    = "max_duration"
)

// defaultRemoteScore fills action_score and confidence when omitted
const defaultRemoteScore = 0.5

// AnalyzeResponse is the JSON body of a successful analyze call
type AnalyzeResponse struct {
	Segments []WireSegment `json:"segments"`
}

// WireSegment is one segment as the analyze service reports it
type WireSegment struct {
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	ActionScore *float64 `json:"action_score,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

var errMalformedSegment = errors.New("malformed segment")

// ToWire converts a segment for an analyze response
func ToWire(s segments.Segment) WireSegment {
	start, end, score, conf := s.Start, s.End, s.Score, s.Confidence
	return WireSegment{StartTime: &start, EndTime: &end, ActionScore: &score, Confidence: &conf}
}

// Segment converts a reported segment. Missing scores default to 0.5;
// missing or inverted bounds are an error.
func (w WireSegment) Segment() (segments.Segment, error) {
	if w.StartTime == nil || w.EndTime == nil {
		return segments.Segment{}, fmt.Errorf("%w: missing start_time or end_time", errMalformedSegment)
	}
	if *w.EndTime <= *w.StartTime {
		return segments.Segment{}, fmt.Errorf("%w: end_time %v not after start_time %v", errMalformedSegment, *w.EndTime, *w.StartTime)
	}

	score, conf := defaultRemoteScore, defaultRemoteScore
	if w.ActionScore != nil {
		score = *w.ActionScore
	}
	if w.Confidence != nil {
		conf = *w.Confidence
	}
	return segments.New(*w.StartTime, *w.EndTime, score, conf), nil
}

// NewAnalyzeResponse converts detected segments for the wire
func NewAnalyzeResponse(segs []segments.Segment) AnalyzeResponse {
	resp := AnalyzeResponse{Segments: make([]WireSegment, 0, len(segs))}
	for _, s := range segs {
		resp.Segments = append(resp.Segments, ToWire(s))
	}
	return resp
}
