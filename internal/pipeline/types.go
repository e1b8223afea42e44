package pipeline

import (
	"time"

	"github.com/kikiluvv/actionseg/internal/segments"
)

// Report is the outcome of one Analyze call
type Report struct {
	RunID     string             `json:"run_id"`
	InputPath string             `json:"input"`
	Video     VideoSummary       `json:"video"`
	Strategy  string             `json:"strategy"`
	Source    string             `json:"source"`
	Outcome   segments.Outcome   `json:"outcome"`
	Reason    string             `json:"reason,omitempty"`
	Segments  []segments.Segment `json:"segments"`
	// Fallback is set when detection found nothing and the opening
	// stretch of the video was substituted.
	Fallback bool `json:"fallback"`
	// CachedFrom holds the run id of the cached detection that was reused
	CachedFrom    string        `json:"cached_from,omitempty"`
	Chronological bool          `json:"chronological"`
	CreatedAt     time.Time     `json:"created_at"`
	Elapsed       time.Duration `json:"elapsed"`
}

// VideoSummary is the probed metadata of the input
type VideoSummary struct {
	Duration   float64 `json:"duration"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	VideoCodec string  `json:"video_codec"`
	HasAudio   bool    `json:"has_audio"`
}

// AnalyzeOptions configures one analysis. Zero durations keep the
// configured values.
type AnalyzeOptions struct {
	TargetDuration float64
	MinDuration    float64
	MaxDuration    float64
	// LocalOnly skips the remote service even when it is configured
	LocalOnly bool
	// Chronological orders the output by start time instead of score
	Chronological bool
	// MaxSegments keeps only the best N segments when positive
	MaxSegments int
	NoCache     bool
	// NoFallback returns an empty list instead of the opening stretch
	NoFallback bool
}

// fallbackScore is the neutral score of the substituted segment
const fallbackScore = 0.5

// Source value for reports that used the substituted segment
const sourceFallback = "fallback"
