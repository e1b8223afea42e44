package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int
	Bitrate    int64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// FrameOptions controls the decoded frame format
type FrameOptions struct {
	Width  int
	Height int
}

// Default analysis frame size
const (
	DefaultFrameWidth  = 320
	DefaultFrameHeight = 240
)
