package motion

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kikiluvv/actionseg/internal/ffmpeg"
)

// ErrUnopenable is returned when a video cannot be opened or reports no
// usable frame rate.
var ErrUnopenable = errors.New("video source unopenable")

// VideoMeta is the container metadata needed for timestamp math
type VideoMeta struct {
	FPS        float64
	FrameCount int
}

// Duration returns FrameCount / FPS, or 0 when the frame rate is unknown
func (m VideoMeta) Duration() float64 {
	if m.FPS <= 0 {
		return 0
	}
	return float64(m.FrameCount) / m.FPS
}

// Valid reports whether timestamps can be derived
func (m VideoMeta) Valid() bool {
	return m.FPS > 0 && m.FrameCount >= 0
}

// Decoder yields grayscale frames sequentially from the start of a video.
// ReadFrame returns io.EOF after the last frame.
type Decoder interface {
	FrameRate() float64
	FrameCount() int
	ReadFrame() (*image.Gray, error)
	Close() error
}

// Opener opens a Decoder for a path
type Opener interface {
	Open(ctx context.Context, path string) (Decoder, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(ctx context.Context, path string) (Decoder, error)

// Open calls f
func (f OpenerFunc) Open(ctx context.Context, path string) (Decoder, error) {
	return f(ctx, path)
}

// FFmpegOpener decodes videos through an ffmpeg child process, downscaled
// to the given frame size.
func FFmpegOpener(exec *ffmpeg.Executor, opts ffmpeg.FrameOptions) Opener {
	return OpenerFunc(func(ctx context.Context, path string) (Decoder, error) {
		fs, err := exec.OpenFrames(ctx, path, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnopenable, err)
		}
		return fs, nil
	})
}
