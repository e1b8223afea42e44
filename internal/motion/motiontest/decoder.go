// Package motiontest provides in-memory decoders for exercising the motion
// pipeline without ffmpeg.
package motiontest

import (
	"context"
	"errors"
	"image"
	"io"
	"math"

	"github.com/kikiluvv/actionseg/internal/motion"
)

// ErrInjected is returned by a Decoder configured with FailAt
var ErrInjected = errors.New("injected read failure")

// Decoder renders frames on demand
type Decoder struct {
	FPS    float64
	Frames int
	Width  int
	Height int
	// Render fills img for frame i
	Render func(i int, img *image.Gray)
	// FailAt makes ReadFrame fail at that frame index when > 0
	FailAt int

	pos    int
	closed bool
}

// FrameRate implements motion.Decoder
func (d *Decoder) FrameRate() float64 { return d.FPS }

// FrameCount implements motion.Decoder
func (d *Decoder) FrameCount() int { return d.Frames }

// ReadFrame implements motion.Decoder
func (d *Decoder) ReadFrame() (*image.Gray, error) {
	if d.closed {
		return nil, errors.New("decoder closed")
	}
	if d.FailAt > 0 && d.pos == d.FailAt {
		return nil, ErrInjected
	}
	if d.pos >= d.Frames {
		return nil, io.EOF
	}
	img := image.NewGray(image.Rect(0, 0, d.Width, d.Height))
	if d.Render != nil {
		d.Render(d.pos, img)
	}
	d.pos++
	return img, nil
}

// Close implements motion.Decoder
func (d *Decoder) Close() error {
	d.closed = true
	return nil
}

// Closed reports whether Close was called
func (d *Decoder) Closed() bool { return d.closed }

// Static returns a decoder whose frames are all the same flat gray
func Static(fps float64, frames, w, h int) *Decoder {
	return &Decoder{
		FPS: fps, Frames: frames, Width: w, Height: h,
		Render: func(_ int, img *image.Gray) {
			for i := range img.Pix {
				img.Pix[i] = 128
			}
		},
	}
}

// Translating returns a decoder showing a smooth texture shifted
// horizontally by offset(i) pixels in frame i.
func Translating(fps float64, frames, w, h int, offset func(i int) float64) *Decoder {
	return &Decoder{
		FPS: fps, Frames: frames, Width: w, Height: h,
		Render: func(i int, img *image.Gray) {
			RenderTexture(img, offset(i), 0)
		},
	}
}

// RenderTexture draws a sinusoidal texture shifted by (dx, dy)
func RenderTexture(img *image.Gray, dx, dy float64) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			fx := float64(x) + dx
			fy := float64(y) + dy
			v := 128 + 50*math.Sin(2*math.Pi*fx/16) + 50*math.Cos(2*math.Pi*fy/12)
			img.Pix[y*img.Stride+x] = uint8(math.Round(v))
		}
	}
}

// Burst returns an offset function that moves step pixels per frame
// between frames from and to and is still elsewhere.
func Burst(from, to int, step float64) func(int) float64 {
	return func(i int) float64 {
		switch {
		case i <= from:
			return 0
		case i >= to:
			return float64(to-from) * step
		default:
			return float64(i-from) * step
		}
	}
}

// Bursts combines several bursts; each adds its own displacement
func Bursts(fns ...func(int) float64) func(int) float64 {
	return func(i int) float64 {
		var total float64
		for _, f := range fns {
			total += f(i)
		}
		return total
	}
}

// Opener always returns the same decoder
func Opener(d motion.Decoder) motion.Opener {
	return motion.OpenerFunc(func(context.Context, string) (motion.Decoder, error) {
		return d, nil
	})
}

// Factory returns an opener that builds a fresh decoder per call
func Factory(build func() motion.Decoder) motion.Opener {
	return motion.OpenerFunc(func(context.Context, string) (motion.Decoder, error) {
		return build(), nil
	})
}

// FailingOpener always fails with err
func FailingOpener(err error) motion.Opener {
	return motion.OpenerFunc(func(context.Context, string) (motion.Decoder, error) {
		return nil, err
	})
}

// DiffFlow is a cheap stand-in estimator: the mean absolute luma
// difference between the two frames. Identical frames score 0.
type DiffFlow struct{}

// MeanMagnitude implements motion.FlowEstimator
func (DiffFlow) MeanMagnitude(prev, next *image.Gray) (float64, error) {
	if len(prev.Pix) != len(next.Pix) {
		return 0, errors.New("frame size mismatch")
	}
	if len(prev.Pix) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range prev.Pix {
		sum += math.Abs(float64(prev.Pix[i]) - float64(next.Pix[i]))
	}
	return sum / float64(len(prev.Pix)), nil
}
