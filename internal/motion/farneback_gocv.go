//go:build gocv

package motion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	flowBackends[BackendFarneback] = func(p FlowParams) (FlowEstimator, error) {
		return NewFarneback(p)
	}
}

// Farneback computes dense flow with OpenCV's polynomial-expansion method
type Farneback struct {
	params FlowParams
}

// NewFarneback validates p and returns the estimator
func NewFarneback(p FlowParams) (*Farneback, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Farneback{params: p}, nil
}

// MeanMagnitude implements FlowEstimator
func (f *Farneback) MeanMagnitude(prev, next *image.Gray) (float64, error) {
	pb, nb := prev.Bounds(), next.Bounds()
	if pb.Dx() != nb.Dx() || pb.Dy() != nb.Dy() {
		return 0, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", pb.Dx(), pb.Dy(), nb.Dx(), nb.Dy())
	}

	a, err := gocv.ImageGrayToMatGray(prev)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	b, err := gocv.ImageGrayToMatGray(next)
	if err != nil {
		return 0, err
	}
	defer b.Close()

	flow := gocv.NewMat()
	defer flow.Close()

	gocv.CalcOpticalFlowFarneback(a, b, &flow,
		f.params.PyrScale, f.params.Levels, f.params.WinSize, f.params.Iterations,
		5, 1.2, 0)

	channels := gocv.Split(flow)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 2 {
		return 0, fmt.Errorf("unexpected flow channels: %d", len(channels))
	}

	mag := gocv.NewMat()
	defer mag.Close()
	ang := gocv.NewMat()
	defer ang.Close()

	gocv.CartToPolar(channels[0], channels[1], &mag, &ang, false)

	return mag.Mean().Val1, nil
}
