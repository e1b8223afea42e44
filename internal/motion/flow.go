package motion

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/nfnt/resize"
)

// FlowParams configures pyramidal optical flow
type FlowParams struct {
	// PyrScale is the image scale between pyramid levels, in (0,1).
	PyrScale float64
	// Levels counts pyramid layers including the full-size image.
	Levels int
	// WinSize is the odd side length of the averaging window.
	WinSize int
	// Iterations per pyramid level.
	Iterations int
}

// DefaultFlowParams returns the reference optical-flow settings
func DefaultFlowParams() FlowParams {
	return FlowParams{
		PyrScale:   0.5,
		Levels:     3,
		WinSize:    15,
		Iterations: 3,
	}
}

// Validate checks the parameters are usable
func (p FlowParams) Validate() error {
	if p.PyrScale <= 0 || p.PyrScale >= 1 {
		return fmt.Errorf("pyramid scale must be in (0,1), got %v", p.PyrScale)
	}
	if p.Levels < 1 {
		return fmt.Errorf("pyramid levels must be >= 1, got %d", p.Levels)
	}
	if p.WinSize < 3 || p.WinSize%2 == 0 {
		return fmt.Errorf("flow window size must be odd and >= 3, got %d", p.WinSize)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("flow iterations must be >= 1, got %d", p.Iterations)
	}
	return nil
}

// FlowEstimator reduces the dense flow between two frames of equal size
// to the mean per-pixel displacement magnitude.
type FlowEstimator interface {
	MeanMagnitude(prev, next *image.Gray) (float64, error)
}

// Flow backends selectable by name
const (
	BackendLucasKanade = "lk"
	BackendFarneback   = "farneback"
)

var flowBackends = map[string]func(FlowParams) (FlowEstimator, error){
	BackendLucasKanade: func(p FlowParams) (FlowEstimator, error) {
		return NewPyramidLK(p)
	},
}

// NewFlowEstimator builds the named backend. An empty name selects the
// pure-Go Lucas-Kanade estimator.
func NewFlowEstimator(backend string, p FlowParams) (FlowEstimator, error) {
	if backend == "" {
		backend = BackendLucasKanade
	}
	build, ok := flowBackends[backend]
	if !ok {
		return nil, fmt.Errorf("unknown optical flow backend %q (available: %v)", backend, FlowBackends())
	}
	return build(p)
}

// FlowBackends lists the compiled-in backend names
func FlowBackends() []string {
	names := make([]string, 0, len(flowBackends))
	for name := range flowBackends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// minPyramidSide stops pyramid construction before levels get too small
// to carry any signal.
const minPyramidSide = 8

// PyramidLK is a dense coarse-to-fine iterative Lucas-Kanade estimator.
// Every pixel solves the 2x2 normal equations over its WinSize window;
// flow found on a coarse level seeds the next finer one.
type PyramidLK struct {
	params FlowParams
}

// NewPyramidLK validates p and returns the estimator
func NewPyramidLK(p FlowParams) (*PyramidLK, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &PyramidLK{params: p}, nil
}

// MeanMagnitude implements FlowEstimator
func (lk *PyramidLK) MeanMagnitude(prev, next *image.Gray) (float64, error) {
	u, v, err := lk.Flow(prev, next)
	if err != nil {
		return 0, err
	}
	var sum float64
	for i := range u {
		sum += math.Hypot(u[i], v[i])
	}
	return sum / float64(len(u)), nil
}

// Flow returns the per-pixel horizontal and vertical displacement from
// prev to next, row-major at full resolution.
func (lk *PyramidLK) Flow(prev, next *image.Gray) (u, v []float64, err error) {
	pb, nb := prev.Bounds(), next.Bounds()
	if pb.Dx() != nb.Dx() || pb.Dy() != nb.Dy() {
		return nil, nil, fmt.Errorf("frame size mismatch: %dx%d vs %dx%d", pb.Dx(), pb.Dy(), nb.Dx(), nb.Dy())
	}
	if pb.Empty() {
		return nil, nil, fmt.Errorf("empty frame")
	}

	p0 := lk.pyramid(prev)
	p1 := lk.pyramid(next)

	cw, ch := 0, 0
	for l := len(p0) - 1; l >= 0; l-- {
		a, b := p0[l], p1[l]
		if u == nil {
			u = make([]float64, a.w*a.h)
			v = make([]float64, a.w*a.h)
		} else {
			u, v = upsampleFlow(u, v, cw, ch, a.w, a.h)
		}
		lk.refine(a, b, u, v)
		cw, ch = a.w, a.h
	}
	return u, v, nil
}

func (lk *PyramidLK) pyramid(img *image.Gray) []plane {
	levels := []plane{planeFromImage(img)}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()

	scale := 1.0
	for l := 1; l < lk.params.Levels; l++ {
		scale *= lk.params.PyrScale
		nw := int(math.Round(float64(w) * scale))
		nh := int(math.Round(float64(h) * scale))
		if nw < minPyramidSide || nh < minPyramidSide {
			break
		}
		levels = append(levels, planeFromImage(resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)))
	}
	return levels
}

// refine runs the Lucas-Kanade iterations for one level, updating u and v
// in place.
func (lk *PyramidLK) refine(a, b plane, u, v []float64) {
	n := a.w * a.h
	r := lk.params.WinSize / 2
	maxStep := float64(lk.params.WinSize)
	minEigen := 1e-3 * float64(lk.params.WinSize*lk.params.WinSize)

	ix, iy := a.gradients()
	prod := make([]float64, n)
	sxx := make([]float64, n)
	sxy := make([]float64, n)
	syy := make([]float64, n)

	for i := range prod {
		prod[i] = ix[i] * ix[i]
	}
	boxSum(prod, a.w, a.h, r, sxx)
	for i := range prod {
		prod[i] = ix[i] * iy[i]
	}
	boxSum(prod, a.w, a.h, r, sxy)
	for i := range prod {
		prod[i] = iy[i] * iy[i]
	}
	boxSum(prod, a.w, a.h, r, syy)

	it := make([]float64, n)
	sxt := make([]float64, n)
	syt := make([]float64, n)

	for iter := 0; iter < lk.params.Iterations; iter++ {
		for y := 0; y < a.h; y++ {
			for x := 0; x < a.w; x++ {
				i := y*a.w + x
				it[i] = b.sample(float64(x)+u[i], float64(y)+v[i]) - a.pix[i]
			}
		}

		for i := range prod {
			prod[i] = ix[i] * it[i]
		}
		boxSum(prod, a.w, a.h, r, sxt)
		for i := range prod {
			prod[i] = iy[i] * it[i]
		}
		boxSum(prod, a.w, a.h, r, syt)

		for i := 0; i < n; i++ {
			xx, xy, yy := sxx[i], sxy[i], syy[i]
			// smallest eigenvalue of the structure tensor
			tr := xx + yy
			disc := math.Sqrt((xx-yy)*(xx-yy) + 4*xy*xy)
			if (tr-disc)/2 < minEigen {
				continue
			}
			det := xx*yy - xy*xy
			du := (-yy*sxt[i] + xy*syt[i]) / det
			dv := (xy*sxt[i] - xx*syt[i]) / det
			if math.Abs(du) > maxStep || math.Abs(dv) > maxStep {
				continue
			}
			u[i] += du
			v[i] += dv
		}
	}
}

// upsampleFlow resizes a coarse flow field to w x h and rescales the
// vectors to the finer pixel grid.
func upsampleFlow(u, v []float64, cw, ch, w, h int) ([]float64, []float64) {
	nu := make([]float64, w*h)
	nv := make([]float64, w*h)
	sx := float64(cw) / float64(w)
	sy := float64(ch) / float64(h)
	for y := 0; y < h; y++ {
		cy := (float64(y)+0.5)*sy - 0.5
		for x := 0; x < w; x++ {
			cx := (float64(x)+0.5)*sx - 0.5
			nu[y*w+x] = bilinear(u, cw, ch, cx, cy) / sx
			nv[y*w+x] = bilinear(v, cw, ch, cx, cy) / sy
		}
	}
	return nu, nv
}
