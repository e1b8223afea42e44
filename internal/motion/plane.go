package motion

import (
	"image"
	"image/color"
	"math"
)

// plane is a float copy of a grayscale image
type plane struct {
	w, h int
	pix  []float64
}

func newPlane(w, h int) plane {
	return plane{w: w, h: h, pix: make([]float64, w*h)}
}

func planeFromImage(img image.Image) plane {
	b := img.Bounds()
	p := newPlane(b.Dx(), b.Dy())

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < p.h; y++ {
			row := g.Pix[(y+b.Min.Y-g.Rect.Min.Y)*g.Stride+(b.Min.X-g.Rect.Min.X):]
			for x := 0; x < p.w; x++ {
				p.pix[y*p.w+x] = float64(row[x])
			}
		}
		return p
	}

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			p.pix[y*p.w+x] = float64(c.Y)
		}
	}
	return p
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// at returns the pixel at (x,y) with edge replication
func (p plane) at(x, y int) float64 {
	return p.pix[clampInt(y, 0, p.h-1)*p.w+clampInt(x, 0, p.w-1)]
}

// sample reads p at a fractional position with bilinear interpolation
func (p plane) sample(x, y float64) float64 {
	return bilinear(p.pix, p.w, p.h, x, y)
}

func bilinear(pix []float64, w, h int, x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx := x - x0
	fy := y - y0
	ix, iy := int(x0), int(y0)

	xa, xb := clampInt(ix, 0, w-1), clampInt(ix+1, 0, w-1)
	ya, yb := clampInt(iy, 0, h-1), clampInt(iy+1, 0, h-1)

	p00 := pix[ya*w+xa]
	p10 := pix[ya*w+xb]
	p01 := pix[yb*w+xa]
	p11 := pix[yb*w+xb]

	return p00*(1-fx)*(1-fy) + p10*fx*(1-fy) + p01*(1-fx)*fy + p11*fx*fy
}

// gradients computes central-difference derivatives of p
func (p plane) gradients() (ix, iy []float64) {
	ix = make([]float64, len(p.pix))
	iy = make([]float64, len(p.pix))
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			i := y*p.w + x
			ix[i] = (p.at(x+1, y) - p.at(x-1, y)) / 2
			iy[i] = (p.at(x, y+1) - p.at(x, y-1)) / 2
		}
	}
	return ix, iy
}

// boxSum writes into dst the sum of src over a (2r+1)x(2r+1) window around
// each pixel, truncated at the borders.
func boxSum(src []float64, w, h, r int, dst []float64) {
	stride := w + 1
	integral := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += src[y*w+x]
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0 := clampInt(y-r, 0, h-1)
		y1 := clampInt(y+r, 0, h-1) + 1
		for x := 0; x < w; x++ {
			x0 := clampInt(x-r, 0, w-1)
			x1 := clampInt(x+r, 0, w-1) + 1
			dst[y*w+x] = integral[y1*stride+x1] - integral[y0*stride+x1] -
				integral[y1*stride+x0] + integral[y0*stride+x0]
		}
	}
}
