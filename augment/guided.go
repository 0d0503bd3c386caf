package augment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/stevecastle/stereoprep/raster"
)

// GuidedEps is the regularization used for cross-modal noise synthesis.
const GuidedEps = 1e-6

// GuidedFilter runs the edge-preserving guided filter of He et al. on every
// channel of input, using the single-channel guide. Box means are taken over
// the (2*radius+1)² window clipped to the frame. The result is a pure
// function of its arguments.
func GuidedFilter(guide, input *raster.Raster, radius int, eps float64) (*raster.Raster, error) {
	if guide.C != 1 {
		return nil, fmt.Errorf("guided filter: guide must have 1 channel, got %d", guide.C)
	}
	if !guide.SameSize(input) {
		return nil, fmt.Errorf("guided filter: guide %dx%d does not match input %dx%d", guide.H, guide.W, input.H, input.W)
	}
	if radius < 0 {
		return nil, fmt.Errorf("guided filter: negative radius %d", radius)
	}

	h, w := guide.H, guide.W
	n := h * w
	bf := newBoxFilter(h, w, radius)

	I := toFloat64(guide.Channel(0))
	meanI := make([]float64, n)
	bf.mean(I, meanI)

	sq := make([]float64, n)
	floats.MulTo(sq, I, I)
	varI := make([]float64, n)
	bf.mean(sq, varI)
	floats.MulTo(sq, meanI, meanI)
	floats.Sub(varI, sq)

	denom := make([]float64, n)
	copy(denom, varI)
	floats.AddConst(eps, denom)

	p := make([]float64, n)
	meanP := make([]float64, n)
	corr := make([]float64, n)
	a := make([]float64, n)
	b := make([]float64, n)
	tmp := make([]float64, n)

	out := raster.New(input.C, h, w)
	for c := 0; c < input.C; c++ {
		fillFloat64(p, input.Channel(c))
		bf.mean(p, meanP)

		floats.MulTo(tmp, I, p)
		bf.mean(tmp, corr)
		floats.MulTo(tmp, meanI, meanP)
		floats.Sub(corr, tmp) // cov(I, p)

		floats.DivTo(a, corr, denom)
		floats.MulTo(tmp, a, meanI)
		floats.SubTo(b, meanP, tmp)

		bf.mean(a, tmp)
		floats.Mul(tmp, I)
		bf.mean(b, corr)
		floats.Add(tmp, corr)

		dst := out.Channel(c)
		for i, v := range tmp {
			dst[i] = float32(v)
		}
	}
	return out, nil
}

// boxFilter averages over clipped square windows using a summed-area table.
type boxFilter struct {
	h, w, r int
	sat     []float64
}

func newBoxFilter(h, w, r int) *boxFilter {
	return &boxFilter{h: h, w: w, r: r, sat: make([]float64, (h+1)*(w+1))}
}

func (bf *boxFilter) mean(src, dst []float64) {
	h, w, r := bf.h, bf.w, bf.r
	stride := w + 1
	sat := bf.sat
	for y := 0; y < h; y++ {
		rowSum := 0.0
		for x := 0; x < w; x++ {
			rowSum += src[y*w+x]
			sat[(y+1)*stride+x+1] = sat[y*stride+x+1] + rowSum
		}
	}
	for y := 0; y < h; y++ {
		y0 := max(0, y-r)
		y1 := min(h-1, y+r)
		for x := 0; x < w; x++ {
			x0 := max(0, x-r)
			x1 := min(w-1, x+r)
			sum := sat[(y1+1)*stride+x1+1] - sat[y0*stride+x1+1] - sat[(y1+1)*stride+x0] + sat[y0*stride+x0]
			dst[y*w+x] = sum / float64((y1-y0+1)*(x1-x0+1))
		}
	}
}

func toFloat64(src []float32) []float64 {
	out := make([]float64, len(src))
	fillFloat64(out, src)
	return out
}

func fillFloat64(dst []float64, src []float32) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}

// Clamp limits every value of r to [lo, hi] in place.
func Clamp(r *raster.Raster, lo, hi float32) {
	for i, v := range r.Pix {
		if v < lo {
			r.Pix[i] = lo
		} else if v > hi {
			r.Pix[i] = hi
		}
	}
}

// FloorDiv replaces every value v of r with floor(v/d) in place.
func FloorDiv(r *raster.Raster, d float32) {
	for i, v := range r.Pix {
		r.Pix[i] = float32(math.Floor(float64(v / d)))
	}
}

// SubtractClamp subtracts v from every value and clamps the result to the
// 8-bit range, in place.
func SubtractClamp(r *raster.Raster, v float32) {
	for i, p := range r.Pix {
		r.Pix[i] = p - v
	}
	Clamp(r, 0, 255)
}
