// Package raster holds the channel-first float32 image type shared by the
// codecs, the augmentation primitives and the produced samples.
package raster

import (
	"fmt"
)

// Raster is a dense channel-first image. Pix holds C planes of H*W values,
// each plane stored row-major.
type Raster struct {
	C, H, W int
	Pix     []float32
}

// New allocates a zeroed raster.
func New(c, h, w int) *Raster {
	return &Raster{C: c, H: h, W: w, Pix: make([]float32, c*h*w)}
}

// Filled allocates a raster with every value set to v.
func Filled(c, h, w int, v float32) *Raster {
	r := New(c, h, w)
	for i := range r.Pix {
		r.Pix[i] = v
	}
	return r
}

// Index returns the offset of (c, y, x) in Pix.
func (r *Raster) Index(c, y, x int) int {
	return (c*r.H+y)*r.W + x
}

// At returns the value at channel c, row y, column x.
func (r *Raster) At(c, y, x int) float32 {
	return r.Pix[r.Index(c, y, x)]
}

// Set stores v at channel c, row y, column x.
func (r *Raster) Set(c, y, x int, v float32) {
	r.Pix[r.Index(c, y, x)] = v
}

// Channel returns the plane for channel c. The slice aliases Pix.
func (r *Raster) Channel(c int) []float32 {
	n := r.H * r.W
	return r.Pix[c*n : (c+1)*n]
}

// Row returns row y of channel c. The slice aliases Pix.
func (r *Raster) Row(c, y int) []float32 {
	i := r.Index(c, y, 0)
	return r.Pix[i : i+r.W]
}

// Shape returns [C, H, W].
func (r *Raster) Shape() []int {
	return []int{r.C, r.H, r.W}
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	out := &Raster{C: r.C, H: r.H, W: r.W, Pix: make([]float32, len(r.Pix))}
	copy(out.Pix, r.Pix)
	return out
}

// SameSize reports whether o has the same spatial size as r.
func (r *Raster) SameSize(o *Raster) bool {
	return r.H == o.H && r.W == o.W
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster[%d,%d,%d]", r.C, r.H, r.W)
}

// Concat stacks rasters along the channel axis. All inputs must share the
// same spatial size.
func Concat(rs ...*Raster) (*Raster, error) {
	if len(rs) == 0 {
		return nil, fmt.Errorf("concat: no rasters")
	}
	h, w := rs[0].H, rs[0].W
	c := 0
	for _, r := range rs {
		if r.H != h || r.W != w {
			return nil, fmt.Errorf("concat: size mismatch %dx%d vs %dx%d", r.H, r.W, h, w)
		}
		c += r.C
	}
	out := &Raster{C: c, H: h, W: w, Pix: make([]float32, 0, c*h*w)}
	for _, r := range rs {
		out.Pix = append(out.Pix, r.Pix...)
	}
	return out, nil
}

// Split cuts r along the channel axis into a raster with the first at
// channels and one with the rest. Both copy their data.
func (r *Raster) Split(at int) (*Raster, *Raster, error) {
	if at <= 0 || at >= r.C {
		return nil, nil, fmt.Errorf("split: channel %d out of range for %d channels", at, r.C)
	}
	n := r.H * r.W
	head := &Raster{C: at, H: r.H, W: r.W, Pix: append([]float32(nil), r.Pix[:at*n]...)}
	tail := &Raster{C: r.C - at, H: r.H, W: r.W, Pix: append([]float32(nil), r.Pix[at*n:]...)}
	return head, tail, nil
}

// Mean averages all channels into a single-channel raster.
func (r *Raster) Mean() *Raster {
	out := New(1, r.H, r.W)
	if r.C == 0 {
		return out
	}
	dst := out.Pix
	for c := 0; c < r.C; c++ {
		for i, v := range r.Channel(c) {
			dst[i] += v
		}
	}
	inv := 1 / float32(r.C)
	for i := range dst {
		dst[i] *= inv
	}
	return out
}
