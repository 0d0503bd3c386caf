package augment

import (
	"fmt"
	"math"
	"strings"

	"github.com/stevecastle/stereoprep/raster"
)

const (
	// CanonicalHeight and CanonicalWidth are the frame every synthetic sample
	// is normalized to.
	CanonicalHeight = 540
	CanonicalWidth  = 720

	// InvalidDisparity marks disparity pixels without a usable label: padding
	// and sanitized non-finite values.
	InvalidDisparity float32 = 100000
)

// IsDisparityPath reports whether a path names a disparity map, which pads
// with InvalidDisparity instead of replicating edges.
func IsDisparityPath(path string) bool {
	return strings.Contains(path, "disp")
}

// Pad brings r to the canonical frame. See PadTo.
func Pad(r *raster.Raster, constant bool) *raster.Raster {
	return PadTo(r, CanonicalHeight, CanonicalWidth, constant)
}

// PadTo returns r itself when it already measures h×w. Otherwise rows and
// columns past h×w are cropped and missing ones are appended at the bottom
// and right, either replicating the last row/column or, when constant is set,
// filled with InvalidDisparity.
func PadTo(r *raster.Raster, h, w int, constant bool) *raster.Raster {
	if r.H == h && r.W == w {
		return r
	}
	fill := InvalidDisparity
	if r.H == 0 || r.W == 0 {
		// nothing to replicate
		if !constant {
			fill = 0
		}
		constant = true
	}
	out := raster.New(r.C, h, w)
	for c := 0; c < r.C; c++ {
		for y := 0; y < h; y++ {
			dst := out.Row(c, y)
			sy := y
			if sy >= r.H {
				if constant {
					fillRow(dst, fill)
					continue
				}
				sy = r.H - 1
			}
			src := r.Row(c, sy)
			n := copy(dst, src)
			for x := n; x < w; x++ {
				if constant {
					dst[x] = fill
				} else {
					dst[x] = src[len(src)-1]
				}
			}
		}
	}
	return out
}

func fillRow(dst []float32, v float32) {
	for i := range dst {
		dst[i] = v
	}
}

// CheckCanonical returns an error unless r measures CanonicalHeight×CanonicalWidth.
func CheckCanonical(r *raster.Raster, what string) error {
	if r.H != CanonicalHeight || r.W != CanonicalWidth {
		return fmt.Errorf("%s: shape %dx%d after padding, want %dx%d", what, r.H, r.W, CanonicalHeight, CanonicalWidth)
	}
	return nil
}

// Crop copies the h×w window whose top-left corner is (y, x).
func Crop(r *raster.Raster, y, x, h, w int) (*raster.Raster, error) {
	if y < 0 || x < 0 || h < 0 || w < 0 || y+h > r.H || x+w > r.W {
		return nil, fmt.Errorf("crop %dx%d at (%d,%d) outside %dx%d", h, w, y, x, r.H, r.W)
	}
	out := raster.New(r.C, h, w)
	for c := 0; c < r.C; c++ {
		for row := 0; row < h; row++ {
			copy(out.Row(c, row), r.Row(c, y+row)[x:x+w])
		}
	}
	return out, nil
}

// Sanitize replaces ±Inf and NaN with v in place and returns how many values
// changed.
func Sanitize(r *raster.Raster, v float32) int {
	n := 0
	for i, p := range r.Pix {
		if math.IsInf(float64(p), 0) || math.IsNaN(float64(p)) {
			r.Pix[i] = v
			n++
		}
	}
	return n
}

// MaskBelow sets channel 0 of disp to +Inf wherever channel 0 of mask is
// below threshold. Both rasters must share a size.
func MaskBelow(disp, mask *raster.Raster, threshold float32) error {
	if !disp.SameSize(mask) {
		return fmt.Errorf("mask %dx%d does not match disparity %dx%d", mask.H, mask.W, disp.H, disp.W)
	}
	inf := float32(math.Inf(1))
	d := disp.Channel(0)
	for i, m := range mask.Channel(0) {
		if m < threshold {
			d[i] = inf
		}
	}
	return nil
}
