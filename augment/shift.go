package augment

import (
	"fmt"

	"github.com/stevecastle/stereoprep/raster"
)

// Shift distances are drawn from [MinShift, MaxShift] when a plan is built.
const (
	MinShift = 8
	MaxShift = 16
)

// Side identifies the stereo view a raster belongs to.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// ShiftView crops r for a horizontal shift of d pixels. The left view keeps
// columns [d, W) and the right view keeps [0, W-d), so a left pixel at x
// moves to x-d while its right correspondence stays put. The result is d
// columns narrower; callers re-pad it.
func ShiftView(r *raster.Raster, side Side, d int) (*raster.Raster, error) {
	if d < 0 || d >= r.W {
		return nil, fmt.Errorf("shift %s: distance %d out of range for width %d", side, d, r.W)
	}
	x := 0
	if side == Left {
		x = d
	}
	return Crop(r, 0, x, r.H, r.W-d)
}

// ShiftPair shifts a stereo pair by d.
func ShiftPair(left, right *raster.Raster, d int) (*raster.Raster, *raster.Raster, error) {
	l, err := ShiftView(left, Left, d)
	if err != nil {
		return nil, nil, err
	}
	r, err := ShiftView(right, Right, d)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// ShiftDisparity crops a disparity map like the view of the given side and
// subtracts d from every value. Sentinel and infinite values are shifted
// too, which keeps them far outside any plausible range.
func ShiftDisparity(disp *raster.Raster, side Side, d int) (*raster.Raster, error) {
	out, err := ShiftView(disp, side, d)
	if err != nil {
		return nil, err
	}
	fd := float32(d)
	for i := range out.Pix {
		out.Pix[i] -= fd
	}
	return out, nil
}
