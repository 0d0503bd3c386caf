package sample

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/storage"
)

// Photometric branch thresholds of a Middlebury draw in [1, 100]: above
// gammaColorAbove gamma-corrects the color pair, above darkenAbove darkens
// it by a random offset, anything else gamma-corrects the pseudo-NIR pair.
const (
	gammaColorAbove = 70
	darkenAbove     = 20

	minDarken = 64
	maxDarken = 224
)

// Middlebury describes a high-resolution real stereo frame. Each access
// crops a fresh canonical window and derives pseudo-NIR from color.
type Middlebury struct {
	Store     storage.Store
	Disparity string
	Left      string
	Right     string
}

func (m *Middlebury) Kind() Kind { return KindMiddlebury }

func (m *Middlebury) String() string {
	return fmt.Sprintf("middlebury %s", m.Disparity)
}

// Produce returns color left/right, pseudo-NIR left/right and the
// unaugmented color pair, followed by the disparity map twice. Middlebury
// samples carry no sparse points.
func (m *Middlebury) Produce(ctx context.Context, rng *rand.Rand) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	left, err := Load(ctx, m.Store, m.Left)
	if err != nil {
		return Sample{}, err
	}
	right, err := Load(ctx, m.Store, m.Right)
	if err != nil {
		return Sample{}, err
	}
	disp, err := Load(ctx, m.Store, m.Disparity)
	if err != nil {
		return Sample{}, err
	}

	y := rng.IntN(max(left.H-augment.CanonicalHeight, 0) + 1)
	x := rng.IntN(max(left.W-augment.CanonicalWidth, 0) + 1)
	validH := min(left.H-y, augment.CanonicalHeight)
	validW := min(left.W-x, augment.CanonicalWidth)

	if left, err = window(left, y, x, false); err != nil {
		return Sample{}, fmt.Errorf("%s: %w", m.Left, err)
	}
	if right, err = window(right, y, x, false); err != nil {
		return Sample{}, fmt.Errorf("%s: %w", m.Right, err)
	}
	augment.Sanitize(disp, augment.InvalidDisparity)
	if disp, err = window(disp, y, x, true); err != nil {
		return Sample{}, fmt.Errorf("%s: %w", m.Disparity, err)
	}

	nirL, err := augment.PseudoNIR(left)
	if err != nil {
		return Sample{}, err
	}
	nirR, err := augment.PseudoNIR(right)
	if err != nil {
		return Sample{}, err
	}
	origL, origR := left.Clone(), right.Clone()

	switch branch := 1 + rng.IntN(100); {
	case branch > gammaColorAbove:
		out := augment.PatchGamma(rng, augment.DefaultGammaLevel, left, right)
		left, right = out[0], out[1]
	case branch > darkenAbove:
		augment.SubtractClamp(left, float32(minDarken+rng.IntN(maxDarken-minDarken+1)))
		augment.SubtractClamp(right, float32(minDarken+rng.IntN(maxDarken-minDarken+1)))
	default:
		out := augment.PatchGamma(rng, augment.DefaultGammaLevel, nirL, nirR)
		nirL, nirR = out[0], out[1]
	}

	return Sample{
		Modalities: []*raster.Raster{left, right, nirL, nirR, origL, origR},
		Disparity:  []*raster.Raster{disp, disp},
		ValidH:     validH,
		ValidW:     validW,
	}, nil
}

// window crops the canonical frame at (y, x), clipped to r, and pads what
// is missing.
func window(r *raster.Raster, y, x int, constant bool) (*raster.Raster, error) {
	h := max(min(augment.CanonicalHeight, r.H-y), 0)
	w := max(min(augment.CanonicalWidth, r.W-x), 0)
	c, err := augment.Crop(r, min(y, r.H), min(x, r.W), h, w)
	if err != nil {
		return nil, err
	}
	return augment.Pad(c, constant), nil
}
