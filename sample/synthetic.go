package sample

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/sampler"
	"github.com/stevecastle/stereoprep/storage"
)

// lowLightDivisor darkens color frames when guided noise simulates low
// light.
const lowLightDivisor = 50

// Synthetic describes a rendered stereo frame with physical or rendered NIR.
// Paths holds color left/right and NIR left/right, optionally followed by a
// ground-truth color pair. Disparity holds the left map and, for plans with
// DisparityRight, the right one.
type Synthetic struct {
	Store     storage.Store
	Paths     []string
	Disparity []string
	Plan      Plan
}

// NewSynthetic checks the path layout and returns a descriptor.
func NewSynthetic(store storage.Store, paths, disparity []string, plan Plan) (*Synthetic, error) {
	if len(paths) != 4 && len(paths) != 6 {
		return nil, fmt.Errorf("synthetic: want 4 or 6 modality paths, got %d", len(paths))
	}
	if len(disparity) < 1 || len(disparity) > 2 {
		return nil, fmt.Errorf("synthetic: want 1 or 2 disparity paths, got %d", len(disparity))
	}
	if plan.DisparityRight && len(disparity) != 2 {
		return nil, errors.New("synthetic: right disparity requested without a right disparity path")
	}
	if plan.ShiftFilter && (plan.ShiftDistance < augment.MinShift || plan.ShiftDistance > augment.MaxShift) {
		return nil, fmt.Errorf("synthetic: shift distance %d outside [%d, %d]", plan.ShiftDistance, augment.MinShift, augment.MaxShift)
	}
	return &Synthetic{
		Store:     store,
		Paths:     append([]string(nil), paths...),
		Disparity: append([]string(nil), disparity...),
		Plan:      plan,
	}, nil
}

func (s *Synthetic) Kind() Kind { return KindSynthetic }

// HasGroundTruth reports whether a ground-truth color pair is appended.
func (s *Synthetic) HasGroundTruth() bool { return len(s.Paths) == 6 }

func (s *Synthetic) String() string {
	return fmt.Sprintf("synthetic %s [%s]", s.Paths[0], s.Plan.Shape())
}

// Produce loads the frame and applies the plan.
func (s *Synthetic) Produce(ctx context.Context, rng *rand.Rand) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	images := make([]*raster.Raster, 4, len(s.Paths))
	for i := range images {
		r, err := LoadPadded(ctx, s.Store, s.Paths[i])
		if err != nil {
			return Sample{}, err
		}
		images[i] = r
	}

	if s.Plan.GuidedNoise != nil {
		if err := s.guidedNoise(images, *s.Plan.GuidedNoise, rng); err != nil {
			return Sample{}, err
		}
	}
	if s.Plan.GammaNoise != nil {
		i := 0
		if s.Plan.NoiseTarget == TargetNIR {
			i = 2
		}
		pair := augment.PatchGamma(rng, *s.Plan.GammaNoise, images[i], images[i+1])
		images[i], images[i+1] = pair[0], pair[1]
	}

	disp, err := LoadDisparity(ctx, s.Store, s.Disparity[0])
	if err != nil {
		return Sample{}, err
	}
	var dispRight *raster.Raster
	if s.Plan.DisparityRight {
		if dispRight, err = LoadDisparity(ctx, s.Store, s.Disparity[1]); err != nil {
			return Sample{}, err
		}
	}

	for _, p := range s.Paths[4:] {
		r, err := LoadPadded(ctx, s.Store, p)
		if err != nil {
			return Sample{}, err
		}
		images = append(images, r)
	}

	if s.Plan.ShiftFilter {
		if images, disp, dispRight, err = s.shift(images, disp, dispRight); err != nil {
			return Sample{}, err
		}
	}

	if s.Plan.VerticalScale {
		band := s.Plan.VerticalBand
		for i, img := range images {
			if images[i], err = augment.VerticalRescale(img, band, false); err != nil {
				return Sample{}, err
			}
		}
		if disp, err = augment.VerticalRescale(disp, band, true); err != nil {
			return Sample{}, err
		}
		if dispRight != nil {
			if dispRight, err = augment.VerticalRescale(dispRight, band, true); err != nil {
				return Sample{}, err
			}
		}
	}

	points := sampler.Sample(rng, augment.CanonicalHeight, augment.CanonicalWidth, sampler.DefaultCount)
	if err := sampler.Gather(disp, points); err != nil {
		return Sample{}, err
	}

	if dispRight != nil {
		if disp, err = raster.Concat(disp, dispRight); err != nil {
			return Sample{}, err
		}
	}

	return Sample{
		Modalities: images,
		Points:     points,
		Disparity:  []*raster.Raster{disp},
		ValidH:     augment.CanonicalHeight,
		ValidW:     augment.CanonicalWidth,
	}, nil
}

// guidedNoise reshapes the target pair with the other modality as guide.
// Color targets use NIR guidance and a wide window, and one time in four
// are darkened to integer levels of lowLightDivisor. NIR targets use the
// channel mean of the color frame.
func (s *Synthetic) guidedNoise(images []*raster.Raster, level int, rng *rand.Rand) error {
	if s.Plan.NoiseTarget == TargetNIR {
		for i := 2; i < 4; i++ {
			out, err := augment.GuidedFilter(images[i-2].Mean(), images[i], level+3, augment.GuidedEps)
			if err != nil {
				return fmt.Errorf("guided noise on %s: %w", s.Paths[i], err)
			}
			images[i] = out
		}
		return nil
	}
	for i := 0; i < 2; i++ {
		out, err := augment.GuidedFilter(gray(images[i+2]), images[i], level*5+2, augment.GuidedEps)
		if err != nil {
			return fmt.Errorf("guided noise on %s: %w", s.Paths[i], err)
		}
		images[i] = out
	}
	if rng.IntN(4) == 0 {
		augment.FloorDiv(images[0], lowLightDivisor)
		augment.FloorDiv(images[1], lowLightDivisor)
	}
	return nil
}

// shift applies the plan's horizontal shift to every pair and disparity
// map and pads the results back to the canonical frame. A ground-truth pair
// travels stacked onto the primary pair so both get the same crop.
func (s *Synthetic) shift(images []*raster.Raster, disp, dispRight *raster.Raster) ([]*raster.Raster, *raster.Raster, *raster.Raster, error) {
	d := s.Plan.ShiftDistance
	colorC := images[0].C
	primaryL, primaryR := images[0], images[1]
	if len(images) == 6 {
		var err error
		if primaryL, err = raster.Concat(images[0], images[4]); err != nil {
			return nil, nil, nil, err
		}
		if primaryR, err = raster.Concat(images[1], images[5]); err != nil {
			return nil, nil, nil, err
		}
	}

	pl, pr, err := augment.ShiftPair(primaryL, primaryR, d)
	if err != nil {
		return nil, nil, nil, err
	}
	nl, nr, err := augment.ShiftPair(images[2], images[3], d)
	if err != nil {
		return nil, nil, nil, err
	}
	pl, pr = augment.Pad(pl, false), augment.Pad(pr, false)

	out := make([]*raster.Raster, 0, len(images))
	if len(images) == 6 {
		cl, gl, err := pl.Split(colorC)
		if err != nil {
			return nil, nil, nil, err
		}
		cr, gr, err := pr.Split(colorC)
		if err != nil {
			return nil, nil, nil, err
		}
		out = append(out, cl, cr, augment.Pad(nl, false), augment.Pad(nr, false), gl, gr)
	} else {
		out = append(out, pl, pr, augment.Pad(nl, false), augment.Pad(nr, false))
	}

	sd, err := augment.ShiftDisparity(disp, augment.Left, d)
	if err != nil {
		return nil, nil, nil, err
	}
	disp = augment.Pad(sd, true)
	if dispRight != nil {
		sd, err := augment.ShiftDisparity(dispRight, augment.Right, d)
		if err != nil {
			return nil, nil, nil, err
		}
		dispRight = augment.Pad(sd, true)
	}
	return out, disp, dispRight, nil
}
