package sample

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/sampler"
	"github.com/stevecastle/stereoprep/storage"
)

// File names inside an ETH3D scene directory.
const (
	ETH3DLeft      = "im0.png"
	ETH3DRight     = "im1.png"
	ETH3DMask      = "mask0nocc.png"
	ETH3DDisparity = "disp0GT.pfm"
)

// occludedBelow is the mask level under which a pixel counts as occluded.
const occludedBelow = 200

// ETH3D describes one scene directory of the ETH3D stereo benchmark.
type ETH3D struct {
	Store storage.Store
	Dir   string
}

func (e *ETH3D) Kind() Kind { return KindETH3D }

func (e *ETH3D) String() string {
	return fmt.Sprintf("eth3d %s", e.Dir)
}

func (e *ETH3D) file(name string) string {
	// path.Join would collapse the scheme of s3:// directories.
	return strings.TrimSuffix(e.Dir, "/") + "/" + name
}

// Produce returns color left/right, pseudo-NIR left/right, sparse points
// and the dense disparity. Occluded pixels hold +Inf and may be sampled;
// NonFinitePoints reports when that happened.
func (e *ETH3D) Produce(ctx context.Context, rng *rand.Rand) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	left, err := Load(ctx, e.Store, e.file(ETH3DLeft))
	if err != nil {
		return Sample{}, err
	}
	right, err := Load(ctx, e.Store, e.file(ETH3DRight))
	if err != nil {
		return Sample{}, err
	}
	mask, err := LoadPadded(ctx, e.Store, e.file(ETH3DMask))
	if err != nil {
		return Sample{}, err
	}
	disp, err := LoadPadded(ctx, e.Store, e.file(ETH3DDisparity))
	if err != nil {
		return Sample{}, err
	}

	validH := min(left.H, augment.CanonicalHeight)
	validW := min(left.W, augment.CanonicalWidth)

	nirL, err := augment.PseudoNIR(left)
	if err != nil {
		return Sample{}, err
	}
	nirR, err := augment.PseudoNIR(right)
	if err != nil {
		return Sample{}, err
	}
	modalities := []*raster.Raster{left, right, nirL, nirR}
	for i, r := range modalities {
		modalities[i] = augment.Pad(r, false)
	}

	if err := augment.MaskBelow(disp, mask, occludedBelow); err != nil {
		return Sample{}, fmt.Errorf("%s: %w", e.Dir, err)
	}

	points := sampler.Sample(rng, validH, validW, sampler.DefaultCount)
	if err := sampler.Gather(disp, points); err != nil {
		return Sample{}, err
	}
	nonFinite := false
	for _, p := range points {
		if math.IsInf(float64(p.D), 0) || math.IsNaN(float64(p.D)) {
			nonFinite = true
			break
		}
	}

	return Sample{
		Modalities:      modalities,
		Points:          points,
		Disparity:       []*raster.Raster{disp},
		ValidH:          validH,
		ValidW:          validW,
		NonFinitePoints: nonFinite,
	}, nil
}
