package manifest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/stevecastle/stereoprep/sample"
	"github.com/stevecastle/stereoprep/storage"
)

const (
	// maxRenderIndex is the highest alternate-exposure index probed.
	maxRenderIndex = 9

	// NoisedCopies is the number of noised duplicates emitted per record.
	NoisedCopies = 5

	minRenderedNoise = 3
	maxRenderedNoise = 8
	maxGuidedNoise   = 20
	maxGammaNoise    = 2.0
)

// Options control how records expand into descriptors.
type Options struct {
	// NoRGB skips the base descriptor of each record.
	NoRGB bool
	// NoFilter skips records that carry the filtered marker.
	NoFilter bool
	// Rendered adds descriptors for alternate-exposure color renderings.
	Rendered bool
	// RenderedNIR pairs rendered color with rendered NIR exposures instead
	// of the record's NIR pair.
	RenderedNIR bool
	// Noised adds guided noise to rendered variants and emits
	// NoisedCopies noised duplicates per record.
	Noised      bool
	NoiseTarget sample.NoiseTarget

	ShiftFilter    bool
	VerticalScale  bool
	DisparityRight bool
	// ColorGT appends the record's color pair as ground truth.
	ColorGT bool

	// MaxSamples caps the number of descriptors. Zero means no cap.
	MaxSamples int
}

// Expand turns records into synthetic descriptors. Construction-time
// randomness (noise levels, shift distances, vertical bands) is drawn from
// rng. Rendered variants are probed in store.
func Expand(ctx context.Context, store storage.Store, entries []Entry, opts Options, rng *rand.Rand) ([]sample.Descriptor, error) {
	var out []sample.Descriptor
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.MaxSamples > 0 && len(out) >= opts.MaxSamples {
			break
		}
		if opts.NoFilter && e.IsFiltered() {
			continue
		}
		ds, err := expandEntry(ctx, store, e, opts, rng)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, ds...)
	}
	if opts.MaxSamples > 0 && len(out) > opts.MaxSamples {
		out = out[:opts.MaxSamples]
	}
	return out, nil
}

func expandEntry(ctx context.Context, store storage.Store, e Entry, opts Options, rng *rand.Rand) ([]sample.Descriptor, error) {
	var gt []string
	if opts.ColorGT {
		gt = e.Color
	}
	var out []sample.Descriptor
	add := func(paths []string, plan sample.Plan) error {
		plan.ShiftFilter = opts.ShiftFilter
		plan.DisparityRight = opts.DisparityRight
		plan.DrawGeometry(rng)
		all := make([]string, 0, len(paths)+len(gt))
		all = append(append(all, paths...), gt...)
		d, err := sample.NewSynthetic(store, all, e.Disparity, plan)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}

	nir := e.NIR()
	ambient := e.AmbientNIR()
	base := []string{e.Color[0], e.Color[1], ambient[0], ambient[1]}

	if !opts.NoRGB {
		if err := add(base, sample.Plan{}); err != nil {
			return nil, err
		}
	}

	if opts.Rendered {
		colorTop := probeRendered(ctx, store, e.Color[0], markerShaded)
		nirTop := -1
		if opts.RenderedNIR {
			nirTop = probeRendered(ctx, store, e.Color[0], markerShadedNIR)
		}
		for ci := 0; ci < colorTop; ci++ {
			left := renderedPath(e.Color[0], markerShaded, ci)
			color := []string{left, rightOf(left)}
			if !opts.RenderedNIR {
				plan := sample.Plan{VerticalScale: opts.VerticalScale, GuidedNoise: renderedNoise(opts, rng)}
				if err := add([]string{color[0], color[1], nir[0], nir[1]}, plan); err != nil {
					return nil, err
				}
				continue
			}
			for ni := 0; ni < nirTop; ni++ {
				nl := renderedPath(e.Color[0], markerShadedNIR, ni)
				plan := sample.Plan{VerticalScale: opts.VerticalScale, GuidedNoise: renderedNoise(opts, rng)}
				if err := add([]string{color[0], color[1], nl, rightOf(nl)}, plan); err != nil {
					return nil, err
				}
			}
		}
	}

	if opts.Noised {
		for k := 0; k < NoisedCopies; k++ {
			plan := sample.Plan{
				GuidedNoise:   sample.Int(rng.IntN(maxGuidedNoise)),
				GammaNoise:    sample.Float(rng.Float64() * maxGammaNoise),
				NoiseTarget:   opts.NoiseTarget,
				VerticalScale: opts.VerticalScale,
			}
			if err := add(base, plan); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func renderedNoise(opts Options, rng *rand.Rand) *int {
	if !opts.Noised {
		return nil
	}
	return sample.Int(minRenderedNoise + rng.IntN(maxRenderedNoise-minRenderedNoise+1))
}

// renderedPath derives the path of exposure index i of a rendering from a
// clean-pass color path.
func renderedPath(color, marker string, i int) string {
	p := strings.ReplaceAll(color, markerCleanPass, marker)
	return strings.ReplaceAll(p, ".png", fmt.Sprintf("_%d.png", i))
}

func rightOf(left string) string {
	return strings.ReplaceAll(left, "left", "right")
}

// probeRendered returns the highest exposure index whose left and right
// renderings both exist, or -1 when there is none.
func probeRendered(ctx context.Context, store storage.Store, color, marker string) int {
	for i := maxRenderIndex; i >= 0; i-- {
		left := renderedPath(color, marker, i)
		if store.Exists(ctx, left) && store.Exists(ctx, rightOf(left)) {
			return i
		}
	}
	return -1
}
