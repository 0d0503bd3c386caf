// Package sample defines the per-example descriptors and the samples they
// produce. A descriptor is built once, when a manifest or a source folder is
// expanded, and never changes afterwards; every call to Produce loads its
// assets again and draws per-call randomness from the supplied source.
package sample

import (
	"context"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/sampler"
)

// Kind names a descriptor variant.
type Kind string

const (
	KindSynthetic  Kind = "synthetic"
	KindMiddlebury Kind = "middlebury"
	KindETH3D      Kind = "eth3d"
)

// Descriptor produces one training example on demand. Implementations are
// safe for concurrent use as long as each caller passes its own rng.
type Descriptor interface {
	Kind() Kind
	Produce(ctx context.Context, rng *rand.Rand) (Sample, error)
}

// Sample is a produced training example.
type Sample struct {
	// Modalities in fixed order: color left/right, NIR left/right, then any
	// extra pairs the variant appends.
	Modalities []*raster.Raster

	// Points is nil for variants that return no sparse labels.
	Points []sampler.Point

	// Disparity holds the dense labels. Synthetic samples carry one raster
	// with one or two channels; Middlebury duplicates its map.
	Disparity []*raster.Raster

	// ValidH and ValidW bound the region holding real pixels. Points are
	// only drawn inside it.
	ValidH, ValidW int

	// NonFinitePoints is set when some sparse labels are infinite or NaN.
	NonFinitePoints bool
}

// Tensor is a shaped float32 buffer.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Tuple flattens s into its output order: modalities, the [K,3] point array
// when present, then the disparity rasters.
func (s Sample) Tuple() []Tensor {
	out := make([]Tensor, 0, len(s.Modalities)+len(s.Disparity)+1)
	for _, m := range s.Modalities {
		out = append(out, Tensor{Shape: m.Shape(), Data: m.Pix})
	}
	if s.Points != nil {
		out = append(out, Tensor{Shape: []int{len(s.Points), 3}, Data: sampler.Flatten(s.Points)})
	}
	for _, d := range s.Disparity {
		out = append(out, Tensor{Shape: d.Shape(), Data: d.Pix})
	}
	return out
}

// Rasters returns every raster of s, modalities first.
func (s Sample) Rasters() []*raster.Raster {
	out := make([]*raster.Raster, 0, len(s.Modalities)+len(s.Disparity))
	out = append(out, s.Modalities...)
	return append(out, s.Disparity...)
}
