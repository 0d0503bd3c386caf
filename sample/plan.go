package sample

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/stevecastle/stereoprep/augment"
)

// NoiseTarget selects the modality that receives synthesized noise.
type NoiseTarget int

const (
	TargetColor NoiseTarget = iota
	TargetNIR
)

func (t NoiseTarget) String() string {
	if t == TargetNIR {
		return "nir"
	}
	return "color"
}

// ParseNoiseTarget accepts "color" (or "rgb") and "nir".
func ParseNoiseTarget(s string) (NoiseTarget, error) {
	switch strings.ToLower(s) {
	case "", "color", "rgb":
		return TargetColor, nil
	case "nir":
		return TargetNIR, nil
	}
	return TargetColor, fmt.Errorf("unknown noise target %q", s)
}

// Plan is the augmentation recipe of a synthetic descriptor, fixed when the
// descriptor is built.
type Plan struct {
	GuidedNoise    *int
	GammaNoise     *float64
	ShiftFilter    bool
	VerticalScale  bool
	NoiseTarget    NoiseTarget
	DisparityRight bool

	// ShiftDistance and VerticalBand are drawn once and reused on every
	// access.
	ShiftDistance int
	VerticalBand  augment.Band
}

// DrawGeometry fills the construction-time shift distance and vertical
// band from rng.
func (p *Plan) DrawGeometry(rng *rand.Rand) {
	p.ShiftDistance = augment.MinShift + rng.IntN(augment.MaxShift-augment.MinShift+1)
	p.VerticalBand = augment.DrawBand(rng)
}

// Shape summarizes which augmentations the plan enables, e.g.
// "guided+shift". A plan without any reads "plain".
func (p Plan) Shape() string {
	var parts []string
	if p.GuidedNoise != nil {
		parts = append(parts, "guided")
	}
	if p.GammaNoise != nil {
		parts = append(parts, "gamma")
	}
	if p.ShiftFilter {
		parts = append(parts, "shift")
	}
	if p.VerticalScale {
		parts = append(parts, "vscale")
	}
	if p.DisparityRight {
		parts = append(parts, "dright")
	}
	if len(parts) == 0 {
		return "plain"
	}
	return strings.Join(parts, "+")
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
