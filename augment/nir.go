package augment

import (
	"fmt"

	"github.com/stevecastle/stereoprep/raster"
)

// Channel weights of the pseudo-NIR approximation.
const (
	nirR = 0.5
	nirG = 0.4
	nirB = 0.1
)

// PseudoNIR approximates a near-infrared frame from a color one for sources
// that lack the sensor: 0.5R + 0.4G + 0.1B. Single-channel input is returned
// as a copy.
func PseudoNIR(color *raster.Raster) (*raster.Raster, error) {
	switch color.C {
	case 1:
		return color.Clone(), nil
	case 3:
	default:
		return nil, fmt.Errorf("pseudo nir: expected 3 channels, got %d", color.C)
	}
	out := raster.New(1, color.H, color.W)
	r, g, b := color.Channel(0), color.Channel(1), color.Channel(2)
	for i := range out.Pix {
		out.Pix[i] = nirR*r[i] + nirG*g[i] + nirB*b[i]
	}
	return out, nil
}
