package augment

import (
	"math"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/raster"
)

const (
	// PatchSize is the side of the square patches used by PatchGamma. It
	// divides both canonical dimensions.
	PatchSize = 60

	// DefaultGammaLevel is used when a variant applies gamma noise without a
	// configured level; it bounds the exponent to [0.5, 2].
	DefaultGammaLevel = 1.0
)

// PatchGamma returns gamma-corrected copies of rs. Each raster is split into
// PatchSize×PatchSize patches and every patch gets its own exponent
// (1+level)^u with u drawn uniformly from [-1, 1], applied as
// 255*(v/255)^γ to all channels. A level of 0 leaves values unchanged.
func PatchGamma(rng *rand.Rand, level float64, rs ...*raster.Raster) []*raster.Raster {
	out := make([]*raster.Raster, len(rs))
	base := 1 + math.Max(level, 0)
	for i, r := range rs {
		dst := r.Clone()
		for py := 0; py < r.H; py += PatchSize {
			for px := 0; px < r.W; px += PatchSize {
				gamma := math.Pow(base, rng.Float64()*2-1)
				applyGamma(dst, py, px, gamma)
			}
		}
		out[i] = dst
	}
	return out
}

func applyGamma(r *raster.Raster, py, px int, gamma float64) {
	yEnd := min(py+PatchSize, r.H)
	xEnd := min(px+PatchSize, r.W)
	for c := 0; c < r.C; c++ {
		for y := py; y < yEnd; y++ {
			row := r.Row(c, y)
			for x := px; x < xEnd; x++ {
				v := row[x]
				if v <= 0 {
					continue
				}
				row[x] = float32(255 * math.Pow(float64(v)/255, gamma))
			}
		}
	}
}
