package augment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/raster"
)

// MinBandHeight is the shortest band DrawBand produces, three quarters of
// the canonical height.
const MinBandHeight = CanonicalHeight * 3 / 4

// Band is a contiguous range of rows [Top, Top+Height).
type Band struct {
	Top    int `json:"top"`
	Height int `json:"height"`
}

// FullBand covers a whole canonical frame.
var FullBand = Band{Top: 0, Height: CanonicalHeight}

// DrawBand picks a band with a height in [MinBandHeight, CanonicalHeight]
// and a top offset that keeps it inside the canonical frame.
func DrawBand(rng *rand.Rand) Band {
	h := MinBandHeight + rng.IntN(CanonicalHeight-MinBandHeight+1)
	return Band{Top: rng.IntN(CanonicalHeight - h + 1), Height: h}
}

func (b Band) String() string {
	return fmt.Sprintf("rows %d..%d", b.Top, b.Top+b.Height)
}

// VerticalRescale crops the rows of band from r and stretches them back to
// r's height. Columns are never resampled, so disparity values stay valid.
// Images are interpolated linearly between rows; disparity maps should use
// nearest so sentinels and infinities are not blended.
func VerticalRescale(r *raster.Raster, band Band, nearest bool) (*raster.Raster, error) {
	if band.Height <= 0 || band.Top < 0 || band.Top+band.Height > r.H {
		return nil, fmt.Errorf("vertical rescale: %s outside %d rows", band, r.H)
	}
	out := raster.New(r.C, r.H, r.W)
	scale := float64(band.Height) / float64(r.H)
	for y := 0; y < r.H; y++ {
		// Sample at pixel centers.
		src := (float64(y)+0.5)*scale - 0.5
		if nearest {
			sy := min(int(math.Floor((float64(y)+0.5)*scale)), band.Height-1)
			for c := 0; c < r.C; c++ {
				copy(out.Row(c, y), r.Row(c, band.Top+sy))
			}
			continue
		}
		src = math.Max(src, 0)
		y0 := int(src)
		y1 := min(y0+1, band.Height-1)
		y0 = min(y0, band.Height-1)
		f := float32(src - float64(y0))
		for c := 0; c < r.C; c++ {
			a := r.Row(c, band.Top+y0)
			b := r.Row(c, band.Top+y1)
			dst := out.Row(c, y)
			for x := range dst {
				dst[x] = a[x] + (b[x]-a[x])*f
			}
		}
	}
	return out, nil
}
