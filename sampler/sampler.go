// Package sampler draws sparse pixel sets and gathers their disparity
// labels.
package sampler

import (
	"fmt"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/raster"
)

// DefaultCount is the number of points drawn per sample.
const DefaultCount = 5000

// Point is a pixel coordinate with its disparity label. U is the column
// and V the row.
type Point struct {
	U, V int
	D    float32
}

// Sample draws min(k, h*w) distinct pixels of an h×w frame uniformly
// without replacement. Linear indices are decomposed row-major.
func Sample(rng *rand.Rand, h, w, k int) []Point {
	n := h * w
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	// Partial Fisher-Yates over a sparse view of the identity permutation.
	swapped := make(map[int]int, k)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}
	points := make([]Point, k)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi
		points[i] = Point{U: vj % w, V: vj / w}
	}
	return points
}

// Gather fills D for every point from channel 0 of disp. Non-finite
// values are copied as they are.
func Gather(disp *raster.Raster, points []Point) error {
	for i, p := range points {
		if p.U < 0 || p.V < 0 || p.U >= disp.W || p.V >= disp.H {
			return fmt.Errorf("gather: point (%d,%d) outside %dx%d", p.U, p.V, disp.W, disp.H)
		}
		points[i].D = disp.At(0, p.V, p.U)
	}
	return nil
}

// Flatten packs points into a row-major [K,3] buffer of (u, v, disparity).
func Flatten(points []Point) []float32 {
	out := make([]float32, 0, 3*len(points))
	for _, p := range points {
		out = append(out, float32(p.U), float32(p.V), p.D)
	}
	return out
}
