// Package loader produces samples from a collection on several workers.
package loader

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/stevecastle/stereoprep/sample"
)

// Collection is the indexed-collection contract the loader consumes.
type Collection interface {
	Len() int
	Get(ctx context.Context, index int, rng *rand.Rand) (sample.Sample, error)
}

// Options configure a Run.
type Options struct {
	// Workers defaults to the number of CPUs.
	Workers int
	Seed    uint64
	// Indices defaults to every index of the collection, in order.
	Indices []int
}

// RNG returns the random source used for index under seed. A sample only
// depends on its seed and index, never on which worker produced it.
func RNG(seed uint64, index int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(index)))
}

// Run produces every requested sample and hands it to fn. fn is called from
// worker goroutines and must be safe for concurrent use. The first error
// from Get or fn cancels the remaining work and is returned.
func Run(ctx context.Context, c Collection, opts Options, fn func(index int, s sample.Sample) error) error {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	indices := opts.Indices
	if indices == nil {
		indices = make([]int, c.Len())
		for i := range indices {
			indices[i] = i
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, index := range indices {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s, err := c.Get(ctx, index, RNG(opts.Seed, index))
			if err != nil {
				return err
			}
			if err := fn(index, s); err != nil {
				return fmt.Errorf("sample %d: %w", index, err)
			}
			return nil
		})
	}
	return g.Wait()
}
