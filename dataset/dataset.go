// Package dataset mixes descriptor sources into one indexed collection and
// builds sources for the real-world benchmarks.
package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/stevecastle/stereoprep/sample"
)

// Source is one named group of descriptors. Fraction keeps that share of
// the source (after an optional shuffle); 0 or anything >= 1 keeps all of
// it.
type Source struct {
	Name        string
	Descriptors []sample.Descriptor
	Fraction    float64
	Shuffle     bool
}

// DefaultHoldout is the size of the validation split taken off the real
// source.
const DefaultHoldout = 100

// Holdout splits off the last n descriptors as a validation split. If there
// are fewer than n, everything goes to the holdout.
func Holdout(descs []sample.Descriptor, n int) (train, holdout []sample.Descriptor) {
	cut := max(len(descs)-max(n, 0), 0)
	return descs[:cut:cut], descs[cut:]
}

// Collection is a fixed, shuffled list of descriptors addressed by index.
type Collection struct {
	items  []sample.Descriptor
	counts map[string]int
}

// New combines sources into a collection. Each source with Shuffle set is
// shuffled on its own before its fraction is taken; the combined list is
// then permuted once. The sources' slices are not modified.
func New(rng *rand.Rand, sources ...Source) *Collection {
	c := &Collection{counts: make(map[string]int, len(sources))}
	for _, src := range sources {
		descs := append([]sample.Descriptor(nil), src.Descriptors...)
		if src.Shuffle {
			rng.Shuffle(len(descs), func(i, j int) { descs[i], descs[j] = descs[j], descs[i] })
		}
		if src.Fraction > 0 && src.Fraction < 1 {
			descs = descs[:int(float64(len(descs))*src.Fraction)]
		}
		c.counts[src.Name] += len(descs)
		c.items = append(c.items, descs...)
	}
	rng.Shuffle(len(c.items), func(i, j int) { c.items[i], c.items[j] = c.items[j], c.items[i] })
	return c
}

// Len returns the number of descriptors.
func (c *Collection) Len() int { return len(c.items) }

// Counts returns how many descriptors each source contributed.
func (c *Collection) Counts() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Descriptor returns the descriptor at index.
func (c *Collection) Descriptor(index int) (sample.Descriptor, error) {
	if index < 0 || index >= len(c.items) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", index, len(c.items))
	}
	return c.items[index], nil
}

// Descriptors returns a copy of the collection order.
func (c *Collection) Descriptors() []sample.Descriptor {
	return append([]sample.Descriptor(nil), c.items...)
}

// Get produces the sample at index with per-call randomness from rng.
func (c *Collection) Get(ctx context.Context, index int, rng *rand.Rand) (sample.Sample, error) {
	d, err := c.Descriptor(index)
	if err != nil {
		return sample.Sample{}, err
	}
	s, err := d.Produce(ctx, rng)
	if err != nil {
		return sample.Sample{}, fmt.Errorf("sample %d (%s): %w", index, d.Kind(), err)
	}
	return s, nil
}
