// Package augment implements the numeric transforms applied while producing a
// training sample: canonical padding, guided-filter noise, patch gamma,
// disparity-consistent horizontal shift, vertical anamorphic rescale and
// pseudo-NIR derivation.
//
// All transforms work on channel-first rasters. Randomized transforms take
// an explicit *rand.Rand; nothing here reads a global random source.
package augment
