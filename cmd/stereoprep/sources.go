package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"

	"github.com/stevecastle/stereoprep/appconfig"
	"github.com/stevecastle/stereoprep/dataset"
	"github.com/stevecastle/stereoprep/manifest"
	"github.com/stevecastle/stereoprep/sample"
	"github.com/stevecastle/stereoprep/storage"
)

// expandManifest loads one manifest and expands it.
func expandManifest(ctx context.Context, store storage.Store, path string, opts manifest.Options, rng *rand.Rand) ([]sample.Descriptor, error) {
	entries, err := manifest.Load(ctx, store, path)
	if err != nil {
		return nil, err
	}
	descs, err := manifest.Expand(ctx, store, entries, opts, rng)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", path, err)
	}
	return descs, nil
}

type mix struct {
	train   *dataset.Collection
	holdout []sample.Descriptor
}

// buildMix assembles the training collection from the configured
// manifests and real-world folders. Missing inputs are skipped with a log
// line; s3:// source folders are an error since they cannot be listed. The
// holdout comes off the real sources only.
func buildMix(ctx context.Context, cfg appconfig.Config, store storage.Store, opts manifest.Options, rng *rand.Rand) (mix, error) {
	var sources []dataset.Source

	synthetic := []struct {
		name     string
		path     string
		fraction float64
	}{
		{"driving", cfg.Manifests.Driving, cfg.Fractions.Driving},
		{"flying", cfg.Manifests.Flying, cfg.Fractions.Flying},
	}
	for _, s := range synthetic {
		if s.path == "" {
			continue
		}
		if !store.Exists(ctx, s.path) {
			log.Printf("Skipping %s manifest: %s not found", s.name, s.path)
			continue
		}
		descs, err := expandManifest(ctx, store, s.path, opts, rng)
		if err != nil {
			return mix{}, err
		}
		sources = append(sources, dataset.Source{Name: s.name, Descriptors: descs, Fraction: s.fraction, Shuffle: true})
	}

	var realDescs []sample.Descriptor
	mbRoot, err := dataPath(cfg, cfg.MiddleburyRoot)
	if err != nil {
		return mix{}, err
	}
	if storage.IsS3(mbRoot) || isDir(mbRoot) {
		descs, err := dataset.Middlebury(store, mbRoot, dataset.MiddleburyCopies)
		if err != nil {
			return mix{}, err
		}
		realDescs = append(realDescs, descs...)
	} else if mbRoot != "" {
		log.Printf("Skipping middlebury: %s not found", mbRoot)
	}
	ethRoot, err := dataPath(cfg, cfg.ETH3DRoot)
	if err != nil {
		return mix{}, err
	}
	if storage.IsS3(ethRoot) || isDir(ethRoot) {
		descs, err := dataset.ETH3D(store, ethRoot)
		if err != nil {
			return mix{}, err
		}
		realDescs = append(realDescs, descs...)
	} else if ethRoot != "" {
		log.Printf("Skipping eth3d: %s not found", ethRoot)
	}

	rng.Shuffle(len(realDescs), func(i, j int) { realDescs[i], realDescs[j] = realDescs[j], realDescs[i] })
	train, holdout := dataset.Holdout(realDescs, cfg.Holdout)
	if len(train) > 0 {
		sources = append(sources, dataset.Source{Name: "real", Descriptors: train, Fraction: cfg.Fractions.Real})
	}
	return mix{train: dataset.New(rng, sources...), holdout: holdout}, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
