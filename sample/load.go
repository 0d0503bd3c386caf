package sample

import (
	"context"
	"fmt"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/storage"
)

// Load reads and decodes one asset.
func Load(ctx context.Context, store storage.Store, path string) (*raster.Raster, error) {
	rc, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer rc.Close()
	r, err := raster.Decode(rc, path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}

// LoadPadded reads an asset and pads it to the canonical frame. Disparity
// paths pad with the invalid sentinel, everything else replicates edges.
func LoadPadded(ctx context.Context, store storage.Store, path string) (*raster.Raster, error) {
	r, err := Load(ctx, store, path)
	if err != nil {
		return nil, err
	}
	r = augment.Pad(r, augment.IsDisparityPath(path))
	if err := augment.CheckCanonical(r, path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadDisparity reads a disparity map, replaces non-finite values with the
// sentinel and pads it to the canonical frame.
func LoadDisparity(ctx context.Context, store storage.Store, path string) (*raster.Raster, error) {
	r, err := Load(ctx, store, path)
	if err != nil {
		return nil, err
	}
	augment.Sanitize(r, augment.InvalidDisparity)
	r = augment.Pad(r, true)
	if err := augment.CheckCanonical(r, path); err != nil {
		return nil, err
	}
	return r, nil
}

// gray returns a single-channel view of r, averaging channels if needed.
func gray(r *raster.Raster) *raster.Raster {
	if r.C == 1 {
		return r
	}
	return r.Mean()
}
