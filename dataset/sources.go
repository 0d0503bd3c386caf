package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stevecastle/stereoprep/sample"
	"github.com/stevecastle/stereoprep/storage"
)

// MiddleburyCopies is how many descriptors each Middlebury frame yields.
// Every access crops a different window, so copies are distinct samples.
const MiddleburyCopies = 100

const middleburyDisparity = "disp0.pfm"

// ErrRemoteRoot is returned when a source folder is an s3:// URL. Folder
// discovery needs a local listing; the assets it finds may still be read
// through any store.
var ErrRemoteRoot = errors.New("source folders must be local")

// Middlebury walks root for files ending in disp0.pfm and returns copies
// descriptors per frame, reading the sibling im0/im1 images. root must be
// a local folder.
func Middlebury(store storage.Store, root string, copies int) ([]sample.Descriptor, error) {
	if storage.IsS3(root) {
		return nil, fmt.Errorf("scan middlebury %s: %w", root, ErrRemoteRoot)
	}
	var out []sample.Descriptor
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), middleburyDisparity) {
			return nil
		}
		dir, name := filepath.Split(path)
		left := filepath.Join(dir, sibling(name, "im0"))
		right := filepath.Join(dir, sibling(name, "im1"))
		m := &sample.Middlebury{Store: store, Disparity: path, Left: left, Right: right}
		for i := 0; i < copies; i++ {
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan middlebury %s: %w", root, err)
	}
	return out, nil
}

// sibling maps "<prefix>disp0.pfm" to "<prefix><image>.png".
func sibling(name, image string) string {
	return strings.TrimSuffix(name, middleburyDisparity) + image + ".png"
}

// ETH3D returns one descriptor per directory directly under root that
// holds a left image, in name order. root must be a local folder.
func ETH3D(store storage.Store, root string) ([]sample.Descriptor, error) {
	if storage.IsS3(root) {
		return nil, fmt.Errorf("scan eth3d %s: %w", root, ErrRemoteRoot)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan eth3d %s: %w", root, err)
	}
	var out []sample.Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, sample.ETH3DLeft)); err != nil {
			continue
		}
		out = append(out, &sample.ETH3D{Store: store, Dir: dir})
	}
	return out, nil
}
