package main

import (
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/nfnt/resize"
	"github.com/spf13/cobra"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/dataset"
	"github.com/stevecastle/stereoprep/loader"
	"github.com/stevecastle/stereoprep/platform"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/sample"
)

const sheetColumns = 2

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var ef expandFlags
	var indices []int
	var out string
	var scale float64
	var open bool

	cmd := &cobra.Command{
		Use:   "preview [manifest]",
		Short: "Render produced samples to PNG",
		Long: "Produces the samples at the given indices and writes every modality and " +
			"disparity channel as PNG, plus a contact sheet. Without a manifest the " +
			"configured training mix is used. Indices address the seeded, shuffled " +
			"collection order, so the same seed always previews the same samples.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := ef.options(cmd, cfg.Expand)
			if err != nil {
				return err
			}
			if scale <= 0 || scale > 1 {
				return fmt.Errorf("scale must be in (0, 1], got %g", scale)
			}
			store, err := ctx.store(cmd.Context())
			if err != nil {
				return err
			}
			seed, err := ctx.resolveSeed()
			if err != nil {
				return err
			}
			rng := buildRNG(seed)

			var coll *dataset.Collection
			if len(args) == 1 {
				descs, err := expandManifest(cmd.Context(), store, args[0], opts, rng)
				if err != nil {
					return err
				}
				coll = dataset.New(rng, dataset.Source{Name: args[0], Descriptors: descs})
			} else {
				m, err := buildMix(cmd.Context(), cfg, store, opts, rng)
				if err != nil {
					return err
				}
				coll = m.train
			}
			if coll.Len() == 0 {
				return fmt.Errorf("nothing to preview: the collection is empty")
			}

			if out == "" {
				out = cfg.PreviewDir
			}
			err = loader.Run(cmd.Context(), coll, loader.Options{
				Workers: cfg.Workers,
				Seed:    seed,
				Indices: indices,
			}, func(index int, s sample.Sample) error {
				dir := filepath.Join(out, fmt.Sprintf("%06d", index))
				if err := writePreview(dir, s, scale); err != nil {
					return err
				}
				log.Printf("Wrote sample %d to %s", index, dir)
				return nil
			})
			if err != nil {
				return err
			}

			if open {
				return platform.OpenFile(out)
			}
			return nil
		},
	}

	addExpandFlags(cmd, &ef)
	cmd.Flags().IntSliceVarP(&indices, "index", "i", []int{0}, "Sample indices to render")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output folder (defaults to the configured preview folder)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Downscale factor in (0, 1]")
	cmd.Flags().BoolVar(&open, "open", false, "Open the output folder when done")

	return cmd
}

// writePreview writes one PNG per modality and per disparity channel, then
// tiles them into sheet.png.
func writePreview(dir string, s sample.Sample, scale float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}

	var tiles []image.Image
	for i, m := range s.Modalities {
		img, err := raster.ToImage(m, 0, 255)
		if err != nil {
			return fmt.Errorf("modality %d: %w", i, err)
		}
		img = scaleImage(img, scale)
		if err := savePNG(filepath.Join(dir, fmt.Sprintf("modality_%d.png", i)), img); err != nil {
			return err
		}
		tiles = append(tiles, img)
	}
	for i, d := range s.Disparity {
		for c := 0; c < d.C; c++ {
			ch := &raster.Raster{C: 1, H: d.H, W: d.W, Pix: d.Channel(c)}
			lo, hi := disparityRange(ch)
			img, err := raster.ToImage(ch, lo, hi)
			if err != nil {
				return fmt.Errorf("disparity %d: %w", i, err)
			}
			img = scaleImage(img, scale)
			if err := savePNG(filepath.Join(dir, fmt.Sprintf("disparity_%d_%d.png", i, c)), img); err != nil {
				return err
			}
			tiles = append(tiles, img)
		}
	}
	return savePNG(filepath.Join(dir, "sheet.png"), contactSheet(tiles, sheetColumns))
}

// disparityRange returns the 1st and 99th percentile of the labelled
// values, so a few outliers do not flatten the rendering.
func disparityRange(r *raster.Raster) (lo, hi float32) {
	xs := make([]float64, 0, len(r.Pix))
	for _, v := range r.Pix {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || v >= augment.InvalidDisparity {
			continue
		}
		xs = append(xs, f)
	}
	if len(xs) == 0 {
		return 0, 1
	}
	slices.Sort(xs)
	lo = float32(stat.Quantile(0.01, stat.Empirical, xs, nil))
	hi = float32(stat.Quantile(0.99, stat.Empirical, xs, nil))
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func scaleImage(img image.Image, scale float64) image.Image {
	if scale >= 1 {
		return img
	}
	w := uint(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	return resize.Resize(w, 0, img, resize.Bilinear)
}

// contactSheet lays tiles out row by row in cells sized to the largest tile.
func contactSheet(tiles []image.Image, cols int) *image.RGBA {
	if len(tiles) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	var cw, ch int
	for _, t := range tiles {
		cw = max(cw, t.Bounds().Dx())
		ch = max(ch, t.Bounds().Dy())
	}
	cols = min(cols, len(tiles))
	rows := (len(tiles) + cols - 1) / cols
	sheet := image.NewRGBA(image.Rect(0, 0, cols*cw, rows*ch))
	for i, t := range tiles {
		x, y := (i%cols)*cw, (i/cols)*ch
		b := t.Bounds()
		draw.Draw(sheet, image.Rect(x, y, x+b.Dx(), y+b.Dy()), t, b.Min, draw.Src)
	}
	return sheet
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := raster.EncodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
