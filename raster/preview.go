package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// ToImage maps values in [lo, hi] to 8-bit pixels. One-channel rasters become
// *image.Gray, three-channel rasters *image.RGBA. Non-finite values map to 0.
func ToImage(r *Raster, lo, hi float32) (image.Image, error) {
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	quant := func(v float32) uint8 {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0
		}
		f := (v - lo) / span * 255
		if f < 0 {
			return 0
		}
		if f > 255 {
			return 255
		}
		return uint8(f + 0.5)
	}

	rect := image.Rect(0, 0, r.W, r.H)
	switch r.C {
	case 1:
		img := image.NewGray(rect)
		for y := 0; y < r.H; y++ {
			for x, v := range r.Row(0, y) {
				img.SetGray(x, y, color.Gray{Y: quant(v)})
			}
		}
		return img, nil
	case 3:
		img := image.NewRGBA(rect)
		for y := 0; y < r.H; y++ {
			for x := 0; x < r.W; x++ {
				i := y*img.Stride + x*4
				img.Pix[i+0] = quant(r.At(0, y, x))
				img.Pix[i+1] = quant(r.At(1, y, x))
				img.Pix[i+2] = quant(r.At(2, y, x))
				img.Pix[i+3] = 255
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: cannot render %d channels", ErrFormat, r.C)
}

// EncodePNG writes img as a fast-compressed PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
