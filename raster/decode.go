package raster

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrFormat is returned when a file cannot be decoded as a raster.
var ErrFormat = errors.New("raster: unsupported format")

// IsFloatMap reports whether a path names a planar float map (PFM).
func IsFloatMap(name string) bool {
	return strings.EqualFold(pathExt(name), ".pfm")
}

// Decode reads a raster from rd, choosing the codec by the extension of name.
// PFM files decode to float channels; everything else goes through
// image.Decode and yields 8-bit values in [0,255].
func Decode(rd io.Reader, name string) (*Raster, error) {
	if IsFloatMap(name) {
		return DecodePFM(rd)
	}
	return DecodeImage(rd)
}

// DecodeImage decodes any registered 8-bit image format.
func DecodeImage(rd io.Reader) (*Raster, error) {
	img, _, err := image.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return FromImage(img), nil
}

// FromImage converts an image to a raster. Gray images produce one channel,
// everything else three (R, G, B); alpha is dropped.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		r := New(1, h, w)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w]
			dst := r.Row(0, y)
			for x, v := range row {
				dst[x] = float32(v)
			}
		}
		return r
	case *image.Gray16:
		r := New(1, h, w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.Set(0, y, x, float32(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y>>8))
			}
		}
		return r
	case *image.NRGBA:
		r := New(3, h, w)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w*4]
			for x := 0; x < w; x++ {
				r.Set(0, y, x, float32(row[x*4+0]))
				r.Set(1, y, x, float32(row[x*4+1]))
				r.Set(2, y, x, float32(row[x*4+2]))
			}
		}
		return r
	case *image.RGBA:
		// Premultiplied; opaque frames carry the same values as NRGBA.
		r := New(3, h, w)
		for y := 0; y < h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			row := src.Pix[off : off+w*4]
			for x := 0; x < w; x++ {
				px := row[x*4 : x*4+4]
				if a := px[3]; a != 255 {
					c := color.NRGBAModel.Convert(color.RGBA{R: px[0], G: px[1], B: px[2], A: a}).(color.NRGBA)
					r.Set(0, y, x, float32(c.R))
					r.Set(1, y, x, float32(c.G))
					r.Set(2, y, x, float32(c.B))
					continue
				}
				r.Set(0, y, x, float32(px[0]))
				r.Set(1, y, x, float32(px[1]))
				r.Set(2, y, x, float32(px[2]))
			}
		}
		return r
	}

	r := New(3, h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r.Set(0, y, x, float32(c.R))
			r.Set(1, y, x, float32(c.G))
			r.Set(2, y, x, float32(c.B))
		}
	}
	return r
}

// DecodePFM reads a Portable Float Map. "Pf" yields one channel, "PF" three.
// PFM stores rows bottom-to-top; the result is top-to-bottom.
func DecodePFM(rd io.Reader) (*Raster, error) {
	br := bufio.NewReader(rd)

	magic, err := pfmToken(br)
	if err != nil {
		return nil, fmt.Errorf("%w: pfm header: %v", ErrFormat, err)
	}
	var channels int
	switch magic {
	case "Pf":
		channels = 1
	case "PF":
		channels = 3
	default:
		return nil, fmt.Errorf("%w: pfm magic %q", ErrFormat, magic)
	}

	fields := make([]string, 3)
	for i := range fields {
		if fields[i], err = pfmToken(br); err != nil {
			return nil, fmt.Errorf("%w: pfm header: %v", ErrFormat, err)
		}
	}
	w, errW := strconv.Atoi(fields[0])
	h, errH := strconv.Atoi(fields[1])
	scale, errS := strconv.ParseFloat(fields[2], 64)
	if errW != nil || errH != nil || errS != nil || w <= 0 || h <= 0 || scale == 0 {
		return nil, fmt.Errorf("%w: pfm header %v", ErrFormat, fields)
	}

	var order binary.ByteOrder = binary.BigEndian
	if scale < 0 {
		order = binary.LittleEndian
	}

	r := New(channels, h, w)
	line := make([]byte, w*channels*4)
	for row := h - 1; row >= 0; row-- {
		if _, err := io.ReadFull(br, line); err != nil {
			return nil, fmt.Errorf("%w: pfm data: %v", ErrFormat, err)
		}
		for x := 0; x < w; x++ {
			for c := 0; c < channels; c++ {
				off := (x*channels + c) * 4
				r.Set(c, row, x, math.Float32frombits(order.Uint32(line[off:off+4])))
			}
		}
	}
	return r, nil
}

// EncodePFM writes r (one or three channels) as a little-endian PFM.
func EncodePFM(w io.Writer, r *Raster) error {
	var magic string
	switch r.C {
	case 1:
		magic = "Pf"
	case 3:
		magic = "PF"
	default:
		return fmt.Errorf("%w: pfm needs 1 or 3 channels, got %d", ErrFormat, r.C)
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n-1.0\n", magic, r.W, r.H); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for y := r.H - 1; y >= 0; y-- {
		for x := 0; x < r.W; x++ {
			for c := 0; c < r.C; c++ {
				binary.LittleEndian.PutUint32(buf, math.Float32bits(r.At(c, y, x)))
				if _, err := bw.Write(buf); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}

// pfmToken reads one whitespace-delimited header token and consumes exactly
// one trailing whitespace byte, so the binary payload starts right after.
func pfmToken(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if isSpace(b) {
			if sb.Len() == 0 {
				continue
			}
			return sb.String(), nil
		}
		sb.WriteByte(b)
		if sb.Len() > 64 {
			return "", errors.New("header token too long")
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

func pathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && !strings.ContainsAny(name[i:], `/\`) {
		return name[i:]
	}
	return ""
}
