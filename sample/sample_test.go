package sample

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stevecastle/stereoprep/augment"
	"github.com/stevecastle/stereoprep/raster"
	"github.com/stevecastle/stereoprep/storage"
)

func writeColor(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	writeImage(t, path, img)
}

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func writePFM(t *testing.T, path string, r *raster.Raster) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := raster.EncodePFM(f, r); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func rng(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func shapes(ts []Tensor) [][]int {
	out := make([][]int, len(ts))
	for i, t := range ts {
		out[i] = t.Shape
	}
	return out
}

// syntheticFixture writes L.png, R.png, D.pfm and a right disparity map.
func syntheticFixture(t *testing.T) string {
	dir := t.TempDir()
	writeColor(t, filepath.Join(dir, "L.png"), 120, 200)
	writeColor(t, filepath.Join(dir, "R.png"), 120, 200)
	writePFM(t, filepath.Join(dir, "D.pfm"), raster.Filled(1, 200, 120, 30))
	writePFM(t, filepath.Join(dir, "DR.pfm"), raster.Filled(1, 200, 120, 30))
	return dir
}

func TestSyntheticEndToEnd(t *testing.T) {
	dir := syntheticFixture(t)
	store := storage.Local{Root: dir}

	d, err := NewSynthetic(store, []string{"L.png", "R.png", "L.png", "R.png"}, []string{"D.pfm"}, Plan{})
	if err != nil {
		t.Fatalf("NewSynthetic failed: %v", err)
	}
	s, err := d.Produce(context.Background(), rng(1))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}

	want := [][]int{
		{3, 540, 720}, {3, 540, 720}, {3, 540, 720}, {3, 540, 720},
		{5000, 3},
		{1, 540, 720},
	}
	if diff := cmp.Diff(want, shapes(s.Tuple())); diff != "" {
		t.Errorf("tuple shapes mismatch (-want +got):\n%s", diff)
	}
	for _, p := range s.Points {
		if p.D != 30 && p.D != augment.InvalidDisparity {
			t.Fatalf("point (%d,%d) has disparity %v", p.U, p.V, p.D)
		}
		if (p.U < 120 && p.V < 200) != (p.D == 30) {
			t.Fatalf("point (%d,%d) has disparity %v", p.U, p.V, p.D)
		}
	}
}

func TestSyntheticFullPlan(t *testing.T) {
	dir := syntheticFixture(t)
	store := storage.Local{Root: dir}

	plan := Plan{
		GuidedNoise:    Int(0),
		GammaNoise:     Float(0.5),
		ShiftFilter:    true,
		VerticalScale:  true,
		DisparityRight: true,
	}
	plan.DrawGeometry(rng(3))
	d, err := NewSynthetic(store,
		[]string{"L.png", "R.png", "L.png", "R.png", "L.png", "R.png"},
		[]string{"D.pfm", "DR.pfm"}, plan)
	if err != nil {
		t.Fatalf("NewSynthetic failed: %v", err)
	}

	a, err := d.Produce(context.Background(), rng(5))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	want := [][]int{
		{3, 540, 720}, {3, 540, 720}, {3, 540, 720}, {3, 540, 720}, {3, 540, 720}, {3, 540, 720},
		{5000, 3},
		{2, 540, 720},
	}
	if diff := cmp.Diff(want, shapes(a.Tuple())); diff != "" {
		t.Errorf("tuple shapes mismatch (-want +got):\n%s", diff)
	}

	// Shifted labels lose the shift distance; re-padded columns hold the
	// plain sentinel.
	sd := float32(plan.ShiftDistance)
	allowed := map[float32]bool{30 - sd: true, augment.InvalidDisparity - sd: true, augment.InvalidDisparity: true}
	for c := 0; c < 2; c++ {
		found := false
		for _, v := range a.Disparity[0].Channel(c) {
			if !allowed[v] {
				t.Fatalf("channel %d holds unexpected disparity %v", c, v)
			}
			found = found || v == 30-sd
		}
		if !found {
			t.Errorf("channel %d has no shifted label %v", c, 30-sd)
		}
	}

	b, err := d.Produce(context.Background(), rng(5))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different samples (-first +second):\n%s", diff)
	}
}

func TestSyntheticGuidedNIRTarget(t *testing.T) {
	dir := syntheticFixture(t)
	plan := Plan{GuidedNoise: Int(1), NoiseTarget: TargetNIR}
	d, err := NewSynthetic(storage.Local{Root: dir}, []string{"L.png", "R.png", "L.png", "R.png"}, []string{"D.pfm"}, plan)
	if err != nil {
		t.Fatalf("NewSynthetic failed: %v", err)
	}
	s, err := d.Produce(context.Background(), rng(2))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if diff := cmp.Diff(s.Modalities[0].Pix, s.Modalities[2].Pix); diff == "" {
		t.Error("NIR target should differ from the untouched color frame")
	}
}

// The color target keeps the raw filter output: values outside the 8-bit
// range survive, either as is or through the low-light division.
func TestGuidedNoiseColorKeepsRange(t *testing.T) {
	s := &Synthetic{Paths: []string{"l", "r", "nl", "nr"}, Plan: Plan{NoiseTarget: TargetColor}}
	for seed := uint64(0); seed < 8; seed++ {
		images := []*raster.Raster{
			raster.Filled(3, 6, 6, 325),
			raster.Filled(3, 6, 6, 325),
			raster.Filled(1, 6, 6, 10),
			raster.Filled(1, 6, 6, 10),
		}
		if err := s.guidedNoise(images, 0, rng(seed)); err != nil {
			t.Fatalf("guidedNoise failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			for _, v := range images[i].Pix {
				if math.Abs(float64(v)-325) > 1e-3 && v != 6 {
					t.Fatalf("seed %d image %d holds %v; want 325 or 6", seed, i, v)
				}
			}
		}
	}
}

func TestNewSyntheticRejectsBadLayouts(t *testing.T) {
	store := storage.Local{}
	four := []string{"a", "b", "c", "d"}
	tests := []struct {
		name      string
		paths     []string
		disparity []string
		plan      Plan
	}{
		{"three paths", four[:3], []string{"d.pfm"}, Plan{}},
		{"no disparity", four, nil, Plan{}},
		{"right without path", four, []string{"d.pfm"}, Plan{DisparityRight: true}},
		{"shift out of range", four, []string{"d.pfm"}, Plan{ShiftFilter: true, ShiftDistance: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSynthetic(store, tt.paths, tt.disparity, tt.plan); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSyntheticMissingFile(t *testing.T) {
	d, err := NewSynthetic(storage.Local{Root: t.TempDir()}, []string{"L.png", "R.png", "L.png", "R.png"}, []string{"D.pfm"}, Plan{})
	if err != nil {
		t.Fatalf("NewSynthetic failed: %v", err)
	}
	_, err = d.Produce(context.Background(), rng(1))
	if !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("Produce error = %v; want ErrNotExist", err)
	}
}

func TestMiddlebury(t *testing.T) {
	dir := t.TempDir()
	writeColor(t, filepath.Join(dir, "im0.png"), 800, 600)
	writeColor(t, filepath.Join(dir, "im1.png"), 800, 600)
	disp := raster.Filled(1, 600, 800, 12)
	disp.Set(0, 0, 0, float32(math.Inf(1)))
	writePFM(t, filepath.Join(dir, "disp0.pfm"), disp)

	m := &Middlebury{Store: storage.Local{Root: dir}, Disparity: "disp0.pfm", Left: "im0.png", Right: "im1.png"}
	for seed := uint64(0); seed < 4; seed++ {
		s, err := m.Produce(context.Background(), rng(seed))
		if err != nil {
			t.Fatalf("Produce failed: %v", err)
		}
		want := [][]int{
			{3, 540, 720}, {3, 540, 720}, {1, 540, 720}, {1, 540, 720}, {3, 540, 720}, {3, 540, 720},
			{1, 540, 720}, {1, 540, 720},
		}
		if diff := cmp.Diff(want, shapes(s.Tuple())); diff != "" {
			t.Fatalf("tuple shapes mismatch (-want +got):\n%s", diff)
		}
		if s.Points != nil {
			t.Error("Middlebury samples should carry no points")
		}
		for _, v := range s.Disparity[0].Pix {
			if v != 12 && v != augment.InvalidDisparity {
				t.Fatalf("disparity value %v", v)
			}
		}
		for _, r := range s.Modalities {
			for _, v := range r.Pix {
				if v < 0 || v > 255 {
					t.Fatalf("value %v outside the 8-bit range", v)
				}
			}
		}
	}
}

func TestMiddleburySmallSourceIsPadded(t *testing.T) {
	dir := t.TempDir()
	writeColor(t, filepath.Join(dir, "im0.png"), 100, 80)
	writeColor(t, filepath.Join(dir, "im1.png"), 100, 80)
	writePFM(t, filepath.Join(dir, "disp0.pfm"), raster.Filled(1, 80, 100, 4))

	m := &Middlebury{Store: storage.Local{Root: dir}, Disparity: "disp0.pfm", Left: "im0.png", Right: "im1.png"}
	s, err := m.Produce(context.Background(), rng(1))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	if s.ValidH != 80 || s.ValidW != 100 {
		t.Errorf("valid region = %dx%d; want 80x100", s.ValidH, s.ValidW)
	}
	if got := s.Disparity[0].At(0, 539, 719); got != augment.InvalidDisparity {
		t.Errorf("padded disparity = %v; want sentinel", got)
	}
}

func TestETH3D(t *testing.T) {
	dir := t.TempDir()
	const w, h = 400, 300
	writeColor(t, filepath.Join(dir, ETH3DLeft), w, h)
	writeColor(t, filepath.Join(dir, ETH3DRight), w, h)
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	writeImage(t, filepath.Join(dir, ETH3DMask), mask)
	writePFM(t, filepath.Join(dir, ETH3DDisparity), raster.Filled(1, h, w, 7))

	e := &ETH3D{Store: storage.Local{}, Dir: dir}
	s, err := e.Produce(context.Background(), rng(8))
	if err != nil {
		t.Fatalf("Produce failed: %v", err)
	}
	want := [][]int{
		{3, 540, 720}, {3, 540, 720}, {1, 540, 720}, {1, 540, 720},
		{5000, 3},
		{1, 540, 720},
	}
	if diff := cmp.Diff(want, shapes(s.Tuple())); diff != "" {
		t.Errorf("tuple shapes mismatch (-want +got):\n%s", diff)
	}
	if s.ValidH != h || s.ValidW != w {
		t.Errorf("valid region = %dx%d; want %dx%d", s.ValidH, s.ValidW, h, w)
	}
	if !s.NonFinitePoints {
		t.Error("occluded points should flag the sample")
	}
	for _, p := range s.Points {
		if p.U >= w || p.V >= h {
			t.Fatalf("point (%d,%d) outside the valid region", p.U, p.V)
		}
		occluded := p.U >= w/2
		if occluded != math.IsInf(float64(p.D), 1) {
			t.Fatalf("point (%d,%d) has disparity %v", p.U, p.V, p.D)
		}
	}
}

func TestPlanShape(t *testing.T) {
	tests := []struct {
		plan Plan
		want string
	}{
		{Plan{}, "plain"},
		{Plan{GuidedNoise: Int(3)}, "guided"},
		{Plan{GuidedNoise: Int(3), GammaNoise: Float(1), ShiftFilter: true, VerticalScale: true}, "guided+gamma+shift+vscale"},
	}
	for _, tt := range tests {
		if got := tt.plan.Shape(); got != tt.want {
			t.Errorf("Shape() = %q; want %q", got, tt.want)
		}
	}
}

func TestDrawGeometry(t *testing.T) {
	r := rng(11)
	for i := 0; i < 100; i++ {
		var p Plan
		p.DrawGeometry(r)
		if p.ShiftDistance < augment.MinShift || p.ShiftDistance > augment.MaxShift {
			t.Fatalf("shift distance %d out of range", p.ShiftDistance)
		}
	}
}

func TestParseNoiseTarget(t *testing.T) {
	for in, want := range map[string]NoiseTarget{"rgb": TargetColor, "color": TargetColor, "NIR": TargetNIR} {
		got, err := ParseNoiseTarget(in)
		if err != nil || got != want {
			t.Errorf("ParseNoiseTarget(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseNoiseTarget("depth"); err == nil {
		t.Error("unknown target should fail")
	}
}
