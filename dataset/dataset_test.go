package dataset

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stevecastle/stereoprep/sample"
	"github.com/stevecastle/stereoprep/storage"
)

type fakeDescriptor struct {
	id  int
	err error
}

func (f *fakeDescriptor) Kind() sample.Kind { return "fake" }

func (f *fakeDescriptor) Produce(ctx context.Context, rng *rand.Rand) (sample.Sample, error) {
	if f.err != nil {
		return sample.Sample{}, f.err
	}
	return sample.Sample{ValidH: f.id}, nil
}

func fakes(from, n int) []sample.Descriptor {
	out := make([]sample.Descriptor, n)
	for i := range out {
		out[i] = &fakeDescriptor{id: from + i}
	}
	return out
}

func ids(descs []sample.Descriptor) []int {
	out := make([]int, len(descs))
	for i, d := range descs {
		out[i] = d.(*fakeDescriptor).id
	}
	return out
}

func TestHoldout(t *testing.T) {
	tests := []struct {
		name        string
		total, n    int
		train, hold int
	}{
		{"normal", 250, DefaultHoldout, 150, 100},
		{"short", 30, DefaultHoldout, 0, 30},
		{"zero", 10, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs := fakes(0, tt.total)
			train, hold := Holdout(descs, tt.n)
			if len(train) != tt.train || len(hold) != tt.hold {
				t.Fatalf("split = %d/%d; want %d/%d", len(train), len(hold), tt.train, tt.hold)
			}
			if tt.hold > 0 && ids(hold)[0] != tt.total-tt.hold {
				t.Errorf("holdout starts at %d; want %d", ids(hold)[0], tt.total-tt.hold)
			}
		})
	}
}

func TestNewMixesSources(t *testing.T) {
	driving := fakes(0, 100)
	flying := fakes(1000, 50)
	c := New(rand.New(rand.NewPCG(1, 2)),
		Source{Name: "driving", Descriptors: driving},
		Source{Name: "flying", Descriptors: flying, Fraction: 0.2, Shuffle: true},
	)
	if c.Len() != 110 {
		t.Fatalf("Len() = %d; want 110", c.Len())
	}
	if diff := cmp.Diff(map[string]int{"driving": 100, "flying": 10}, c.Counts()); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	got := ids(c.Descriptors())
	flyingSeen := 0
	for _, id := range got {
		if id >= 1000 {
			flyingSeen++
		}
	}
	if flyingSeen != 10 {
		t.Errorf("got %d flying descriptors; want 10", flyingSeen)
	}
	if sort.IntsAreSorted(got) {
		t.Error("collection was not shuffled")
	}
	if diff := cmp.Diff(fakes(1000, 50), flying, cmp.AllowUnexported(fakeDescriptor{})); diff != "" {
		t.Errorf("source slice modified (-want +got):\n%s", diff)
	}

	again := New(rand.New(rand.NewPCG(1, 2)),
		Source{Name: "driving", Descriptors: driving},
		Source{Name: "flying", Descriptors: flying, Fraction: 0.2, Shuffle: true},
	)
	if diff := cmp.Diff(got, ids(again.Descriptors())); diff != "" {
		t.Errorf("same seed gave a different order (-first +second):\n%s", diff)
	}
}

func TestNewKeepsPrefixWithoutShuffle(t *testing.T) {
	c := New(rand.New(rand.NewPCG(5, 5)), Source{Name: "s", Descriptors: fakes(0, 10), Fraction: 0.5})
	got := ids(c.Descriptors())
	sort.Ints(got)
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4}, got); diff != "" {
		t.Errorf("kept ids mismatch (-want +got):\n%s", diff)
	}
}

func TestGet(t *testing.T) {
	boom := errors.New("boom")
	c := New(rand.New(rand.NewPCG(0, 0)), Source{Name: "a", Descriptors: []sample.Descriptor{&fakeDescriptor{id: 7}}},
		Source{Name: "b", Descriptors: []sample.Descriptor{&fakeDescriptor{err: boom}}})
	rng := rand.New(rand.NewPCG(0, 0))

	var okSeen, errSeen bool
	for i := 0; i < c.Len(); i++ {
		s, err := c.Get(context.Background(), i, rng)
		switch {
		case errors.Is(err, boom):
			errSeen = true
		case err == nil && s.ValidH == 7:
			okSeen = true
		default:
			t.Errorf("Get(%d) = %+v, %v", i, s, err)
		}
	}
	if !okSeen || !errSeen {
		t.Errorf("ok=%v err=%v; want both", okSeen, errSeen)
	}
	for _, i := range []int{-1, 2} {
		if _, err := c.Get(context.Background(), i, rng); err == nil {
			t.Errorf("Get(%d) should fail", i)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMiddleburyBuilder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Adirondack", "disp0.pfm"))
	touch(t, filepath.Join(root, "Jadeplant", "disp0.pfm"))
	touch(t, filepath.Join(root, "Jadeplant", "disp1.pfm"))

	descs, err := Middlebury(storage.Local{}, root, 3)
	if err != nil {
		t.Fatalf("Middlebury failed: %v", err)
	}
	if len(descs) != 6 {
		t.Fatalf("got %d descriptors; want 6", len(descs))
	}
	m := descs[0].(*sample.Middlebury)
	want := &sample.Middlebury{
		Store:     storage.Local{},
		Disparity: filepath.Join(root, "Adirondack", "disp0.pfm"),
		Left:      filepath.Join(root, "Adirondack", "im0.png"),
		Right:     filepath.Join(root, "Adirondack", "im1.png"),
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}

	if _, err := Middlebury(storage.Local{}, filepath.Join(root, "missing"), 1); err == nil {
		t.Error("missing root should fail")
	}
}

func TestETH3DBuilder(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "delivery_area_1l", "im0.png"))
	touch(t, filepath.Join(root, "electro_1s", "im0.png"))
	touch(t, filepath.Join(root, "empty", "im1.png"))
	touch(t, filepath.Join(root, "stray.txt"))

	descs, err := ETH3D(storage.Local{}, root)
	if err != nil {
		t.Fatalf("ETH3D failed: %v", err)
	}
	var dirs []string
	for _, d := range descs {
		dirs = append(dirs, filepath.Base(d.(*sample.ETH3D).Dir))
	}
	if diff := cmp.Diff([]string{"delivery_area_1l", "electro_1s"}, dirs); diff != "" {
		t.Errorf("scene dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildersRejectRemoteRoots(t *testing.T) {
	if _, err := Middlebury(storage.Local{}, "s3://bucket/middlebury", 1); !errors.Is(err, ErrRemoteRoot) {
		t.Errorf("Middlebury error = %v; want ErrRemoteRoot", err)
	}
	if _, err := ETH3D(storage.Local{}, "s3://bucket/eth3d"); !errors.Is(err, ErrRemoteRoot) {
		t.Errorf("ETH3D error = %v; want ErrRemoteRoot", err)
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed failed: %v", err)
	}
	b, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed failed: %v", err)
	}
	if a == b {
		t.Errorf("two seeds collided: %d", a)
	}
}
