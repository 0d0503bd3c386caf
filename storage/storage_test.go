package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

func TestLocalOpenAndExists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "left.png"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	l := Local{Root: dir}

	if !l.Exists(ctx, "left.png") {
		t.Error("Exists(left.png) = false; want true")
	}
	if l.Exists(ctx, "right.png") {
		t.Error("Exists(right.png) = true; want false")
	}

	data, err := ReadFile(ctx, l, "left.png")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("ReadFile = %q; want %q", data, "data")
	}

	if _, err := l.Open(ctx, "right.png"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Open(missing) error = %v; want ErrNotExist", err)
	}

	abs := filepath.Join(dir, "left.png")
	if !l.Exists(ctx, abs) {
		t.Errorf("Exists(%q) = false; absolute paths should bypass Root", abs)
	}
}

type fakeS3 struct {
	objects map[string]string
	err     error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	store := NewS3WithClient(&fakeS3{objects: map[string]string{
		"bucket/scene/disp0.pfm": "pfm",
	}})

	data, err := ReadFile(ctx, store, "s3://bucket/scene/disp0.pfm")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "pfm" {
		t.Errorf("ReadFile = %q; want %q", data, "pfm")
	}
	if !store.Exists(ctx, "s3://bucket/scene/disp0.pfm") {
		t.Error("Exists = false; want true")
	}
	if store.Exists(ctx, "s3://bucket/scene/im0.png") {
		t.Error("Exists(missing) = true; want false")
	}
	if _, err := store.Open(ctx, "s3://bucket/scene/im0.png"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Open(missing) error = %v; want ErrNotExist", err)
	}
}

func TestS3APIErrorMapping(t *testing.T) {
	ctx := context.Background()
	store := NewS3WithClient(&fakeS3{err: &smithy.GenericAPIError{Code: "NotFound"}})
	if _, err := store.Open(ctx, "s3://bucket/key"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Open error = %v; want ErrNotExist", err)
	}

	store = NewS3WithClient(&fakeS3{err: errors.New("throttled")})
	_, err := store.Open(ctx, "s3://bucket/key")
	if err == nil || errors.Is(err, ErrNotExist) {
		t.Errorf("Open error = %v; want a non-ErrNotExist failure", err)
	}
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		input  string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://data/flying/left/0001.png", "data", "flying/left/0001.png", true},
		{"s3://data", "", "", false},
		{"s3:///key", "", "", false},
		{"/local/path.png", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, err := ParseS3URL(tt.input)
		if (err == nil) != tt.ok {
			t.Errorf("ParseS3URL(%q) error = %v; want ok=%v", tt.input, err, tt.ok)
			continue
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URL(%q) = %q, %q; want %q, %q", tt.input, bucket, key, tt.bucket, tt.key)
		}
	}
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	r := Router{
		Local:  Local{Root: dir},
		Remote: NewS3WithClient(&fakeS3{objects: map[string]string{"b/k": "x"}}),
	}
	if !r.Exists(ctx, "a.png") {
		t.Error("local path not routed to Local")
	}
	if !r.Exists(ctx, "s3://b/k") {
		t.Error("s3 path not routed to Remote")
	}

	bare := Router{}
	if bare.Exists(ctx, "s3://b/k") {
		t.Error("s3 path should not exist without a remote store")
	}
	if _, err := bare.Open(ctx, "s3://b/k"); err == nil {
		t.Error("Open should fail without a remote store")
	}
}
