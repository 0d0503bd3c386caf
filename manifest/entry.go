// Package manifest reads dataset manifests, expands their records into
// sample descriptors and validates them against storage.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stevecastle/stereoprep/storage"
)

// Wire keys of a manifest record. The long names are accepted on read.
const (
	keyColor     = "rgb"
	keyDisparity = "disparity"
	keyNIR       = "nir"
	keyFiltered  = "frame_burnt_filtered"
)

var aliases = map[string]string{
	"color_paths":     keyColor,
	"disparity_paths": keyDisparity,
	"nir_paths":       keyNIR,
}

// Path markers used to derive companion assets from a color path.
const (
	markerCleanPass  = "frames_cleanpass"
	markerNIR        = "nir_rendered"
	markerAmbientNIR = "nir_ambient"
	markerShaded     = "frame_shaded"
	markerShadedNIR  = "frame_shaded_nir"
)

// Entry is one manifest record.
type Entry struct {
	Color     []string
	Disparity []string
	// NIRPaths is empty when the record relies on the derived NIR pair.
	NIRPaths []string
	// Filtered holds the raw value of the filtered marker, nil when absent.
	Filtered json.RawMessage
	// Extra keeps keys this package does not interpret.
	Extra map[string]json.RawMessage
}

// IsFiltered reports whether the record carries the filtered marker.
func (e Entry) IsFiltered() bool { return e.Filtered != nil }

// NIR returns the explicit NIR pair or derives it from the color pair.
func (e Entry) NIR() []string {
	if len(e.NIRPaths) == 2 {
		return e.NIRPaths
	}
	return replaceAll(e.Color, markerCleanPass, markerNIR)
}

// AmbientNIR returns the ambient-light counterpart of the NIR pair.
func (e Entry) AmbientNIR() []string {
	return replaceAll(e.NIR(), markerNIR, markerAmbientNIR)
}

// Paths lists every asset the record references, including a derived NIR
// pair.
func (e Entry) Paths() []string {
	out := make([]string, 0, 6)
	out = append(out, e.Color...)
	out = append(out, e.Disparity...)
	return append(out, e.NIR()...)
}

func replaceAll(paths []string, old, repl string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.ReplaceAll(p, old, repl)
	}
	return out
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{}
	for key, value := range raw {
		if canonical, ok := aliases[key]; ok {
			key = canonical
		}
		var err error
		switch key {
		case keyColor:
			e.Color, err = decodePaths(value)
		case keyDisparity:
			e.Disparity, err = decodePaths(value)
		case keyNIR:
			e.NIRPaths, err = decodePaths(value)
		case keyFiltered:
			e.Filtered = value
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]json.RawMessage)
			}
			e.Extra[key] = value
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		out[k] = v
	}
	out[keyColor] = e.Color
	out[keyDisparity] = e.Disparity
	if len(e.NIRPaths) > 0 {
		out[keyNIR] = e.NIRPaths
	}
	if e.Filtered != nil {
		out[keyFiltered] = e.Filtered
	}
	return json.Marshal(out)
}

// decodePaths accepts a path list or a single path string.
func decodePaths(value json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(value, &single); err != nil {
		return nil, errors.New("expected a path or a list of paths")
	}
	return []string{single}, nil
}

func (e Entry) check() error {
	if len(e.Color) != 2 {
		return fmt.Errorf("want 2 color paths, got %d", len(e.Color))
	}
	if len(e.Disparity) < 1 || len(e.Disparity) > 2 {
		return fmt.Errorf("want 1 or 2 disparity paths, got %d", len(e.Disparity))
	}
	if len(e.NIRPaths) != 0 && len(e.NIRPaths) != 2 {
		return fmt.Errorf("want 2 nir paths, got %d", len(e.NIRPaths))
	}
	return nil
}

// Parse decodes a manifest. Any malformed record fails the whole manifest.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, e := range entries {
		if err := e.check(); err != nil {
			return nil, fmt.Errorf("parse manifest: record %d: %w", i, err)
		}
	}
	return entries, nil
}

// Load reads and parses the manifest at path.
func Load(ctx context.Context, store storage.Store, path string) ([]Entry, error) {
	data, err := storage.ReadFile(ctx, store, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	entries, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Save writes entries as a manifest.
func Save(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
