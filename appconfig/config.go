package appconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/stevecastle/stereoprep/platform"
)

// Config holds dataset locations, expansion switches and storage settings.
type Config struct {
	// Root that relative manifests, asset paths and source folders resolve
	// against.
	DataRoot string `json:"dataRoot" toml:"dataRoot"`

	Manifests struct {
		Driving string `json:"driving" toml:"driving"`
		Flying  string `json:"flying" toml:"flying"`
	} `json:"manifests" toml:"manifests"`

	MiddleburyRoot string `json:"middleburyRoot" toml:"middleburyRoot"`
	ETH3DRoot      string `json:"eth3dRoot" toml:"eth3dRoot"`

	// Number of real-world descriptors held out for validation
	Holdout int `json:"holdout" toml:"holdout"`

	// Share of each source kept in the training mix
	Fractions Fractions `json:"fractions" toml:"fractions"`

	Expand Expand `json:"expand" toml:"expand"`

	// Seed 0 draws a fresh seed per run.
	Seed    uint64 `json:"seed" toml:"seed"`
	Workers int    `json:"workers" toml:"workers"`

	JournalPath string `json:"journalPath" toml:"journalPath"`
	PreviewDir  string `json:"previewDir" toml:"previewDir"`

	S3 S3 `json:"s3" toml:"s3"`
}

// Fractions are per-source shares in (0, 1]; 0 keeps everything. Real
// covers Middlebury and ETH3D after the holdout is taken.
type Fractions struct {
	Driving float64 `json:"driving" toml:"driving"`
	Flying  float64 `json:"flying" toml:"flying"`
	Real    float64 `json:"real" toml:"real"`
}

// Expand mirrors the manifest expansion options.
type Expand struct {
	NoRGB          bool   `json:"noRgb" toml:"noRgb"`
	NoFilter       bool   `json:"noFilter" toml:"noFilter"`
	Rendered       bool   `json:"rendered" toml:"rendered"`
	RenderedNIR    bool   `json:"renderedNir" toml:"renderedNir"`
	Noised         bool   `json:"noised" toml:"noised"`
	NoiseTarget    string `json:"noiseTarget" toml:"noiseTarget"`
	ShiftFilter    bool   `json:"shiftFilter" toml:"shiftFilter"`
	VerticalScale  bool   `json:"verticalScale" toml:"verticalScale"`
	DisparityRight bool   `json:"disparityRight" toml:"disparityRight"`
	ColorGT        bool   `json:"colorGt" toml:"colorGt"`
	MaxSamples     int    `json:"maxSamples" toml:"maxSamples"`
}

// S3 configures the store used for s3:// paths.
type S3 struct {
	Region          string `json:"region" toml:"region"`
	Endpoint        string `json:"endpoint" toml:"endpoint"`
	AccessKeyID     string `json:"accessKeyId" toml:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" toml:"secretAccessKey"`
	UsePathStyle    bool   `json:"usePathStyle" toml:"usePathStyle"`
}

var (
	cfgMu sync.RWMutex
	cfg   Config
)

// DefaultConfigDir returns the default config directory path.
// Uses the platform-specific data directory.
func DefaultConfigDir() string {
	return platform.GetDataDir()
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() Config {
	c := Config{
		DataRoot:       "data",
		MiddleburyRoot: "middlebury",
		ETH3DRoot:      "eth3d",
		Holdout:        100,
		Fractions:      Fractions{Driving: 1, Flying: 0.2, Real: 1},
		Expand:         Expand{Rendered: true, RenderedNIR: true, ShiftFilter: true, NoiseTarget: "color"},
		JournalPath:    platform.JournalPath(),
		PreviewDir:     filepath.Join(platform.GetCacheDir(), "previews"),
		S3:             S3{Region: "us-east-1"},
	}
	c.Manifests.Driving = "driving.json"
	c.Manifests.Flying = "flying.json"
	return c
}

// Get returns a copy of the current in-memory config.
func Get() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// Set replaces the in-memory config.
func Set(c Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func deepMergeJSON(dst, src map[string]json.RawMessage) {
	for k, v := range src {
		if existing, ok := dst[k]; ok && isJSONObject(existing) && isJSONObject(v) {
			var dstObj map[string]json.RawMessage
			var srcObj map[string]json.RawMessage
			if err := json.Unmarshal(existing, &dstObj); err != nil {
				dst[k] = v
				continue
			}
			if err := json.Unmarshal(v, &srcObj); err != nil {
				dst[k] = v
				continue
			}
			deepMergeJSON(dstObj, srcObj)
			merged, err := json.Marshal(dstObj)
			if err != nil {
				dst[k] = v
				continue
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

// getConfigPath returns path, or the default config.json when it is empty.
func getConfigPath(path string) string {
	if path != "" {
		return path
	}
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads the config at path (the default location when empty) and
// updates the in-memory config. Files ending in .toml are read as TOML,
// everything else as JSON. A missing file is created with default values.
func Load(path string) (Config, string, error) {
	path = getConfigPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := defaultConfig()
			savedPath, saveErr := Save(def, path)
			if saveErr != nil {
				return Config{}, path, fmt.Errorf("failed to create default config file: %v", saveErr)
			}
			return def, savedPath, nil
		}
		return Config{}, path, fmt.Errorf("failed to read config file at %s: %v", path, err)
	}

	var c Config
	if isTOML(path) {
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, path, fmt.Errorf("failed to parse config TOML: %v", err)
		}
	} else if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, path, fmt.Errorf("failed to parse config JSON: %v", err)
	}

	// Merge defaults for any missing fields
	def := defaultConfig()
	if c.DataRoot == "" {
		c.DataRoot = def.DataRoot
	}
	if c.Manifests.Driving == "" {
		c.Manifests.Driving = def.Manifests.Driving
	}
	if c.Manifests.Flying == "" {
		c.Manifests.Flying = def.Manifests.Flying
	}
	if c.MiddleburyRoot == "" {
		c.MiddleburyRoot = def.MiddleburyRoot
	}
	if c.ETH3DRoot == "" {
		c.ETH3DRoot = def.ETH3DRoot
	}
	if c.Holdout == 0 {
		c.Holdout = def.Holdout
	}
	if c.Expand.NoiseTarget == "" {
		c.Expand.NoiseTarget = def.Expand.NoiseTarget
	}
	if c.JournalPath == "" {
		c.JournalPath = def.JournalPath
	}
	if c.PreviewDir == "" {
		c.PreviewDir = def.PreviewDir
	}
	if c.S3.Region == "" {
		c.S3.Region = def.S3.Region
	}

	Set(c)
	return c, path, nil
}

// Save writes the config to path (the default location when empty),
// creating the directory as needed. JSON files keep keys this version does
// not know about. Returns the path.
func Save(c Config, path string) (string, error) {
	path = getConfigPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %v", err)
	}

	var out []byte
	if isTOML(path) {
		data, err := toml.Marshal(c)
		if err != nil {
			return path, fmt.Errorf("failed to marshal config: %v", err)
		}
		out = data
	} else {
		base := map[string]json.RawMessage{}
		if existing, readErr := os.ReadFile(path); readErr == nil {
			var tmp map[string]json.RawMessage
			if err := json.Unmarshal(existing, &tmp); err == nil {
				base = tmp
			}
		}

		marshaled, err := json.Marshal(c)
		if err != nil {
			return path, fmt.Errorf("failed to marshal config: %v", err)
		}
		incoming := map[string]json.RawMessage{}
		if err := json.Unmarshal(marshaled, &incoming); err != nil {
			return path, fmt.Errorf("failed to map config JSON: %v", err)
		}

		deepMergeJSON(base, incoming)

		out, err = json.MarshalIndent(base, "", "  ")
		if err != nil {
			return path, fmt.Errorf("failed to marshal merged config: %v", err)
		}
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return path, fmt.Errorf("failed to write config file: %v", err)
	}
	Set(c)
	return path, nil
}
