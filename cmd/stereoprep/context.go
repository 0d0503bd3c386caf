package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stevecastle/stereoprep/appconfig"
	"github.com/stevecastle/stereoprep/dataset"
	"github.com/stevecastle/stereoprep/storage"
)

type commandContext struct {
	configFlag *string
	seedFlag   *uint64

	configOnce sync.Once
	config     appconfig.Config
	configErr  error

	seedOnce sync.Once
	seed     uint64
	seedErr  error
}

func newCommandContext(configFlag *string, seedFlag *uint64) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		seedFlag:   seedFlag,
	}
}

func (c *commandContext) ensureConfig() (appconfig.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := appconfig.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// store routes s3:// paths to S3 and everything else to the data root.
func (c *commandContext) store(ctx context.Context) (storage.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	remote, err := storage.NewS3(ctx, storage.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return storage.Router{Local: storage.Local{Root: cfg.DataRoot}, Remote: remote}, nil
}

// resolveSeed prefers the flag, then the config. With neither set a fresh
// seed is drawn and logged so the run can be repeated.
func (c *commandContext) resolveSeed() (uint64, error) {
	c.seedOnce.Do(func() {
		if c.seedFlag != nil && *c.seedFlag != 0 {
			c.seed = *c.seedFlag
			return
		}
		cfg, err := c.ensureConfig()
		if err != nil {
			c.seedErr = err
			return
		}
		if cfg.Seed != 0 {
			c.seed = cfg.Seed
			return
		}
		c.seed, c.seedErr = dataset.NewSeed()
		if c.seedErr == nil {
			log.Printf("Using seed %d", c.seed)
		}
	})
	return c.seed, c.seedErr
}

// buildRNG is the construction-time source. It uses a stream no sample
// index can reach.
func buildRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, math.MaxUint64))
}

// dataPath resolves a source folder against the data root and makes it
// absolute, so the local store leaves the walked paths alone.
func dataPath(cfg appconfig.Config, p string) (string, error) {
	if p == "" || storage.IsS3(p) {
		return p, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(cfg.DataRoot, p)
	}
	return filepath.Abs(p)
}
