package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StorageFS = "fs"
	StorageS3 = "s3"

	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheS3     = "s3"
	CacheNone   = "none"
)

type Config struct {
	Listen   string        `yaml:"listen"`
	LogLevel string        `yaml:"log_level"`
	Images   ImagesConfig  `yaml:"images"`
	Storage  StorageConfig `yaml:"storage"`
	Cache    CacheConfig   `yaml:"cache"`
}

type ImagesConfig struct {
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
	PageSize  int `yaml:"page_size"`
}

type StorageConfig struct {
	Backend string   `yaml:"backend"`
	Root    string   `yaml:"root"` // image root for the fs backend
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type CacheConfig struct {
	Backend string `yaml:"backend"`

	// Parameterized includes transform parameters in cache keys. When off, one
	// variant per path is cached.
	Parameterized bool         `yaml:"parameterized"`
	TTLSeconds    int          `yaml:"ttl"`
	SingleFlight  bool         `yaml:"singleflight"`
	Redis         RedisConfig  `yaml:"redis"`
	Memory        MemoryConfig `yaml:"memory"`
	File          FileConfig   `yaml:"file"`
	S3            S3Config     `yaml:"s3"`
}

type RedisConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type MemoryConfig struct {
	Size int `yaml:"size"` // max entries
}

type FileConfig struct {
	Directory string `yaml:"directory"`
}

func Default() *Config {
	return &Config{
		Listen:   ":3000",
		LogLevel: "info",
		Images: ImagesConfig{
			MaxWidth:  2000,
			MaxHeight: 2000,
			PageSize:  20,
		},
		Storage: StorageConfig{
			Backend: StorageFS,
			Root:    "media/images",
		},
		Cache: CacheConfig{
			Backend:       CacheMemory,
			Parameterized: true,
			TTLSeconds:    3600,
			SingleFlight:  true,
			Redis: RedisConfig{
				URL:     "redis://redis:6379/1",
				Timeout: time.Second,
			},
			Memory: MemoryConfig{Size: 1024},
			File:   FileConfig{Directory: "/tmp/image-cache"},
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if any) and
// then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse overlays YAML onto the defaults; unknown keys are rejected.
func Parse(b []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv overlays the PORT, IMAGE_* and REDIS_URL environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Listen = ":" + v
	}
	if v, ok := lookup("IMAGE_ROOT"); ok && v != "" {
		c.Storage.Root = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Cache.Redis.URL = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"IMAGE_MAX_WIDTH", &c.Images.MaxWidth},
		{"IMAGE_MAX_HEIGHT", &c.Images.MaxHeight},
		{"IMAGE_CACHE_TTL", &c.Cache.TTLSeconds},
	}
	for _, e := range ints {
		v, ok := lookup(e.name)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.name, v, err)
		}
		*e.dst = n
	}

	if v, ok := lookup("IMAGE_CACHE_PROCESSED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid IMAGE_CACHE_PROCESSED %q: %w", v, err)
		}
		c.Cache.Parameterized = b
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Images.MaxWidth <= 0 || c.Images.MaxHeight <= 0 {
		errs = append(errs, errors.New("images.max_width and images.max_height must be positive"))
	}
	if c.Images.PageSize <= 0 {
		errs = append(errs, errors.New("images.page_size must be positive"))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	switch c.Storage.Backend {
	case StorageFS:
		if c.Storage.Root == "" {
			errs = append(errs, errors.New("storage.root is required for the fs backend"))
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	switch c.Cache.Backend {
	case CacheRedis:
		if c.Cache.Redis.URL == "" {
			errs = append(errs, errors.New("cache.redis.url is required for the redis backend"))
		}
	case CacheMemory:
		if c.Cache.Memory.Size <= 0 {
			errs = append(errs, errors.New("cache.memory.size must be positive"))
		}
	case CacheFile:
		if c.Cache.File.Directory == "" {
			errs = append(errs, errors.New("cache.file.directory is required for the file backend"))
		}
	case CacheS3:
		if c.Cache.S3.Bucket == "" {
			errs = append(errs, errors.New("cache.s3.bucket is required for the s3 backend"))
		}
	case CacheNone:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	return errors.Join(errs...)
}

func (c *Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
