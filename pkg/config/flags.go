package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags defines the command-line overrides. Only flags set explicitly
// are applied by ApplyFlags, so defaults never mask values from the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen", "", "Address to listen on, e.g. :3000")
	fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.String("image-root", "", "Directory with source images (fs storage)")
	fs.String("storage", "", "Storage backend: fs or s3")
	fs.String("s3-bucket", "", "S3 bucket with source images")
	fs.String("s3-prefix", "", "Key prefix of source images in the bucket")
	fs.String("cache", "", "Cache backend: redis, memory, file, s3 or none")
	fs.String("redis-url", "", "Redis URL for the redis cache backend")
	fs.String("cache-dir", "", "Directory for the file cache backend")
	fs.Int("cache-ttl", 0, "Cache TTL in seconds")
	fs.Bool("cache-parameterized", true, "Include transform parameters in cache keys")
	fs.Int("max-width", 0, "Maximum requested width")
	fs.Int("max-height", 0, "Maximum requested height")
}

func ApplyFlags(fs *pflag.FlagSet, c *Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"listen", &c.Listen},
		{"log-level", &c.LogLevel},
		{"image-root", &c.Storage.Root},
		{"storage", &c.Storage.Backend},
		{"s3-bucket", &c.Storage.S3.Bucket},
		{"s3-prefix", &c.Storage.S3.Prefix},
		{"cache", &c.Cache.Backend},
		{"redis-url", &c.Cache.Redis.URL},
		{"cache-dir", &c.Cache.File.Directory},
	}
	for _, f := range strs {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"cache-ttl", &c.Cache.TTLSeconds},
		{"max-width", &c.Images.MaxWidth},
		{"max-height", &c.Images.MaxHeight},
	}
	for _, f := range ints {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := fs.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if fs.Changed("cache-parameterized") {
		v, err := fs.GetBool("cache-parameterized")
		if err != nil {
			return err
		}
		c.Cache.Parameterized = v
	}
	return nil
}
