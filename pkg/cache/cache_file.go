package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

var cacheManifestSuffix = ".json"

// CacheManifest is stored next to every cached file.
type CacheManifest struct {
	Key       string
	SizeBytes int64
	CacheDate time.Time
	ExpiresAt time.Time `json:",omitempty"`
}

// FileStore keeps entries as files under CacheDirectory, each with a JSON manifest.
type FileStore struct {
	CacheDirectory string

	now func() time.Time
}

var _ Store = &FileStore{}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{CacheDirectory: dir, now: time.Now}, nil
}

// KeyToCacheName returns the relative file name for a key. Files are spread
// over subdirectories by the first byte of the key hash.
func KeyToCacheName(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(name[:2], name)
}

func (c *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	filePath := filepath.Join(c.CacheDirectory, KeyToCacheName(key))

	manifest, err := c.getManifestOrNilOnMiss(filePath)
	if err != nil {
		return nil, false, err
	}
	if manifest == nil || manifest.Key != key {
		return nil, false, nil
	}
	if !manifest.ExpiresAt.IsZero() && !c.clock().Before(manifest.ExpiresAt) {
		_ = os.Remove(filePath)
		_ = os.Remove(filePath + cacheManifestSuffix)
		return nil, false, nil
	}

	value, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set writes the value to a temporary file first and renames it into place, so
// readers never see a partial file.
func (c *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	filePath := filepath.Join(c.CacheDirectory, KeyToCacheName(key))
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	if err := c.writeAtomic(filePath, value); err != nil {
		return err
	}

	now := c.clock()
	manifest := &CacheManifest{
		Key:       key,
		SizeBytes: int64(len(value)),
		CacheDate: now,
	}
	if ttl > 0 {
		manifest.ExpiresAt = now.Add(ttl)
	}
	manifestJson, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return c.writeAtomic(filePath+cacheManifestSuffix, manifestJson)
}

func (c *FileStore) Close() error {
	return nil
}

func (c *FileStore) writeAtomic(path string, contents []byte) error {
	file, err := os.CreateTemp(c.CacheDirectory, "tmp-")
	if err != nil {
		return err
	}
	if _, err := file.Write(contents); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return err
	}
	return os.Rename(file.Name(), path)
}

func (c *FileStore) getManifestOrNilOnMiss(cacheFilePath string) (*CacheManifest, error) {
	manifestJson, err := os.ReadFile(cacheFilePath + cacheManifestSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	manifest := &CacheManifest{}
	if err := json.Unmarshal(manifestJson, manifest); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (c *FileStore) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
