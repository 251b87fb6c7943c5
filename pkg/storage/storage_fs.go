package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/spf13/afero"
)

var _ Repository = &FSRepository{}

// FSRepository reads images from a directory. Any afero filesystem works, which
// lets tests use an in-memory one.
type FSRepository struct {
	fs afero.Fs
}

// NewFSRepository serves the files under root on the OS filesystem.
func NewFSRepository(root string) *FSRepository {
	return NewFSRepositoryFromFs(afero.NewBasePathFs(afero.NewOsFs(), root))
}

func NewFSRepositoryFromFs(fsys afero.Fs) *FSRepository {
	return &FSRepository{fs: fsys}
}

// Exists reports whether a regular file is stored at path. Paths escaping the
// root are reported as missing.
func (r *FSRepository) Exists(_ context.Context, path string) (bool, error) {
	info, err := r.fs.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

func (r *FSRepository) ReadAll(_ context.Context, path string) ([]byte, error) {
	b, err := afero.ReadFile(r.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return b, nil
}

func (r *FSRepository) List(_ context.Context) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
