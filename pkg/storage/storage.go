package storage

import (
	"context"
	"errors"
)

// ErrNotExist is returned by ReadAll when nothing is stored at the path.
var ErrNotExist = errors.New("object does not exist")

// Repository is a read-only view of the source images under a configured root.
// Paths are relative to that root.
type Repository interface {
	Exists(ctx context.Context, path string) (bool, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
	// List returns the sorted names of the files directly under the root.
	List(ctx context.Context) ([]string, error)
}
