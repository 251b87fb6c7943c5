package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrImageNotFound is returned by Resolve when the repository has no object at the path.
var ErrImageNotFound = errors.New("image not found")

// Resolver maps a requested image path to its source bytes.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) Resolve(ctx context.Context, sourcePath string) ([]byte, error) {
	ok, err := r.repo.Exists(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, sourcePath)
	}

	b, err := r.repo.ReadAll(ctx, sourcePath)
	if errors.Is(err, ErrNotExist) {
		// removed between Exists and ReadAll
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, sourcePath)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List returns the names of the images available at the repository root.
func (r *Resolver) List(ctx context.Context) ([]string, error) {
	return r.repo.List(ctx)
}
