// Package asset resolves project-relative asset paths and tracks every
// disposable resource a running script acquires.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotFound    = errors.New("asset: not found")
	ErrOutsideRoot = errors.New("asset: path escapes asset root")
	ErrNoRoot      = errors.New("asset: no asset root")
)

// LoadError reports a failed load. It is always non-fatal.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Resolver maps relative asset paths onto the active project's asset
// directory. It never looks next to the engine executable.
type Resolver struct {
	root string
}

func NewResolver(root string) *Resolver {
	return &Resolver{root: root}
}

func (r *Resolver) Root() string { return r.root }

// Resolve returns the absolute file path for rel. Absolute paths and paths
// climbing out of the root are rejected.
func (r *Resolver) Resolve(rel string) (string, error) {
	if r.root == "" {
		return "", ErrNoRoot
	}
	clean := filepath.FromSlash(rel)
	if !filepath.IsLocal(clean) {
		return "", ErrOutsideRoot
	}
	full := filepath.Join(r.root, clean)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	if info.IsDir() {
		return "", ErrNotFound
	}
	return full, nil
}

// Exists reports whether rel resolves to a regular file.
func (r *Resolver) Exists(rel string) bool {
	_, err := r.Resolve(rel)
	return err == nil
}
