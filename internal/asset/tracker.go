package asset

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Tracker records every disposable resource loaded on behalf of running
// script code and releases them in one sweep on stop or reload.
// Entries are kept in insertion order; loading the same path twice yields
// two independent entries.
type Tracker struct {
	log      *zap.Logger
	resolver *Resolver

	mu    sync.Mutex
	items []Disposable
}

func NewTracker(resolver *Resolver, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewResolver("")
	}
	return &Tracker{log: log, resolver: resolver}
}

// SetResolver re-roots subsequent loads, e.g. when another project is opened.
func (t *Tracker) SetResolver(r *Resolver) {
	t.mu.Lock()
	t.resolver = r
	t.mu.Unlock()
}

func (t *Tracker) Resolver() *Resolver {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolver
}

// LoadTexture resolves path against the asset root, decodes it and tracks
// the result. A missing or undecodable file is logged and returned as a
// *LoadError with a nil texture; nothing is tracked in that case.
func (t *Tracker) LoadTexture(path string) (*Texture, error) {
	full, err := t.Resolver().Resolve(path)
	if err != nil {
		t.log.Warn("texture not loaded", zap.String("src", "Asset"), zap.String("path", path), zap.Error(err))
		return nil, &LoadError{Path: path, Err: err}
	}
	tex, err := DecodeTexture(full, path)
	if err != nil {
		t.log.Warn("texture not loaded", zap.String("src", "Asset"), zap.String("path", path), zap.Error(err))
		return nil, &LoadError{Path: path, Err: err}
	}
	t.Track(tex)
	t.log.Debug("texture loaded", zap.String("src", "Asset"), zap.String("path", path))
	return tex, nil
}

// Exists reports whether path resolves to a file under the asset root.
func (t *Tracker) Exists(path string) bool {
	return t.Resolver().Exists(path)
}

// Track adds d to the registry.
func (t *Tracker) Track(d Disposable) {
	if d == nil {
		return
	}
	t.mu.Lock()
	t.items = append(t.items, d)
	t.mu.Unlock()
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// DisposeAll releases every tracked resource in insertion order and clears
// the registry. A failing or panicking resource is logged and skipped.
// It returns how many resources released without error.
func (t *Tracker) DisposeAll() int {
	t.mu.Lock()
	items := t.items
	t.items = nil
	t.mu.Unlock()

	ok := 0
	for i, d := range items {
		if err := safeDispose(d); err != nil {
			t.log.Warn("dispose failed", zap.String("src", "Asset"), zap.Int("index", i), zap.Error(err))
			continue
		}
		ok++
	}
	if len(items) > 0 {
		t.log.Info("resources released", zap.String("src", "Asset"),
			zap.Int("released", ok), zap.Int("failed", len(items)-ok))
	}
	return ok
}

func safeDispose(d Disposable) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Dispose()
}
