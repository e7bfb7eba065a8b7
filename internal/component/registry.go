// Package component holds the built-in components and the kind registry the
// scene loader and script bindings instantiate them through.
package component

import (
	"fmt"
	"sort"

	"github.com/goldsprite/gdengine/internal/core/ecs"
)

// Factory returns a fresh, unattached component.
type Factory func() ecs.Component

// Registry maps kind names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory, 8)}
	r.Register(ecs.KindTransform, func() ecs.Component { return ecs.NewTransform() })
	r.Register(KindShape, func() ecs.Component { return NewShape() })
	r.Register(KindRotor, func() ecs.Component { return NewRotor(0) })
	r.Register(KindSprite, func() ecs.Component { return NewSprite("") })
	r.Register(KindTween, func() ecs.Component { return NewTween("x", 0, 0, 1) })
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// New instantiates kind.
func (r *Registry) New(kind string) (ecs.Component, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("component kind %q not registered", kind)
	}
	return f(), nil
}

func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kind names sorted.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
