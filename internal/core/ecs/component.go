package ecs

import (
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// Component is a unit of behaviour or data attached to exactly one Entity.
// Implementations embed Base, which carries the lifecycle state the world
// drives; the world never calls Update on a component it has not awoken.
type Component interface {
	Kind() string
	base() *Base
}

// Base holds the per-component lifecycle state.
type Base struct {
	entity   *Entity
	awake    bool
	disabled bool
	removed  bool
}

func (b *Base) base() *Base { return b }

// Entity returns the owner, or nil once the component was detached.
func (b *Base) Entity() *Entity { return b.entity }

// Transform returns the owner's transform.
func (b *Base) Transform() *Transform {
	if b.entity == nil {
		return nil
	}
	return b.entity.transform
}

// World returns the owner's world.
func (b *Base) World() *World {
	if b.entity == nil {
		return nil
	}
	return b.entity.world
}

// Assets returns the loader matching the owner's ownership, nil when
// detached.
func (b *Base) Assets() Assets {
	if b.entity == nil {
		return nil
	}
	return b.entity.world.AssetsFor(b.entity)
}

func (b *Base) Enabled() bool     { return !b.disabled }
func (b *Base) SetEnabled(v bool) { b.disabled = !v }
func (b *Base) IsAwake() bool     { return b.awake }

// Removed reports whether the component was removed or queued for removal.
func (b *Base) Removed() bool { return b.removed }

// Awaker runs once, before the first Update the component receives.
type Awaker interface {
	Awake()
}

// Updatable receives the scaled frame delta in seconds.
type Updatable interface {
	Update(dt float64)
}

// Destroyer is notified when the component is removed or its entity dies.
type Destroyer interface {
	OnDestroy()
}

// SortKey orders renderables: lower Layer first, then lower Order.
type SortKey struct {
	Layer int
	Order int
}

func (k SortKey) Less(o SortKey) bool {
	if k.Layer != o.Layer {
		return k.Layer < o.Layer
	}
	return k.Order < o.Order
}

// Renderable components draw into the frame's batch.
type Renderable interface {
	SortKey() SortKey
	Render(b render.Batch, cam *render.Camera)
}

// HitTestable components answer point queries in world space.
type HitTestable interface {
	Contains(p geom.Vec2) bool
}

// EntityOf returns the entity c is attached to, or nil.
func EntityOf(c Component) *Entity {
	if c == nil {
		return nil
	}
	return c.base().entity
}
