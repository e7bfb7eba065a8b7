package ecs

import (
	"errors"

	"go.uber.org/zap"
)

var (
	ErrCycle       = errors.New("ecs: reparent would create a cycle")
	ErrDestroyed   = errors.New("ecs: entity destroyed")
	ErrNotInWorld  = errors.New("ecs: entity belongs to another world")
	ErrAttached    = errors.New("ecs: component already attached")
	ErrNilArgument = errors.New("ecs: nil argument")
)

// Entity is a named node in the world's tree. It owns its components and its
// children; the parent pointer is a back reference only.
type Entity struct {
	id    EntityID
	world *World
	name  string
	tag   string
	layer int

	parent   *Entity
	children []*Entity

	components []Component
	byKind     map[string][]Component
	transform  *Transform

	disabled bool
	marked   bool // queued for destruction
	disposed bool
	scripted bool
}

func (e *Entity) ID() EntityID     { return e.id }
func (e *Entity) World() *World    { return e.world }
func (e *Entity) Name() string     { return e.name }
func (e *Entity) SetName(n string) { e.name = n }
func (e *Entity) Tag() string      { return e.tag }
func (e *Entity) SetTag(t string)  { e.tag = t }
func (e *Entity) Layer() int       { return e.layer }
func (e *Entity) SetLayer(l int)   { e.layer = l }
func (e *Entity) Parent() *Entity  { return e.parent }

// Transform is never nil for a live entity.
func (e *Entity) Transform() *Transform { return e.transform }

// Scripted reports whether the entity was created while a script run was
// active; such entities are removed when the run stops.
func (e *Entity) Scripted() bool { return e.scripted }

// Children returns the ordered children. Callers must not mutate the slice.
func (e *Entity) Children() []*Entity { return e.children }

func (e *Entity) ChildCount() int { return len(e.children) }

// ChildIndex returns the position of c among e's children, or -1.
func (e *Entity) ChildIndex(c *Entity) int {
	for i, ch := range e.children {
		if ch == c {
			return i
		}
	}
	return -1
}

func (e *Entity) Enabled() bool     { return !e.disabled }
func (e *Entity) SetEnabled(v bool) { e.disabled = !v }

// IsDestroyed is true once the entity was marked or removed.
func (e *Entity) IsDestroyed() bool { return e.marked || e.disposed }

// ActiveInHierarchy is true when the entity and every ancestor are enabled
// and none of them is marked for destruction.
func (e *Entity) ActiveInHierarchy() bool {
	for n := e; n != nil; n = n.parent {
		if n.disabled || n.marked || n.disposed {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether e appears on the parent chain of other.
func (e *Entity) IsAncestorOf(other *Entity) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == e {
			return true
		}
	}
	return false
}

// Path returns the slash-joined names from the root to e.
func (e *Entity) Path() string {
	if e.parent == nil {
		return e.name
	}
	return e.parent.Path() + "/" + e.name
}

// AddComponent attaches c. Adding a second Transform returns the existing one.
func (e *Entity) AddComponent(c Component) (Component, error) {
	if c == nil {
		return nil, ErrNilArgument
	}
	if e.disposed || e.marked {
		e.world.log.Warn("add component to destroyed entity ignored",
			zap.String("src", "World"), zap.String("entity", e.name), zap.String("kind", c.Kind()))
		return nil, ErrDestroyed
	}
	b := c.base()
	if b.entity != nil {
		return nil, ErrAttached
	}
	if _, ok := c.(*Transform); ok && e.transform != nil {
		return e.transform, nil
	}
	e.attach(c)
	e.world.emitStructure("component", e)
	return c, nil
}

func (e *Entity) attach(c Component) {
	b := c.base()
	b.entity = e
	b.removed = false
	e.components = append(e.components, c)
	if e.byKind == nil {
		e.byKind = make(map[string][]Component, 4)
	}
	k := c.Kind()
	e.byKind[k] = append(e.byKind[k], c)
	if t, ok := c.(*Transform); ok && e.transform == nil {
		e.transform = t
	}
}

// Component returns the first attached component of the given kind.
func (e *Entity) Component(kind string) Component {
	for _, c := range e.byKind[kind] {
		if !c.base().removed {
			return c
		}
	}
	return nil
}

// ComponentsOfKind returns every live component of the given kind in
// attachment order.
func (e *Entity) ComponentsOfKind(kind string) []Component {
	var out []Component
	for _, c := range e.byKind[kind] {
		if !c.base().removed {
			out = append(out, c)
		}
	}
	return out
}

// Components returns every live component in attachment order.
func (e *Entity) Components() []Component {
	out := make([]Component, 0, len(e.components))
	for _, c := range e.components {
		if !c.base().removed {
			out = append(out, c)
		}
	}
	return out
}

// RemoveComponent detaches c. During a world update the removal is deferred
// to the end of the frame; the component stops receiving callbacks at once.
// The Transform cannot be removed.
func (e *Entity) RemoveComponent(c Component) bool {
	if c == nil || c.base().entity != e || c.base().removed {
		return false
	}
	if c == Component(e.transform) {
		e.world.log.Warn("transform cannot be removed", zap.String("src", "World"), zap.String("entity", e.name))
		return false
	}
	c.base().removed = true
	if e.world.updating {
		e.world.removeQueue = append(e.world.removeQueue, c)
		return true
	}
	e.world.detachComponent(c)
	e.world.emitStructure("component", e)
	return true
}

// Destroy queues the entity and its subtree for removal at the end of the
// current or next frame.
func (e *Entity) Destroy() { e.world.Destroy(e) }

// SetParent moves e under parent at index; see World.SetParent.
func (e *Entity) SetParent(parent *Entity, index int) error {
	return e.world.SetParent(e, parent, index)
}

// AddChild appends child to e.
func (e *Entity) AddChild(child *Entity) error {
	return e.world.SetParent(child, e, -1)
}
