package ecs

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// Assets is the loader components reach through their world.
type Assets interface {
	LoadTexture(path string) (*asset.Texture, error)
	Exists(path string) bool
	Track(d asset.Disposable)
}

// FaultHandler receives errors raised by component callbacks. The component
// has already been disabled when the handler runs.
type FaultHandler func(c Component, hook string, err error)

// Releaser is implemented by loaders that can drop everything they loaded.
type Releaser interface {
	DisposeAll() int
}

// Options configures a World. Every field is optional.
type Options struct {
	Log    *zap.Logger
	Bus    *event.Bus
	Assets Assets
	// SceneAssets serves components of entities no script owns. Reset
	// releases it when it is a Releaser. Nil falls back to Assets.
	SceneAssets   Assets
	SortingLayers []string // name → index by position
}

// World is the top-level container. It owns the entity pool, the root list,
// and the deferred destruction queues flushed at the end of every Update.
type World struct {
	log         *zap.Logger
	bus         *event.Bus
	assets      Assets
	sceneAssets Assets

	pool     *EntityPool
	entities map[EntityID]*Entity
	roots    []*Entity

	destroyQueue []*Entity
	removeQueue  []Component

	updating    bool
	scriptScope int
	onFault     FaultHandler

	totalTime float64
	delta     float64
	unscaled  float64
	timeScale float64
	paused    bool
	frame     uint64

	selected EntityID
	layers   map[string]int
	layerSeq []string

	order     []*Entity
	renderBuf []renderItem
}

type renderItem struct {
	c   Component
	r   Renderable
	key SortKey
}

func NewWorld(opts Options) *World {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	w := &World{
		log:          log,
		bus:          opts.Bus,
		assets:       opts.Assets,
		sceneAssets:  opts.SceneAssets,
		pool:         NewEntityPool(),
		entities:     make(map[EntityID]*Entity, 256),
		destroyQueue: make([]*Entity, 0, 64),
		timeScale:    1,
		layers:       make(map[string]int),
	}
	for _, name := range opts.SortingLayers {
		w.AddSortingLayer(name)
	}
	return w
}

func (w *World) Log() *zap.Logger   { return w.log }
func (w *World) Bus() *event.Bus    { return w.bus }
func (w *World) Assets() Assets     { return w.assets }
func (w *World) Count() int         { return w.pool.Live() }
func (w *World) Frame() uint64      { return w.frame }
func (w *World) Updating() bool     { return w.updating }
func (w *World) TotalTime() float64 { return w.totalTime }

// SetAssets swaps the loader used by components created from now on.
func (w *World) SetAssets(a Assets) { w.assets = a }

// AssetsFor returns the loader for components of e: the script loader for
// script-owned entities, the scene loader otherwise.
func (w *World) AssetsFor(e *Entity) Assets {
	if e != nil && !e.scripted && w.sceneAssets != nil {
		return w.sceneAssets
	}
	return w.assets
}

// OnFault installs the handler for component callback failures.
func (w *World) OnFault(h FaultHandler) { w.onFault = h }

// Delta is the scaled delta of the last Update, zero while paused.
func (w *World) Delta() float64 { return w.delta }

// UnscaledDelta is the raw delta passed to the last Update.
func (w *World) UnscaledDelta() float64 { return w.unscaled }

func (w *World) TimeScale() float64 { return w.timeScale }

// SetTimeScale multiplies every subsequent delta. Negative values clamp to 0.
func (w *World) SetTimeScale(s float64) {
	if s < 0 {
		s = 0
	}
	w.timeScale = s
}

func (w *World) Paused() bool     { return w.paused }
func (w *World) SetPaused(p bool) { w.paused = p }

// AddSortingLayer registers name after the existing layers and returns its
// index. "Default" is always index 0.
func (w *World) AddSortingLayer(name string) int {
	if name == "" || name == "Default" {
		return 0
	}
	if i, ok := w.layers[name]; ok {
		return i
	}
	w.layerSeq = append(w.layerSeq, name)
	i := len(w.layerSeq)
	w.layers[name] = i
	return i
}

// SortingLayer returns the index of a named sorting layer. Unknown names
// resolve to Default.
func (w *World) SortingLayer(name string) int {
	return w.layers[name]
}

// SortingLayers returns the registered layer names in index order, starting
// with "Default".
func (w *World) SortingLayers() []string {
	return append([]string{"Default"}, w.layerSeq...)
}

// BeginScriptScope marks entities created until the matching EndScriptScope
// as script owned.
func (w *World) BeginScriptScope() { w.scriptScope++ }

func (w *World) EndScriptScope() {
	if w.scriptScope > 0 {
		w.scriptScope--
	}
}

// SceneScope runs fn with the script scope closed, so entities it creates
// are not script-owned even while a script runs.
func (w *World) SceneScope(fn func()) {
	saved := w.scriptScope
	w.scriptScope = 0
	defer func() { w.scriptScope = saved }()
	fn()
}

// CreateEntity adds a new root entity with a default Transform.
func (w *World) CreateEntity(name string) *Entity {
	e := &Entity{
		id:       w.pool.Create(),
		world:    w,
		name:     name,
		scripted: w.scriptScope > 0,
	}
	e.attach(NewTransform())
	w.entities[e.id] = e
	w.roots = append(w.roots, e)
	w.emitStructure("create", e)
	return e
}

// Get resolves an id to a live entity. Ids of destroyed entities stay
// invalid after their index is reused.
func (w *World) Get(id EntityID) (*Entity, bool) {
	if !w.pool.Alive(id) {
		return nil, false
	}
	e, ok := w.entities[id]
	if !ok || e.IsDestroyed() {
		return nil, false
	}
	return e, true
}

// Roots returns the ordered root entities. Callers must not mutate the slice.
func (w *World) Roots() []*Entity { return w.roots }

// Walk visits every live entity in pre-order. Returning false from fn skips
// the entity's subtree.
func (w *World) Walk(fn func(e *Entity) bool) {
	for _, r := range w.roots {
		walk(r, fn)
	}
}

func walk(e *Entity, fn func(*Entity) bool) {
	if e.IsDestroyed() {
		return
	}
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		walk(c, fn)
	}
}

// Find returns the first live entity with the given name in pre-order.
func (w *World) Find(name string) *Entity {
	var found *Entity
	w.Walk(func(e *Entity) bool {
		if found != nil {
			return false
		}
		if e.name == name {
			found = e
			return false
		}
		return true
	})
	return found
}

// FindByTag returns every live entity carrying tag, in pre-order.
func (w *World) FindByTag(tag string) []*Entity {
	var out []*Entity
	w.Walk(func(e *Entity) bool {
		if e.tag == tag {
			out = append(out, e)
		}
		return true
	})
	return out
}

// SetParent moves e under parent at index. A nil parent makes e a root; a
// negative or out-of-range index appends. Moving an entity under itself or
// one of its descendants returns ErrCycle and leaves the tree untouched.
func (w *World) SetParent(e, parent *Entity, index int) error {
	if e == nil {
		return ErrNilArgument
	}
	if e.world != w || (parent != nil && parent.world != w) {
		return ErrNotInWorld
	}
	if e.IsDestroyed() || (parent != nil && parent.IsDestroyed()) {
		w.log.Warn("reparent of destroyed entity ignored", zap.String("src", "World"), zap.String("entity", e.name))
		return ErrDestroyed
	}
	if parent != nil && (parent == e || e.IsAncestorOf(parent)) {
		w.log.Warn("reparent would create a cycle",
			zap.String("src", "World"), zap.String("entity", e.Path()), zap.String("parent", parent.Path()))
		return ErrCycle
	}

	w.detach(e)
	var list *[]*Entity
	if parent == nil {
		list = &w.roots
	} else {
		list = &parent.children
	}
	e.parent = parent
	*list = insertAt(*list, e, index)
	w.emitStructure("reparent", e)
	return nil
}

func (w *World) detach(e *Entity) {
	if e.parent != nil {
		e.parent.children = removeByPtr(e.parent.children, e)
		e.parent = nil
		return
	}
	w.roots = removeByPtr(w.roots, e)
}

func insertAt(list []*Entity, e *Entity, index int) []*Entity {
	if index < 0 || index >= len(list) {
		return append(list, e)
	}
	list = append(list, nil)
	copy(list[index+1:], list[index:])
	list[index] = e
	return list
}

func removeByPtr(list []*Entity, e *Entity) []*Entity {
	for i, c := range list {
		if c == e {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}

// Destroy marks e and queues it for removal after the current frame. Its
// subtree stops updating and rendering immediately.
func (w *World) Destroy(e *Entity) {
	if e == nil || e.world != w || e.IsDestroyed() {
		return
	}
	e.marked = true
	w.destroyQueue = append(w.destroyQueue, e)
}

// DestroyImmediate removes e and its subtree now. Called during Update it
// degrades to Destroy so that iteration stays valid.
func (w *World) DestroyImmediate(e *Entity) {
	if e == nil || e.world != w || e.disposed {
		return
	}
	if w.updating {
		w.log.Warn("DestroyImmediate during update deferred to end of frame",
			zap.String("src", "World"), zap.String("entity", e.name))
		w.Destroy(e)
		return
	}
	w.destroyTree(e, true)
	w.emitStructure("destroy", e)
}

func (w *World) destroyTree(e *Entity, detach bool) {
	if e.disposed {
		return
	}
	kids := e.children
	e.children = nil
	for i := len(kids) - 1; i >= 0; i-- {
		kids[i].parent = nil
		w.destroyTree(kids[i], false)
	}
	for i := len(e.components) - 1; i >= 0; i-- {
		c := e.components[i]
		b := c.base()
		if b.awake && !b.removed {
			if d, ok := c.(Destroyer); ok {
				w.call(c, "onDestroy", d.OnDestroy)
			}
		}
		b.removed = true
		b.entity = nil
	}
	if detach {
		w.detach(e)
	}
	e.components = nil
	e.byKind = nil
	e.transform = nil
	e.marked = true
	e.disposed = true
	delete(w.entities, e.id)
	w.pool.Destroy(e.id)
	if w.selected == e.id {
		w.selected = 0
		w.emitSelection()
	}
}

func (w *World) detachComponent(c Component) {
	b := c.base()
	e := b.entity
	if e == nil {
		return
	}
	if b.awake {
		if d, ok := c.(Destroyer); ok {
			w.call(c, "onDestroy", d.OnDestroy)
		}
	}
	for i, x := range e.components {
		if x == c {
			e.components = append(e.components[:i], e.components[i+1:]...)
			break
		}
	}
	k := c.Kind()
	list := e.byKind[k]
	for i, x := range list {
		if x == c {
			e.byKind[k] = append(list[:i], list[i+1:]...)
			break
		}
	}
	b.entity = nil
}

// FlushDestroyQueue applies queued component removals and entity
// destructions. Update calls it after the update pass.
func (w *World) FlushDestroyQueue() {
	if len(w.removeQueue) > 0 {
		q := w.removeQueue
		w.removeQueue = nil
		for _, c := range q {
			e := c.base().entity
			w.detachComponent(c)
			if e != nil {
				w.emitStructure("component", e)
			}
		}
	}
	for len(w.destroyQueue) > 0 {
		q := w.destroyQueue
		w.destroyQueue = make([]*Entity, 0, 64)
		for _, e := range q {
			if e.disposed {
				continue
			}
			w.destroyTree(e, true)
			w.emitStructure("destroy", e)
		}
	}
}

// Update advances the world by dt seconds. Every enabled component in an
// active entity is awoken before any component updates; then updates run in
// pre-order over the tree and in attachment order within an entity.
// Entities and components added during the pass start next frame.
func (w *World) Update(dt float64) {
	w.unscaled = dt
	w.frame++
	if w.paused {
		w.delta = 0
		w.FlushDestroyQueue()
		return
	}
	dt *= w.timeScale
	w.delta = dt
	w.totalTime += dt

	w.updating = true
	order := w.order[:0]
	w.Walk(func(e *Entity) bool {
		if e.disabled {
			return false
		}
		order = append(order, e)
		return true
	})

	for _, e := range order {
		n := len(e.components)
		for i := 0; i < n && i < len(e.components); i++ {
			c := e.components[i]
			b := c.base()
			if b.awake || b.disabled || b.removed {
				continue
			}
			w.awaken(c)
		}
	}

	for _, e := range order {
		if !e.ActiveInHierarchy() {
			continue
		}
		n := len(e.components)
		for i := 0; i < n && i < len(e.components); i++ {
			c := e.components[i]
			b := c.base()
			if !b.awake || b.disabled || b.removed {
				continue
			}
			if u, ok := c.(Updatable); ok {
				w.call(c, "update", func() { u.Update(dt) })
			}
		}
	}
	w.updating = false

	for i := range order {
		order[i] = nil
	}
	w.order = order[:0]
	w.FlushDestroyQueue()
}

func (w *World) awaken(c Component) {
	c.base().awake = true
	if a, ok := c.(Awaker); ok {
		w.call(c, "awake", a.Awake)
	}
}

// call runs a component callback, turning a panic into a fault.
func (w *World) call(c Component, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.ReportFault(c, hook, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

// ReportFault disables c and forwards err to the fault handler. Script-backed
// components call it when their callback fails.
func (w *World) ReportFault(c Component, hook string, err error) {
	b := c.base()
	b.disabled = true
	name := ""
	if b.entity != nil {
		name = b.entity.Path()
	}
	w.log.Error("component fault",
		zap.String("src", "World"), zap.String("entity", name),
		zap.String("kind", c.Kind()), zap.String("hook", hook), zap.Error(err))
	if w.onFault != nil {
		w.onFault(c, hook, err)
	}
}

// Render draws every renderable of every active entity visible to cam,
// ordered by sort key. Equal keys keep tree order.
func (w *World) Render(b render.Batch, cam *render.Camera) int {
	items := w.collectRenderables(cam)
	for _, it := range items {
		r := it.r
		w.call(it.c, "render", func() { r.Render(b, cam) })
	}
	n := len(items)
	w.releaseRenderBuf(items)
	return n
}

func (w *World) collectRenderables(cam *render.Camera) []renderItem {
	items := w.renderBuf[:0]
	w.Walk(func(e *Entity) bool {
		if e.disabled {
			return false
		}
		if !cam.Sees(e.layer) {
			return true
		}
		for _, c := range e.components {
			b := c.base()
			if !b.awake || b.disabled || b.removed {
				continue
			}
			if r, ok := c.(Renderable); ok {
				items = append(items, renderItem{c: c, r: r, key: r.SortKey()})
			}
		}
		return true
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].key.Less(items[j].key) })
	return items
}

func (w *World) releaseRenderBuf(items []renderItem) {
	for i := range items {
		items[i] = renderItem{}
	}
	w.renderBuf = items[:0]
}

// Pick returns the topmost entity whose hit-testable component contains p,
// in reverse render order, or nil.
func (w *World) Pick(p geom.Vec2, cam *render.Camera) *Entity {
	items := w.collectRenderables(cam)
	defer w.releaseRenderBuf(items)
	for i := len(items) - 1; i >= 0; i-- {
		if h, ok := items[i].c.(HitTestable); ok && h.Contains(p) {
			return items[i].c.base().entity
		}
	}
	return nil
}

// Select moves the editor selection. A nil entity clears it.
func (w *World) Select(e *Entity) {
	var id EntityID
	if e != nil && !e.IsDestroyed() && e.world == w {
		id = e.id
	}
	if id == w.selected {
		return
	}
	w.selected = id
	w.emitSelection()
}

// Selected returns the selected entity, if it is still alive.
func (w *World) Selected() *Entity {
	if w.selected.IsZero() {
		return nil
	}
	e, _ := w.Get(w.selected)
	return e
}

// ClearScripted destroys every script-owned entity now and returns how many
// top-level subtrees were removed. Scene entities are left untouched, except
// that script-owned children of scene entities go too.
func (w *World) ClearScripted() int {
	var doomed []*Entity
	w.Walk(func(e *Entity) bool {
		if e.scripted {
			doomed = append(doomed, e)
			return false
		}
		return true
	})
	for i := len(doomed) - 1; i >= 0; i-- {
		w.destroyTree(doomed[i], true)
	}
	if len(doomed) > 0 {
		w.emitStructure("clear", nil)
	}
	return len(doomed)
}

// Reset destroys every entity, releases scene assets and zeroes the clock.
// Registered sorting layers survive.
func (w *World) Reset() {
	w.updating = false
	for i := len(w.roots) - 1; i >= 0; i-- {
		w.destroyTree(w.roots[i], true)
	}
	w.roots = w.roots[:0]
	w.destroyQueue = w.destroyQueue[:0]
	w.removeQueue = nil
	w.totalTime = 0
	w.delta = 0
	w.frame = 0
	w.scriptScope = 0
	if r, ok := w.sceneAssets.(Releaser); ok {
		r.DisposeAll()
	}
	if !w.selected.IsZero() {
		w.selected = 0
		w.emitSelection()
	}
	w.emitStructure("reset", nil)
}

func (w *World) emitStructure(reason string, e *Entity) {
	if w.bus == nil {
		return
	}
	var id uint64
	if e != nil {
		id = uint64(e.id)
	}
	event.Emit(w.bus, event.StructureChanged{Reason: reason, Entity: id})
}

func (w *World) emitSelection() {
	if w.bus == nil {
		return
	}
	event.Emit(w.bus, event.SelectionChanged{Entity: uint64(w.selected)})
}
