package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/project"
	"github.com/goldsprite/gdengine/internal/render"
)

// Codec converts between live entity trees and Documents. Components are
// encoded through their described properties; components without a
// registered kind (script behaviours) are runtime-only and skipped.
type Codec struct {
	reg *component.Registry
	log *zap.Logger

	// IncludeScripted also encodes entities created by a running script.
	IncludeScripted bool
}

func NewCodec(reg *component.Registry, log *zap.Logger) *Codec {
	if reg == nil {
		reg = component.NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Codec{reg: reg, log: log}
}

// Encode snapshots the world's live tree.
func (c *Codec) Encode(w *ecs.World) *Document {
	doc := &Document{}
	for _, r := range w.Roots() {
		if ed, ok := c.encodeEntity(r); ok {
			doc.Entities = append(doc.Entities, ed)
		}
	}
	return doc
}

func (c *Codec) encodeEntity(e *ecs.Entity) (EntityDoc, bool) {
	if e.IsDestroyed() || (e.Scripted() && !c.IncludeScripted) {
		return EntityDoc{}, false
	}
	ed := EntityDoc{Name: e.Name(), Tag: e.Tag(), Layer: e.Layer(), Disabled: !e.Enabled()}
	for _, comp := range e.Components() {
		if !c.reg.Has(comp.Kind()) {
			continue
		}
		d, ok := comp.(ecs.Describer)
		if !ok {
			continue
		}
		cd := ComponentDoc{Kind: comp.Kind(), Fields: make(map[string]any)}
		for _, p := range d.DescribeProperties() {
			if p.Access == ecs.ReadOnly {
				continue
			}
			cd.Fields[p.Name] = encodeValue(p.Type, p.Get())
		}
		ed.Components = append(ed.Components, cd)
	}
	for _, ch := range e.Children() {
		if cd, ok := c.encodeEntity(ch); ok {
			ed.Children = append(ed.Children, cd)
		}
	}
	return ed, true
}

func encodeValue(t ecs.PropType, v any) any {
	switch t {
	case ecs.PropVec2:
		p := v.(geom.Vec2)
		return []float64{p.X, p.Y}
	case ecs.PropColor:
		return v.(render.Color).Hex()
	}
	return v
}

// Decode instantiates doc under parent (nil for roots) and returns the
// created top-level entities. Unknown kinds and bad fields are logged and
// skipped; the rest of the document still loads.
func (c *Codec) Decode(doc *Document, w *ecs.World, parent *ecs.Entity) ([]*ecs.Entity, error) {
	var out []*ecs.Entity
	var errs []error
	for i := range doc.Entities {
		e, err := c.decodeEntity(&doc.Entities[i], w, parent)
		if err != nil {
			errs = append(errs, err)
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, errors.Join(errs...)
}

func (c *Codec) decodeEntity(ed *EntityDoc, w *ecs.World, parent *ecs.Entity) (*ecs.Entity, error) {
	e := w.CreateEntity(ed.Name)
	e.SetTag(ed.Tag)
	e.SetLayer(ed.Layer)
	e.SetEnabled(!ed.Disabled)
	if parent != nil {
		if err := e.SetParent(parent, -1); err != nil {
			w.DestroyImmediate(e)
			return nil, fmt.Errorf("entity %q: %w", ed.Name, err)
		}
	}
	for _, cd := range ed.Components {
		var comp ecs.Component
		if cd.Kind == ecs.KindTransform {
			comp = e.Transform()
		} else {
			var err error
			comp, err = c.reg.New(cd.Kind)
			if err != nil {
				c.log.Warn("scene component skipped", zap.String("src", "World"),
					zap.String("entity", e.Path()), zap.String("kind", cd.Kind), zap.Error(err))
				continue
			}
		}
		c.applyFields(e, comp, cd.Fields)
		if comp != ecs.Component(e.Transform()) {
			if _, err := e.AddComponent(comp); err != nil {
				c.log.Warn("scene component not attached", zap.String("src", "World"),
					zap.String("entity", e.Path()), zap.String("kind", cd.Kind), zap.Error(err))
			}
		}
	}
	var errs []error
	for i := range ed.Children {
		if _, err := c.decodeEntity(&ed.Children[i], w, e); err != nil {
			errs = append(errs, err)
		}
	}
	return e, errors.Join(errs...)
}

func (c *Codec) applyFields(e *ecs.Entity, comp ecs.Component, fields map[string]any) {
	d, ok := comp.(ecs.Describer)
	if !ok {
		return
	}
	for _, p := range d.DescribeProperties() {
		raw, ok := fields[p.Name]
		if !ok || p.Access == ecs.ReadOnly || p.Set == nil {
			continue
		}
		v, err := decodeValue(p.Type, raw)
		if err == nil {
			err = p.Set(v)
		}
		if err != nil {
			c.log.Warn("scene field skipped", zap.String("src", "World"),
				zap.String("entity", e.Path()), zap.String("kind", comp.Kind()),
				zap.String("field", p.Name), zap.Error(err))
		}
	}
}

func decodeValue(t ecs.PropType, raw any) (any, error) {
	switch t {
	case ecs.PropFloat:
		return toFloat(raw)
	case ecs.PropInt:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("want integer, got %v", raw)
		}
		return int(f), nil
	case ecs.PropBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", raw)
		}
		return b, nil
	case ecs.PropString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", raw)
		}
		return s, nil
	case ecs.PropVec2:
		return toVec2(raw)
	case ecs.PropColor:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("want color string, got %T", raw)
		}
		return render.ParseColor(s)
	}
	return nil, fmt.Errorf("unsupported property type %s", t)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("want number, got %T", raw)
}

func toVec2(raw any) (geom.Vec2, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 2 {
			return geom.Vec2{}, fmt.Errorf("want [x, y], got %d values", len(v))
		}
		x, err := toFloat(v[0])
		if err != nil {
			return geom.Vec2{}, err
		}
		y, err := toFloat(v[1])
		if err != nil {
			return geom.Vec2{}, err
		}
		return geom.Vec2{X: x, Y: y}, nil
	case []float64:
		if len(v) != 2 {
			return geom.Vec2{}, fmt.Errorf("want [x, y], got %d values", len(v))
		}
		return geom.Vec2{X: v[0], Y: v[1]}, nil
	case map[string]any:
		x, err := toFloat(v["x"])
		if err != nil {
			return geom.Vec2{}, err
		}
		y, err := toFloat(v["y"])
		if err != nil {
			return geom.Vec2{}, err
		}
		return geom.Vec2{X: x, Y: y}, nil
	}
	return geom.Vec2{}, fmt.Errorf("want vec2, got %T", raw)
}

// Marshal encodes the world as YAML.
func (c *Codec) Marshal(w *ecs.World) ([]byte, error) {
	return yaml.Marshal(c.Encode(w))
}

// Parse decodes a YAML scene document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("scene: parse: %w", err)
	}
	return &doc, nil
}

// Save writes the world's scene document to path.
func (c *Codec) Save(path string, w *ecs.World) error {
	raw, err := c.Marshal(w)
	if err != nil {
		return fmt.Errorf("scene: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("scene: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("scene: write %s: %w", path, err)
	}
	return nil
}

// Load reads path into w. With replace set the world is reset first; otherwise
// the scene's roots are appended to the existing ones.
func (c *Codec) Load(path string, w *ecs.World, replace bool) ([]*ecs.Entity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	return c.LoadBytes(raw, w, replace, path)
}

// LoadBytes is Load for an in-memory document; source only labels the log
// line. Loaded entities are never script-owned.
func (c *Codec) LoadBytes(raw []byte, w *ecs.World, replace bool, source string) ([]*ecs.Entity, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if replace {
		w.Reset()
	}
	var roots []*ecs.Entity
	w.SceneScope(func() {
		roots, err = c.Decode(doc, w, nil)
	})
	c.log.Info("scene loaded", zap.String("src", "World"), zap.String("source", source),
		zap.Int("roots", len(roots)), zap.Int("entities", doc.Count()))
	return roots, err
}

// Open replaces the world with p's start scene. A project without a scene,
// or whose scene file does not exist yet, opens empty.
func (c *Codec) Open(p *project.Project, w *ecs.World) ([]*ecs.Entity, error) {
	w.Reset()
	path := p.ScenePath()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c.log.Info("scene not found, starting empty", zap.String("src", "World"), zap.String("path", path))
		return nil, nil
	}
	return c.Load(path, w, false)
}
