package component

import (
	"math"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

const KindSprite = "Sprite"

// Sprite draws a texture loaded through its entity's asset loader. A zero
// Size uses the texture's pixel size.
type Sprite struct {
	ecs.Base
	Path         string
	Size         geom.Vec2
	FlipX        bool
	FlipY        bool
	Tint         render.Color
	SortingLayer string
	Order        int

	tex *asset.Texture
}

func NewSprite(path string) *Sprite {
	return &Sprite{Path: path, Tint: render.White}
}

func (s *Sprite) Kind() string { return KindSprite }

// Texture returns the loaded texture, nil when loading failed.
func (s *Sprite) Texture() *asset.Texture { return s.tex }

func (s *Sprite) Awake() {
	w, assets := s.World(), s.Assets()
	if s.Path == "" || w == nil || assets == nil {
		return
	}
	tex, err := assets.LoadTexture(s.Path)
	if err != nil {
		w.Log().Debug("sprite without texture", zap.String("src", "Asset"), zap.String("path", s.Path))
		return
	}
	s.tex = tex
}

func (s *Sprite) OnDestroy() { s.tex = nil }

func (s *Sprite) size() geom.Vec2 {
	if s.Size.X != 0 || s.Size.Y != 0 {
		return s.Size
	}
	if s.tex == nil {
		return geom.Vec2{}
	}
	w, h := s.tex.Size()
	return geom.Vec2{X: float64(w), Y: float64(h)}
}

func (s *Sprite) bounds() (geom.Rect, float64) {
	t := s.Transform()
	sz := s.size()
	if t == nil {
		return geom.RectAround(geom.Vec2{}, sz.X, sz.Y), 0
	}
	sc := t.WorldScale()
	return geom.RectAround(t.WorldPosition(), sz.X*math.Abs(sc.X), sz.Y*math.Abs(sc.Y)), t.WorldRotation()
}

func (s *Sprite) SortKey() ecs.SortKey {
	return ecs.SortKey{Layer: resolveLayer(s.World(), s.SortingLayer), Order: s.Order}
}

func (s *Sprite) Render(b render.Batch, cam *render.Camera) {
	if s.tex == nil || s.tex.Disposed() {
		return
	}
	r, rot := s.bounds()
	flipX := s.FlipX
	if t := s.Transform(); t != nil && t.FaceDir < 0 {
		flipX = !flipX
	}
	b.DrawTexture(s.tex, r, rot, flipX, s.FlipY, s.Tint, s.SortKey().Layer)
}

func (s *Sprite) Contains(p geom.Vec2) bool {
	if s.tex == nil {
		return false
	}
	r, rot := s.bounds()
	return r.ContainsRotated(p, rot)
}

func (s *Sprite) DescribeProperties() []ecs.Property {
	return []ecs.Property{
		ecs.StringProp("path", &s.Path),
		ecs.Vec2Prop("size", &s.Size),
		ecs.BoolProp("flipX", &s.FlipX),
		ecs.BoolProp("flipY", &s.FlipY),
		ecs.ColorProp("tint", &s.Tint),
		ecs.StringProp("sortingLayer", &s.SortingLayer),
		ecs.IntProp("order", &s.Order),
	}
}
