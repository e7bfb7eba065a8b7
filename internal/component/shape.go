package component

import (
	"math"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

const KindShape = "Shape"

// Shape outlines.
const (
	ShapeRect    = "rect"
	ShapeLine    = "line"
	ShapePolygon = "polygon"
)

// Shape draws a rectangle, a line or a regular polygon at its entity's
// transform. Size is (w, h) for rect, the end offset for line and
// (radius, _) for polygon.
type Shape struct {
	ecs.Base
	Outline      string
	Size         geom.Vec2
	Offset       geom.Vec2
	Sides        int
	LineWidth    float64
	Color        render.Color
	Filled       bool
	SortingLayer string
	Order        int
}

func NewShape() *Shape {
	return &Shape{
		Outline:   ShapeRect,
		Size:      geom.Vec2{X: 32, Y: 32},
		Sides:     6,
		LineWidth: 1,
		Color:     render.White,
		Filled:    true,
	}
}

func NewRect(w, h float64, c render.Color) *Shape {
	s := NewShape()
	s.Size = geom.Vec2{X: w, Y: h}
	s.Color = c
	return s
}

func NewPolygon(radius float64, sides int, c render.Color) *Shape {
	s := NewShape()
	s.Outline = ShapePolygon
	s.Size = geom.Vec2{X: radius}
	s.Sides = sides
	s.Color = c
	return s
}

func NewLine(dx, dy, width float64, c render.Color) *Shape {
	s := NewShape()
	s.Outline = ShapeLine
	s.Size = geom.Vec2{X: dx, Y: dy}
	s.LineWidth = width
	s.Color = c
	return s
}

func (s *Shape) Kind() string { return KindShape }

func (s *Shape) SortKey() ecs.SortKey {
	return ecs.SortKey{Layer: resolveLayer(s.World(), s.SortingLayer), Order: s.Order}
}

// placement returns the world centre, rotation and scale of the shape.
func (s *Shape) placement() (geom.Vec2, float64, geom.Vec2) {
	t := s.Transform()
	if t == nil {
		return s.Offset, 0, geom.Vec2{X: 1, Y: 1}
	}
	rot := t.WorldRotation()
	scale := t.WorldScale()
	c := t.WorldPosition().Add(s.Offset.Mul(scale).Rotate(rot))
	return c, rot, scale
}

func (s *Shape) Render(b render.Batch, cam *render.Camera) {
	c, rot, scale := s.placement()
	layer := s.SortKey().Layer
	switch s.Outline {
	case ShapeLine:
		end := c.Add(s.Size.Mul(scale).Rotate(rot))
		b.DrawLine(c, end, s.LineWidth, s.Color, layer)
	case ShapePolygon:
		b.DrawRegularPolygon(c, s.Size.X*math.Abs(scale.X), s.Sides, rot, s.Color, s.Filled, layer)
	default:
		r := geom.RectAround(c, s.Size.X*math.Abs(scale.X), s.Size.Y*math.Abs(scale.Y))
		b.DrawRect(r, rot, s.Color, s.Filled, layer)
	}
}

func (s *Shape) Contains(p geom.Vec2) bool {
	c, rot, scale := s.placement()
	switch s.Outline {
	case ShapeLine:
		end := c.Add(s.Size.Mul(scale).Rotate(rot))
		return segmentDistance(p, c, end) <= math.Max(s.LineWidth, 1)/2
	case ShapePolygon:
		return p.Sub(c).Len() <= s.Size.X*math.Abs(scale.X)
	default:
		r := geom.RectAround(c, s.Size.X*math.Abs(scale.X), s.Size.Y*math.Abs(scale.Y))
		return r.ContainsRotated(p, rot)
	}
}

func (s *Shape) DescribeProperties() []ecs.Property {
	return []ecs.Property{
		ecs.StringProp("outline", &s.Outline),
		ecs.Vec2Prop("size", &s.Size),
		ecs.Vec2Prop("offset", &s.Offset),
		ecs.IntProp("sides", &s.Sides),
		ecs.FloatProp("lineWidth", &s.LineWidth),
		ecs.ColorProp("color", &s.Color),
		ecs.BoolProp("filled", &s.Filled),
		ecs.StringProp("sortingLayer", &s.SortingLayer),
		ecs.IntProp("order", &s.Order),
	}
}

func segmentDistance(p, a, b geom.Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return p.Sub(a).Len()
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(ab.Scale(t))).Len()
}

func resolveLayer(w *ecs.World, name string) int {
	if w == nil {
		return 0
	}
	return w.SortingLayer(name)
}
