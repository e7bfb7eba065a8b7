package ecs

import "github.com/goldsprite/gdengine/internal/geom"

// KindTransform is the kind name of the built-in Transform component.
const KindTransform = "Transform"

// Transform is the spatial state every entity owns. Position, Scale and
// Rotation are local to the parent entity; Rotation is in degrees.
type Transform struct {
	Base
	Position geom.Vec2
	Scale    geom.Vec2
	Rotation float64
	FaceDir  int // 1 faces right, -1 faces left
}

func NewTransform() *Transform {
	return &Transform{Scale: geom.Vec2{X: 1, Y: 1}, FaceDir: 1}
}

func (t *Transform) Kind() string { return KindTransform }

func (t *Transform) SetPosition(x, y float64) { t.Position = geom.Vec2{X: x, Y: y} }

func (t *Transform) Translate(dx, dy float64) {
	t.Position = t.Position.Add(geom.Vec2{X: dx, Y: dy})
}

func (t *Transform) parent() *Transform {
	if t.entity == nil || t.entity.parent == nil {
		return nil
	}
	return t.entity.parent.transform
}

// WorldPosition resolves the position through the parent chain.
func (t *Transform) WorldPosition() geom.Vec2 {
	p := t.parent()
	if p == nil {
		return t.Position
	}
	local := t.Position.Mul(p.WorldScale()).Rotate(p.WorldRotation())
	return p.WorldPosition().Add(local)
}

func (t *Transform) WorldRotation() float64 {
	if p := t.parent(); p != nil {
		return p.WorldRotation() + t.Rotation
	}
	return t.Rotation
}

func (t *Transform) WorldScale() geom.Vec2 {
	if p := t.parent(); p != nil {
		return p.WorldScale().Mul(t.Scale)
	}
	return t.Scale
}

func (t *Transform) DescribeProperties() []Property {
	return []Property{
		Vec2Prop("position", &t.Position),
		Vec2Prop("scale", &t.Scale),
		FloatProp("rotation", &t.Rotation),
		IntProp("faceDir", &t.FaceDir),
	}
}
