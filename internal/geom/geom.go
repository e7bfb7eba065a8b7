package geom

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X, Y float64
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mul(o Vec2) Vec2      { return Vec2{v.X * o.X, v.Y * o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Y) }

// Rotate rotates v counter-clockwise by deg degrees around the origin.
func (v Vec2) Rotate(deg float64) Vec2 {
	if deg == 0 {
		return v
	}
	s, c := math.Sincos(deg * math.Pi / 180)
	return Vec2{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// ApproxEqual reports whether both components differ by at most eps.
func (v Vec2) ApproxEqual(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Rect is an axis-aligned rectangle anchored at its bottom-left corner.
type Rect struct {
	X, Y, W, H float64
}

// RectAround returns a w x h rectangle centred on c.
func RectAround(c Vec2, w, h float64) Rect {
	return Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

func (r Rect) Center() Vec2 { return Vec2{r.X + r.W/2, r.Y + r.H/2} }

// Contains reports whether p lies inside r. Edges count as inside.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// ContainsRotated reports whether p lies inside r after r has been rotated by
// deg degrees around its centre.
func (r Rect) ContainsRotated(p Vec2, deg float64) bool {
	if deg == 0 {
		return r.Contains(p)
	}
	c := r.Center()
	local := p.Sub(c).Rotate(-deg).Add(c)
	return r.Contains(local)
}

// RegularPolygon returns the vertices of a regular polygon with the given
// number of sides, circumradius and rotation in degrees.
func RegularPolygon(center Vec2, radius float64, sides int, deg float64) []Vec2 {
	if sides < 3 {
		sides = 3
	}
	pts := make([]Vec2, sides)
	step := 360.0 / float64(sides)
	for i := range pts {
		pts[i] = center.Add(Vec2{radius, 0}.Rotate(deg + step*float64(i)))
	}
	return pts
}
