// Package render defines the drawing sink consumed by the world's render pass.
// The core only writes primitives into a Batch; it never reads back from it.
package render

import (
	"image"

	"github.com/goldsprite/gdengine/internal/geom"
)

// Texture is the drawable view of a loaded image. Implementations keep the
// decoded pixels and let GPU-backed sinks attach release hooks so that
// disposing the texture frees whatever the sink uploaded.
type Texture interface {
	Path() string
	Image() image.Image
	Size() (w, h int)
	Disposed() bool
	OnRelease(fn func())
}

// Batch accepts shapes and colours. Layer is the resolved sorting layer of
// the component issuing the call; sinks may use it for grouping but the world
// already submits primitives in sorted order.
type Batch interface {
	DrawRect(r geom.Rect, rotation float64, c Color, filled bool, layer int)
	DrawLine(a, b geom.Vec2, width float64, c Color, layer int)
	DrawRegularPolygon(center geom.Vec2, radius float64, sides int, rotation float64, c Color, filled bool, layer int)
	DrawTexture(t Texture, dst geom.Rect, rotation float64, flipX, flipY bool, tint Color, layer int)
}

// Camera is the viewport the render pass draws through.
type Camera struct {
	Position geom.Vec2
	Zoom     float64
	Width    float64
	Height   float64

	// CullingMask selects entity layers by bit; zero means every layer.
	CullingMask uint32
}

// NewCamera returns a camera centred on the origin with the given logical size.
func NewCamera(w, h float64) *Camera {
	return &Camera{Zoom: 1, Width: w, Height: h}
}

// Sees reports whether entities on the given layer pass the culling mask.
func (c *Camera) Sees(layer int) bool {
	if c == nil || c.CullingMask == 0 {
		return true
	}
	if layer < 0 || layer > 31 {
		return false
	}
	return c.CullingMask&(1<<uint(layer)) != 0
}

// Bounds returns the visible world rectangle.
func (c *Camera) Bounds() geom.Rect {
	z := c.Zoom
	if z <= 0 {
		z = 1
	}
	return geom.RectAround(c.Position, c.Width/z, c.Height/z)
}

// WorldToScreen maps a world point to screen pixels with Y pointing down.
func (c *Camera) WorldToScreen(p geom.Vec2) geom.Vec2 {
	z := c.Zoom
	if z <= 0 {
		z = 1
	}
	d := p.Sub(c.Position).Scale(z)
	return geom.Vec2{X: c.Width/2 + d.X, Y: c.Height/2 - d.Y}
}

// ScreenToWorld is the inverse of WorldToScreen.
func (c *Camera) ScreenToWorld(p geom.Vec2) geom.Vec2 {
	z := c.Zoom
	if z <= 0 {
		z = 1
	}
	d := geom.Vec2{X: p.X - c.Width/2, Y: c.Height/2 - p.Y}
	return c.Position.Add(d.Scale(1 / z))
}
