// Package ebitenbatch draws the world through ebiten. Batch implements
// render.Batch on an *ebiten.Image; Game drives the frame runner from
// ebiten's update loop.
package ebitenbatch

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// Batch maps world primitives to screen space through a camera. Uploaded
// textures are cached per render.Texture and freed when it is disposed.
type Batch struct {
	dst    *ebiten.Image
	cam    *render.Camera
	images map[render.Texture]*ebiten.Image

	vs []ebiten.Vertex
	is []uint16
}

func New() *Batch {
	return &Batch{images: make(map[render.Texture]*ebiten.Image)}
}

// Begin targets dst for the coming frame.
func (b *Batch) Begin(dst *ebiten.Image, cam *render.Camera) {
	b.dst = dst
	b.cam = cam
}

// Cached returns the number of textures currently uploaded.
func (b *Batch) Cached() int { return len(b.images) }

func (b *Batch) zoom() float64 {
	if b.cam == nil || b.cam.Zoom <= 0 {
		return 1
	}
	return b.cam.Zoom
}

func (b *Batch) toScreen(p geom.Vec2) geom.Vec2 {
	if b.cam == nil {
		return p
	}
	return b.cam.WorldToScreen(p)
}

func (b *Batch) DrawRect(r geom.Rect, rotation float64, c render.Color, filled bool, _ int) {
	center := r.Center()
	corners := []geom.Vec2{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
	if rotation != 0 {
		for i, p := range corners {
			corners[i] = center.Add(p.Sub(center).Rotate(rotation))
		}
	}
	b.polygon(corners, c, filled)
}

func (b *Batch) DrawLine(p0, p1 geom.Vec2, width float64, c render.Color, _ int) {
	if b.dst == nil {
		return
	}
	if width <= 0 {
		width = 1
	}
	a, z := b.toScreen(p0), b.toScreen(p1)
	vector.StrokeLine(b.dst, float32(a.X), float32(a.Y), float32(z.X), float32(z.Y),
		float32(width*b.zoom()), c.RGBA(), true)
}

func (b *Batch) DrawRegularPolygon(center geom.Vec2, radius float64, sides int, rotation float64, c render.Color, filled bool, _ int) {
	b.polygon(geom.RegularPolygon(center, radius, sides, rotation), c, filled)
}

func (b *Batch) polygon(pts []geom.Vec2, c render.Color, filled bool) {
	if b.dst == nil || len(pts) < 2 {
		return
	}
	var path vector.Path
	for i, p := range pts {
		s := b.toScreen(p)
		if i == 0 {
			path.MoveTo(float32(s.X), float32(s.Y))
		} else {
			path.LineTo(float32(s.X), float32(s.Y))
		}
	}
	path.Close()

	b.vs, b.is = b.vs[:0], b.is[:0]
	if filled {
		b.vs, b.is = path.AppendVerticesAndIndicesForFilling(b.vs, b.is)
	} else {
		b.vs, b.is = path.AppendVerticesAndIndicesForStroke(b.vs, b.is, &vector.StrokeOptions{Width: 1})
	}
	cr, cg, cb, ca := c.R*c.A, c.G*c.A, c.B*c.A, c.A
	for i := range b.vs {
		b.vs[i].SrcX, b.vs[i].SrcY = 1, 1
		b.vs[i].ColorR, b.vs[i].ColorG, b.vs[i].ColorB, b.vs[i].ColorA = cr, cg, cb, ca
	}
	b.dst.DrawTriangles(b.vs, b.is, whiteSubImage, &ebiten.DrawTrianglesOptions{AntiAlias: true})
}

func (b *Batch) DrawTexture(t render.Texture, dst geom.Rect, rotation float64, flipX, flipY bool, tint render.Color, _ int) {
	if b.dst == nil || t == nil || t.Disposed() {
		return
	}
	img := b.image(t)
	if img == nil {
		return
	}
	w, h := t.Size()
	if w == 0 || h == 0 {
		return
	}
	z := b.zoom()
	sx, sy := dst.W/float64(w)*z, dst.H/float64(h)*z
	if flipX {
		sx = -sx
	}
	if flipY {
		sy = -sy
	}

	var op ebiten.DrawImageOptions
	op.GeoM.Translate(-float64(w)/2, -float64(h)/2)
	op.GeoM.Scale(sx, sy)
	// World rotation is counter-clockwise with Y up; the screen's Y points down.
	op.GeoM.Rotate(-rotation * degToRad)
	c := b.toScreen(dst.Center())
	op.GeoM.Translate(c.X, c.Y)
	op.ColorScale.Scale(tint.R*tint.A, tint.G*tint.A, tint.B*tint.A, tint.A)
	op.Filter = ebiten.FilterLinear
	b.dst.DrawImage(img, &op)
}

const degToRad = 3.141592653589793 / 180

func (b *Batch) image(t render.Texture) *ebiten.Image {
	if img, ok := b.images[t]; ok {
		return img
	}
	src := t.Image()
	if src == nil {
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	b.images[t] = img
	t.OnRelease(func() {
		img.Deallocate()
		delete(b.images, t)
	})
	return img
}
