package component

import (
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

func TestRegistryKinds(t *testing.T) {
	r := NewRegistry()
	want := "Rotor,Shape,Sprite,Transform,Tween"
	if got := strings.Join(r.Kinds(), ","); got != want {
		t.Errorf("Kinds = %s, want %s", got, want)
	}
	c, err := r.New(KindShape)
	if err != nil {
		t.Fatalf("New(Shape): %v", err)
	}
	if c.Kind() != KindShape {
		t.Errorf("Kind = %s", c.Kind())
	}
	if _, err := r.New("Nope"); err == nil {
		t.Error("New(Nope) should fail")
	}
}

func TestShapeRendersAtWorldTransform(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{SortingLayers: []string{"Entity"}})
	e := w.CreateEntity("box")
	e.Transform().SetPosition(10, 20)
	e.Transform().Scale = geom.V(2, 1)
	s := NewRect(4, 6, render.Red)
	s.SortingLayer = "Entity"
	if _, err := e.AddComponent(s); err != nil {
		t.Fatal(err)
	}
	w.Update(0.1)

	rec := render.NewRecorder()
	w.Render(rec, render.NewCamera(100, 100))
	if rec.Len() != 1 {
		t.Fatalf("commands = %d, want 1", rec.Len())
	}
	cmd := rec.Commands[0]
	if cmd.Op != render.OpRect || cmd.Layer != 1 {
		t.Errorf("cmd = %v layer %d, want rect layer 1", cmd.Op, cmd.Layer)
	}
	want := geom.Rect{X: 6, Y: 17, W: 8, H: 6}
	if cmd.Rect != want {
		t.Errorf("Rect = %+v, want %+v", cmd.Rect, want)
	}
	if !s.Contains(geom.V(13, 22)) || s.Contains(geom.V(15, 20)) {
		t.Error("Contains disagrees with drawn rect")
	}
}

func TestShapeVariants(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{})
	e := w.CreateEntity("e")
	poly := NewPolygon(5, 6, render.Green)
	line := NewLine(10, 0, 2, render.Blue)
	line.Order = 1
	_, _ = e.AddComponent(poly)
	_, _ = e.AddComponent(line)
	w.Update(0)

	rec := render.NewRecorder()
	w.Render(rec, render.NewCamera(100, 100))
	if rec.Len() != 2 || rec.Commands[0].Op != render.OpPolygon || rec.Commands[1].Op != render.OpLine {
		t.Fatalf("ops = %+v", rec.Commands)
	}
	if rec.Commands[0].Sides != 6 || rec.Commands[0].Radius != 5 {
		t.Errorf("polygon = %+v", rec.Commands[0])
	}
	if !poly.Contains(geom.V(3, 3)) || poly.Contains(geom.V(5, 5)) {
		t.Error("polygon hit test")
	}
	if !line.Contains(geom.V(5, 0.5)) || line.Contains(geom.V(5, 3)) {
		t.Error("line hit test")
	}
}

func TestRotorSpins(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{})
	e := w.CreateEntity("r")
	_, _ = e.AddComponent(NewRotor(90))
	w.Update(0.5)
	w.Update(0.5)
	if got := e.Transform().Rotation; got != 90 {
		t.Errorf("Rotation = %v, want 90", got)
	}
}

func TestTweenReachesTarget(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{})
	e := w.CreateEntity("t")
	tw := NewTween("x", 0, 100, 1)
	_, _ = e.AddComponent(tw)
	for i := 0; i < 12; i++ {
		w.Update(0.1)
	}
	if got := e.Transform().Position.X; math.Abs(got-100) > 1e-3 {
		t.Errorf("X = %v, want 100", got)
	}
	if !tw.Done() {
		t.Error("tween not done")
	}
}

func TestTweenMidpointLinear(t *testing.T) {
	w := ecs.NewWorld(ecs.Options{})
	e := w.CreateEntity("t")
	_, _ = e.AddComponent(NewTween("scaleY", 1, 3, 1))
	w.Update(0.5)
	if got := e.Transform().Scale.Y; math.Abs(got-2) > 1e-3 {
		t.Errorf("ScaleY = %v, want 2", got)
	}
}

func writePNG(t *testing.T, dir, name string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 8, 4))); err != nil {
		t.Fatal(err)
	}
}

func TestSpriteLoadsThroughTracker(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "hero.png")

	tr := asset.NewTracker(asset.NewResolver(dir), nil)
	w := ecs.NewWorld(ecs.Options{Assets: tr})
	e := w.CreateEntity("hero")
	sp := NewSprite("hero.png")
	missing := NewSprite("missing.png")
	_, _ = e.AddComponent(sp)
	_, _ = e.AddComponent(missing)
	w.Update(0)

	if sp.Texture() == nil {
		t.Fatal("texture not loaded")
	}
	if missing.Texture() != nil {
		t.Error("missing texture should stay nil")
	}
	if tr.Len() != 1 {
		t.Errorf("tracked = %d, want 1", tr.Len())
	}
	rec := render.NewRecorder()
	w.Render(rec, render.NewCamera(100, 100))
	if rec.Len() != 1 || rec.Commands[0].Op != render.OpTexture {
		t.Fatalf("commands = %+v", rec.Commands)
	}
	if r := rec.Commands[0].Rect; r.W != 8 || r.H != 4 {
		t.Errorf("dst = %+v, want 8x4", r)
	}

	tr.DisposeAll()
	rec.Reset()
	w.Render(rec, render.NewCamera(100, 100))
	if rec.Len() != 0 {
		t.Error("disposed texture still drawn")
	}
}

func TestSceneSpriteSurvivesScriptSweep(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "bg.png")
	writePNG(t, dir, "hero.png")

	scripts := asset.NewTracker(asset.NewResolver(dir), nil)
	scenes := asset.NewTracker(asset.NewResolver(dir), nil)
	w := ecs.NewWorld(ecs.Options{Assets: scripts, SceneAssets: scenes})

	bg := NewSprite("bg.png")
	_, _ = w.CreateEntity("Background").AddComponent(bg)
	w.Update(0)
	if scripts.Len() != 0 || scenes.Len() != 1 {
		t.Fatalf("script tracked %d, scene tracked %d, want 0 and 1", scripts.Len(), scenes.Len())
	}

	w.BeginScriptScope()
	hero := NewSprite("hero.png")
	_, _ = w.CreateEntity("Hero").AddComponent(hero)
	w.Update(0)
	if scripts.Len() != 1 {
		t.Fatalf("script tracked %d, want 1", scripts.Len())
	}

	heroTex := hero.Texture()
	scripts.DisposeAll()
	w.ClearScripted()
	w.EndScriptScope()
	if !heroTex.Disposed() {
		t.Error("script texture not released")
	}
	if bg.Texture().Disposed() {
		t.Fatal("scene texture released by script sweep")
	}
	rec := render.NewRecorder()
	w.Render(rec, render.NewCamera(100, 100))
	if rec.Len() != 1 {
		t.Errorf("commands = %d, want 1", rec.Len())
	}

	tex := bg.Texture()
	w.Reset()
	if !tex.Disposed() || scenes.Len() != 0 {
		t.Error("Reset did not release scene assets")
	}
}

func TestDescribedPropertiesRoundTrip(t *testing.T) {
	s := NewShape()
	p, ok := ecs.FindProperty(s, "color")
	if !ok {
		t.Fatal("color property missing")
	}
	if err := p.Set(render.Cyan); err != nil {
		t.Fatal(err)
	}
	if s.Color != render.Cyan {
		t.Errorf("Color = %v, want cyan", s.Color)
	}
	if err := p.Set("cyan"); err == nil {
		t.Error("wrong type accepted")
	}
}
