package render

import (
	"testing"

	"github.com/goldsprite/gdengine/internal/geom"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff000080")
	if err != nil {
		t.Fatal(err)
	}
	if c.R != 1 || c.G != 0 || c.A < 0.5 || c.A > 0.51 {
		t.Errorf("ParseColor = %+v", c)
	}
	if got := c.Hex(); got != "#ff000080" {
		t.Errorf("Hex = %q, want #ff000080", got)
	}
	if c, _ := ParseColor(" Red "); c != Red {
		t.Errorf("named = %+v, want Red", c)
	}
	for _, bad := range []string{"ff0000", "#ff00", "#gg0000", "mauve"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q) accepted", bad)
		}
	}
}

func TestColorRGBAClamps(t *testing.T) {
	c := Color{R: 2, G: -1, B: 0.5, A: 1}.RGBA()
	if c.R != 255 || c.G != 0 || c.B != 128 || c.A != 255 {
		t.Errorf("RGBA = %+v", c)
	}
}

func TestCameraRoundTrip(t *testing.T) {
	cam := NewCamera(800, 600)
	cam.Position = geom.V(100, 50)
	cam.Zoom = 2

	s := cam.WorldToScreen(geom.V(110, 60))
	if !s.ApproxEqual(geom.V(420, 280), 1e-9) {
		t.Errorf("WorldToScreen = %v, want (420, 280)", s)
	}
	w := cam.ScreenToWorld(s)
	if !w.ApproxEqual(geom.V(110, 60), 1e-9) {
		t.Errorf("ScreenToWorld = %v, want (110, 60)", w)
	}
	b := cam.Bounds()
	if b.W != 400 || b.H != 300 {
		t.Errorf("Bounds = %+v, want 400x300", b)
	}
}

func TestCameraCullingMask(t *testing.T) {
	var nilCam *Camera
	if !nilCam.Sees(5) {
		t.Error("nil camera should see every layer")
	}
	cam := NewCamera(10, 10)
	cam.CullingMask = 1<<0 | 1<<3
	for layer, want := range map[int]bool{0: true, 1: false, 3: true, 40: false} {
		if got := cam.Sees(layer); got != want {
			t.Errorf("Sees(%d) = %v, want %v", layer, got, want)
		}
	}
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := NewRecorder()
	r.DrawRect(geom.Rect{W: 1, H: 1}, 0, Red, true, 2)
	r.DrawLine(geom.V(0, 0), geom.V(1, 1), 1, Blue, 0)
	r.DrawRegularPolygon(geom.V(0, 0), 1, 6, 0, Green, false, 1)

	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	want := []Op{OpRect, OpLine, OpPolygon}
	for i, op := range want {
		if r.Commands[i].Op != op {
			t.Errorf("Commands[%d] = %s, want %s", i, r.Commands[i].Op, op)
		}
	}
	if r.Commands[2].Sides != 6 {
		t.Errorf("Sides = %d, want 6", r.Commands[2].Sides)
	}
	r.Reset()
	if r.Len() != 0 {
		t.Errorf("Len after Reset = %d", r.Len())
	}
}
