package render

import "github.com/goldsprite/gdengine/internal/geom"

// Op identifies a recorded primitive.
type Op uint8

const (
	OpRect Op = iota
	OpLine
	OpPolygon
	OpTexture
)

func (o Op) String() string {
	switch o {
	case OpRect:
		return "rect"
	case OpLine:
		return "line"
	case OpPolygon:
		return "polygon"
	case OpTexture:
		return "texture"
	default:
		return "unknown"
	}
}

// Command is one primitive captured by a Recorder.
type Command struct {
	Op       Op
	Layer    int
	Color    Color
	Rect     geom.Rect
	From, To geom.Vec2
	Radius   float64
	Sides    int
	Rotation float64
	Filled   bool
	Texture  Texture
}

// Recorder is a Batch that keeps every primitive in submission order. It is
// the sink for headless runs and the assertion surface for render tests.
type Recorder struct {
	Commands []Command
}

func NewRecorder() *Recorder {
	return &Recorder{Commands: make([]Command, 0, 64)}
}

// Reset drops all recorded commands, keeping capacity.
func (r *Recorder) Reset() { r.Commands = r.Commands[:0] }

func (r *Recorder) Len() int { return len(r.Commands) }

func (r *Recorder) DrawRect(rect geom.Rect, rotation float64, c Color, filled bool, layer int) {
	r.Commands = append(r.Commands, Command{Op: OpRect, Layer: layer, Color: c, Rect: rect, Rotation: rotation, Filled: filled})
}

func (r *Recorder) DrawLine(a, b geom.Vec2, width float64, c Color, layer int) {
	r.Commands = append(r.Commands, Command{Op: OpLine, Layer: layer, Color: c, From: a, To: b, Radius: width})
}

func (r *Recorder) DrawRegularPolygon(center geom.Vec2, radius float64, sides int, rotation float64, c Color, filled bool, layer int) {
	r.Commands = append(r.Commands, Command{
		Op: OpPolygon, Layer: layer, Color: c, From: center, Radius: radius,
		Sides: sides, Rotation: rotation, Filled: filled,
	})
}

func (r *Recorder) DrawTexture(t Texture, dst geom.Rect, rotation float64, flipX, flipY bool, tint Color, layer int) {
	r.Commands = append(r.Commands, Command{Op: OpTexture, Layer: layer, Color: tint, Rect: dst, Rotation: rotation, Texture: t})
}
