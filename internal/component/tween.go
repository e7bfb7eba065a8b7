package component

import (
	"sort"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/goldsprite/gdengine/internal/core/ecs"
)

const KindTween = "Tween"

var easings = map[string]ease.TweenFunc{
	"Linear":     ease.Linear,
	"InQuad":     ease.InQuad,
	"OutQuad":    ease.OutQuad,
	"InOutQuad":  ease.InOutQuad,
	"InCubic":    ease.InCubic,
	"OutCubic":   ease.OutCubic,
	"InOutCubic": ease.InOutCubic,
	"InSine":     ease.InSine,
	"OutSine":    ease.OutSine,
	"InOutSine":  ease.InOutSine,
	"OutBounce":  ease.OutBounce,
}

// Easings returns the easing names a Tween accepts.
func Easings() []string {
	out := make([]string, 0, len(easings))
	for k := range easings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tween animates one transform field from From to To over Duration seconds.
// Target is one of x, y, rotation, scaleX, scaleY. Unknown easing names fall
// back to Linear.
type Tween struct {
	ecs.Base
	Target   string
	From     float64
	To       float64
	Duration float64
	Easing   string
	Loop     bool

	tw   *gween.Tween
	done bool
}

func NewTween(target string, from, to, duration float64) *Tween {
	return &Tween{Target: target, From: from, To: to, Duration: duration, Easing: "Linear"}
}

func (t *Tween) Kind() string { return KindTween }

// Done reports whether a non-looping tween reached its end value.
func (t *Tween) Done() bool { return t.done }

func (t *Tween) Awake() {
	fn, ok := easings[t.Easing]
	if !ok {
		fn = ease.Linear
	}
	t.tw = gween.New(float32(t.From), float32(t.To), float32(t.Duration), fn)
	t.done = false
	t.apply(t.From)
}

func (t *Tween) Update(dt float64) {
	if t.tw == nil || t.done {
		return
	}
	val, finished := t.tw.Update(float32(dt))
	t.apply(float64(val))
	if finished {
		if t.Loop {
			t.tw.Reset()
			return
		}
		t.done = true
	}
}

func (t *Tween) apply(v float64) {
	tr := t.Transform()
	if tr == nil {
		return
	}
	switch t.Target {
	case "x":
		tr.Position.X = v
	case "y":
		tr.Position.Y = v
	case "rotation":
		tr.Rotation = v
	case "scaleX":
		tr.Scale.X = v
	case "scaleY":
		tr.Scale.Y = v
	}
}

func (t *Tween) DescribeProperties() []ecs.Property {
	return []ecs.Property{
		ecs.StringProp("target", &t.Target),
		ecs.FloatProp("from", &t.From),
		ecs.FloatProp("to", &t.To),
		ecs.FloatProp("duration", &t.Duration),
		ecs.StringProp("easing", &t.Easing),
		ecs.BoolProp("loop", &t.Loop),
		ecs.ReadOnlyProp("done", ecs.PropBool, func() any { return t.done }),
	}
}
