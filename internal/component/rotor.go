package component

import "github.com/goldsprite/gdengine/internal/core/ecs"

const KindRotor = "Rotor"

// Rotor spins its entity at Speed degrees per second.
type Rotor struct {
	ecs.Base
	Speed float64
}

func NewRotor(speed float64) *Rotor { return &Rotor{Speed: speed} }

func (r *Rotor) Kind() string { return KindRotor }

func (r *Rotor) Update(dt float64) {
	if t := r.Transform(); t != nil {
		t.Rotation += r.Speed * dt
	}
}

func (r *Rotor) DescribeProperties() []ecs.Property {
	return []ecs.Property{ecs.FloatProp("speed", &r.Speed)}
}
