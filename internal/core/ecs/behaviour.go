package ecs

// Behaviour is a component assembled from plain funcs. Go scripts use it to
// attach per-frame logic without declaring a component type.
type Behaviour struct {
	Base
	Name      string
	AwakeFn   func(b *Behaviour)
	UpdateFn  func(b *Behaviour, dt float64)
	DestroyFn func(b *Behaviour)
}

// NewBehaviour returns a Behaviour that calls update every frame.
func NewBehaviour(name string, update func(b *Behaviour, dt float64)) *Behaviour {
	return &Behaviour{Name: name, UpdateFn: update}
}

func (b *Behaviour) Kind() string {
	if b.Name == "" {
		return "Behaviour"
	}
	return b.Name
}

func (b *Behaviour) Awake() {
	if b.AwakeFn != nil {
		b.AwakeFn(b)
	}
}

func (b *Behaviour) Update(dt float64) {
	if b.UpdateFn != nil {
		b.UpdateFn(b, dt)
	}
}

func (b *Behaviour) OnDestroy() {
	if b.DestroyFn != nil {
		b.DestroyFn(b)
	}
}
