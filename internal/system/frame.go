package system

import (
	"time"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	coresys "github.com/goldsprite/gdengine/internal/core/system"
	"github.com/goldsprite/gdengine/internal/scripting"
)

// seconds converts a frame delta, clamped to max when max > 0.
func seconds(dt, max time.Duration) float64 {
	if max > 0 && dt > max {
		dt = max
	}
	if dt < 0 {
		dt = 0
	}
	return dt.Seconds()
}

// WorldUpdateSystem runs the world's component pass. Phase 1 (Update).
type WorldUpdateSystem struct {
	world    *ecs.World
	maxDelta time.Duration
}

func NewWorldUpdateSystem(world *ecs.World, maxDelta time.Duration) *WorldUpdateSystem {
	return &WorldUpdateSystem{world: world, maxDelta: maxDelta}
}

func (s *WorldUpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WorldUpdateSystem) Update(dt time.Duration) {
	s.world.Update(seconds(dt, s.maxDelta))
}

// ScriptSystem applies finished background compiles and calls the running
// script's onUpdate with the scaled delta. Phase 2 (Script).
type ScriptSystem struct {
	host     *scripting.Host
	world    *ecs.World
	maxDelta time.Duration
}

func NewScriptSystem(host *scripting.Host, world *ecs.World, maxDelta time.Duration) *ScriptSystem {
	return &ScriptSystem{host: host, world: world, maxDelta: maxDelta}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *ScriptSystem) Update(dt time.Duration) {
	d := seconds(dt, s.maxDelta)
	if s.world != nil {
		if s.world.Paused() {
			d = 0
		} else {
			d *= s.world.TimeScale()
		}
	}
	s.host.Tick(d)
}

// EventSystem delivers the events emitted this frame. Phase 3 (Events).
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseEvents }

func (s *EventSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
