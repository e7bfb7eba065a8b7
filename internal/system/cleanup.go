package system

import (
	"time"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	coresys "github.com/goldsprite/gdengine/internal/core/system"
)

// CleanupSystem flushes destructions queued after the world pass, such as
// entities a script destroyed from onUpdate. Registered after ScriptSystem
// in the script phase.
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseScript }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
}
