package system

import (
	"time"

	coresys "github.com/goldsprite/gdengine/internal/core/system"
	"github.com/goldsprite/gdengine/internal/link"
)

// LinkInputSystem accepts editor sessions and applies their queued
// commands. Phase 0 (Input).
type LinkInputSystem struct {
	editor *link.Editor
}

func NewLinkInputSystem(editor *link.Editor) *LinkInputSystem {
	return &LinkInputSystem{editor: editor}
}

func (s *LinkInputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *LinkInputSystem) Update(_ time.Duration) {
	s.editor.ProcessInput()
}

// LinkOutputSystem hands the frame's buffered frames to each session's
// writer. Phase 4 (Output).
type LinkOutputSystem struct {
	editor *link.Editor
}

func NewLinkOutputSystem(editor *link.Editor) *LinkOutputSystem {
	return &LinkOutputSystem{editor: editor}
}

func (s *LinkOutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *LinkOutputSystem) Update(_ time.Duration) {
	s.editor.Flush()
}
