package system

import "time"

// Phase orders systems within one frame.
type Phase int

const (
	PhaseInput   Phase = iota // 0: apply editor link commands
	PhaseUpdate               // 1: world update (awake, update, destroy sweep)
	PhaseScript               // 2: script host tick
	PhaseEvents               // 3: dispatch the frame's bus events
	PhaseOutput               // 4: push events to editor sessions
	PhasePersist              // 5: run journal flush
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhaseScript:
		return "script"
	case PhaseEvents:
		return "events"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is one stage of the frame.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
