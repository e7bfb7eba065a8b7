package packet

import (
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateHandshake SessionState = iota // awaiting C_HELLO
	StateReady                         // commands accepted, events pushed
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HandlerFunc is the callback signature for command handlers.
// The session is passed as an opaque value to avoid an import cycle.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode byte, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		fn:            fn,
		allowedStates: allowed,
	}
}

// Dispatch finds the handler for the opcode in data[0], validates the session
// state and calls the handler. Unknown opcodes are ignored.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty frame")
	}
	opcode := data[0]
	reg.log.Debug("command",
		zap.String("src", "Link"),
		zap.String("op", OpcodeName(opcode)),
		zap.Int("size", len(data)),
		zap.String("state", state.String()),
	)

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("unknown opcode", zap.String("src", "Link"), zap.Uint8("opcode", opcode))
		return nil
	}

	if !entry.allowedStates[state] {
		reg.log.Warn("opcode not allowed",
			zap.String("src", "Link"),
			zap.String("op", OpcodeName(opcode)),
			zap.String("state", state.String()),
		)
		return fmt.Errorf("opcode %s not allowed in state %s", OpcodeName(opcode), state)
	}

	return reg.safeCall(entry.fn, sess, NewReader(data), opcode)
}

// safeCall runs a handler with panic recovery so that one bad command cannot
// take the frame loop down.
func (reg *Registry) safeCall(fn HandlerFunc, sess any, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("handler panic recovered",
				zap.String("src", "Link"),
				zap.String("op", OpcodeName(opcode)),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
