package link

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/link/packet"
	"github.com/goldsprite/gdengine/internal/persist"
	"github.com/goldsprite/gdengine/internal/project"
	"github.com/goldsprite/gdengine/internal/scene"
	"github.com/goldsprite/gdengine/internal/scripting"
)

// SnapshotSource serves stored scene snapshots.
type SnapshotSource interface {
	Latest(ctx context.Context, project, name string) (*persist.SceneSnapshot, error)
}

// RunSource serves the script run journal.
type RunSource interface {
	History(ctx context.Context, project string, limit int) ([]persist.RunRow, error)
}

// EditorOptions wires an Editor. Server may be nil when sessions are
// attached by hand; Snapshots and Runs are nil without a store.
type EditorOptions struct {
	Context            context.Context
	World              *ecs.World
	Host               *scripting.Host
	Bus                *event.Bus
	Codec              *scene.Codec
	Server             *Server
	Snapshots          SnapshotSource
	Runs               RunSource
	Log                *zap.Logger
	EngineName         string
	ProjectsDir        string // relative load paths resolve against it
	AsyncLoad          bool
	MaxCommandsPerTick int
}

// Editor serves attached editors: it applies their commands at the input
// phase and pushes world and host events back at the output phase.
type Editor struct {
	ctx      context.Context
	world    *ecs.World
	host     *scripting.Host
	bus      *event.Bus
	codec    *scene.Codec
	server   *Server
	snaps    SnapshotSource
	runs     RunSource
	log      *zap.Logger
	name     string
	projects string
	async    bool
	maxCmds  int

	reg      *packet.Registry
	sessions map[uint64]*Session
	ordered  []*Session
}

var (
	errNoEntity  = errors.New("no such entity")
	errNoProject = errors.New("no project loaded")
	errNoStore   = errors.New("store disabled")
)

const storeTimeout = 5 * time.Second

func NewEditor(opts EditorOptions) *Editor {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.MaxCommandsPerTick <= 0 {
		opts.MaxCommandsPerTick = 32
	}
	e := &Editor{
		ctx:      ctx,
		world:    opts.World,
		host:     opts.Host,
		bus:      opts.Bus,
		codec:    opts.Codec,
		server:   opts.Server,
		snaps:    opts.Snapshots,
		runs:     opts.Runs,
		log:      log,
		name:     opts.EngineName,
		projects: opts.ProjectsDir,
		async:    opts.AsyncLoad,
		maxCmds:  opts.MaxCommandsPerTick,
		reg:      packet.NewRegistry(log),
		sessions: make(map[uint64]*Session),
	}
	e.registerHandlers()
	e.subscribe()
	return e
}

// Attach adds a started session.
func (e *Editor) Attach(s *Session) {
	e.sessions[s.ID] = s
	e.ordered = append(e.ordered, s)
	sort.Slice(e.ordered, func(i, j int) bool { return e.ordered[i].ID < e.ordered[j].ID })
}

// Sessions returns the number of attached sessions.
func (e *Editor) Sessions() int { return len(e.sessions) }

// ProcessInput accepts pending sessions, drops dead ones and applies up to
// MaxCommandsPerTick commands per session.
func (e *Editor) ProcessInput() {
	if e.server != nil {
	accept:
		for {
			select {
			case s := <-e.server.NewSessions():
				e.Attach(s)
			default:
				break accept
			}
		}
	}

	for _, s := range e.ordered {
		for n := 0; n < e.maxCmds && !s.IsClosed(); n++ {
			var data []byte
			select {
			case data = <-s.InQueue:
			default:
			}
			if data == nil {
				break
			}
			if err := e.reg.Dispatch(s, s.State(), data); err != nil {
				e.result(s, data[0], err)
				if s.State() == packet.StateHandshake {
					s.Close()
				}
			}
		}
	}
	e.reap()
}

func (e *Editor) reap() {
	live := e.ordered[:0]
	for _, s := range e.ordered {
		if s.IsClosed() {
			delete(e.sessions, s.ID)
			e.log.Info("editor detached", zap.String("src", "Link"), zap.Uint64("session", s.ID))
			continue
		}
		live = append(live, s)
	}
	for i := len(live); i < len(e.ordered); i++ {
		e.ordered[i] = nil
	}
	e.ordered = live
}

// Flush hands every session's buffered frames to its writer.
func (e *Editor) Flush() {
	for _, s := range e.ordered {
		s.FlushOutput()
	}
}

// Shutdown closes every session and the listener.
func (e *Editor) Shutdown() {
	if e.server != nil {
		e.server.Shutdown()
	}
	for _, s := range e.ordered {
		s.Close()
	}
	e.reap()
}

// broadcast queues data for every ready session.
func (e *Editor) broadcast(data []byte) {
	for _, s := range e.ordered {
		if s.State() == packet.StateReady {
			s.Send(data)
		}
	}
}

func (e *Editor) subscribe() {
	if e.bus == nil {
		return
	}
	event.Subscribe(e.bus, func(ev event.StructureChanged) {
		w := packet.NewWriter(packet.S_STRUCTURE)
		w.WriteS(ev.Reason)
		w.WriteQ(ev.Entity)
		e.broadcast(w.Bytes())
	})
	event.Subscribe(e.bus, func(ev event.SelectionChanged) {
		w := packet.NewWriter(packet.S_SELECTION)
		w.WriteQ(ev.Entity)
		e.broadcast(w.Bytes())
	})
	event.Subscribe(e.bus, func(ev event.HostStateChanged) {
		w := packet.NewWriter(packet.S_HOST_STATE)
		w.WriteS(ev.RunID)
		w.WriteS(ev.From)
		w.WriteS(ev.To)
		w.WriteS(ev.Diagnostic)
		e.broadcast(w.Bytes())
	})
	event.Subscribe(e.bus, func(ev event.ScriptFault) {
		w := packet.NewWriter(packet.S_FAULT)
		w.WriteS(ev.RunID)
		w.WriteS(ev.Hook)
		w.WriteS(ev.Err)
		e.broadcast(w.Bytes())
	})
	event.Subscribe(e.bus, func(ev event.LogLine) {
		w := packet.NewWriter(packet.S_LOG)
		w.WriteS(ev.Level)
		w.WriteS(ev.Src)
		w.WriteS(ev.Msg)
		e.broadcast(w.Bytes())
	})
}

func (e *Editor) result(s *Session, op byte, err error) {
	w := packet.NewWriter(packet.S_RESULT)
	w.WriteC(op)
	w.WriteBool(err == nil)
	if err != nil {
		w.WriteS(err.Error())
	} else {
		w.WriteS("")
	}
	s.Send(w.Bytes())
}

func (e *Editor) resolveProject(path string) string {
	if path == "" || filepath.IsAbs(path) || e.projects == "" {
		return path
	}
	return filepath.Join(e.projects, path)
}

// projectPath resolves a scene path against the open project's root.
func (e *Editor) projectPath(path string) (string, error) {
	var p *project.Project
	if e.host != nil {
		p = e.host.Project()
	}
	if path == "" {
		if p == nil || p.ScenePath() == "" {
			return "", errNoProject
		}
		return p.ScenePath(), nil
	}
	if filepath.IsAbs(path) || p == nil {
		return path, nil
	}
	return filepath.Join(p.Root, filepath.FromSlash(path)), nil
}

func (e *Editor) entity(id uint64) (*ecs.Entity, error) {
	ent, ok := e.world.Get(ecs.EntityID(id))
	if !ok || ent.IsDestroyed() {
		return nil, errNoEntity
	}
	return ent, nil
}

// tree encodes the live entity forest in pre-order.
func (e *Editor) tree() []byte {
	type row struct {
		ent    *ecs.Entity
		parent uint64
	}
	var rows []row
	e.world.Walk(func(ent *ecs.Entity) bool {
		var parent uint64
		if p := ent.Parent(); p != nil {
			parent = uint64(p.ID())
		}
		rows = append(rows, row{ent, parent})
		return true
	})
	selected := e.world.Selected()

	w := packet.NewWriter(packet.S_TREE)
	w.WriteH(uint16(len(rows)))
	for _, r := range rows {
		w.WriteQ(uint64(r.ent.ID()))
		w.WriteQ(r.parent)
		w.WriteS(r.ent.Name())
		w.WriteS(r.ent.Tag())
		w.WriteD(int32(r.ent.Layer()))
		var flags byte
		if r.ent.Enabled() {
			flags |= packet.FlagEnabled
		}
		if r.ent.Scripted() {
			flags |= packet.FlagScripted
		}
		if r.ent == selected {
			flags |= packet.FlagSelected
		}
		w.WriteC(flags)
		comps := r.ent.Components()
		w.WriteH(uint16(len(comps)))
		for _, c := range comps {
			w.WriteS(c.Kind())
		}
	}
	return w.Bytes()
}
