package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/project"
)

// State is the Host lifecycle state.
type State int

const (
	StateIdle State = iota
	StateCompiling
	StateRunning
	StateStopping
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCompiling:
		return "Compiling"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Resources is the tracked loader the Host sweeps on every stop.
type Resources interface {
	ecs.Assets
	DisposeAll() int
	SetResolver(r *asset.Resolver)
}

// RunRecord describes one settled load attempt.
type RunRecord struct {
	RunID      string
	Project    string
	Entry      string
	Language   string
	Digest     string
	State      State
	Diagnostic string
	At         time.Time
}

// HostOptions wires a Host. World, Resources and Compiler are required.
type HostOptions struct {
	World          *ecs.World
	Resources      Resources
	Compiler       Compiler
	Components     *component.Registry
	Bus            *event.Bus
	Log            *zap.Logger
	CompileTimeout time.Duration
	CallOnStop     bool
	Entry          string // overrides every manifest's entry when set
}

type compileResult struct {
	gen   uint64
	runID string
	proj  *project.Project
	unit  Unit
	err   error
}

// Host owns at most one running script unit and drives it from the frame
// goroutine. Only LoadAsync may be called from elsewhere.
type Host struct {
	world      *ecs.World
	res        Resources
	compiler   Compiler
	components *component.Registry
	bus        *event.Bus
	log        *zap.Logger
	timeout    time.Duration
	callOnStop bool
	entry      string

	state  State
	runID  string
	diag   string
	err    error
	digest string
	proj   *project.Project
	unit   Unit
	inst   Instance
	scoped bool
	fault  error
	opened string
	onOpen func(*project.Project) error

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	ready   *compileResult
	records []RunRecord
}

func NewHost(opts HostOptions) *Host {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	comps := opts.Components
	if comps == nil {
		comps = component.NewRegistry()
	}
	h := &Host{
		world:      opts.World,
		res:        opts.Resources,
		compiler:   opts.Compiler,
		components: comps,
		bus:        opts.Bus,
		log:        log,
		timeout:    opts.CompileTimeout,
		callOnStop: opts.CallOnStop,
		entry:      opts.Entry,
	}
	h.world.OnFault(h.onComponentFault)
	return h
}

func (h *Host) State() State       { return h.state }
func (h *Host) RunID() string      { return h.runID }
func (h *Host) Diagnostic() string { return h.diag }
func (h *Host) Err() error         { return h.err }

// Project returns the project of the current or last load attempt.
func (h *Host) Project() *project.Project { return h.proj }

// Unit returns the live unit, or nil.
func (h *Host) Unit() Unit { return h.unit }

// Load stops whatever runs, then compiles and starts the project at root.
// A failure leaves the Host in StateFailed and is also returned.
func (h *Host) Load(ctx context.Context, root string) error {
	h.Stop()
	runID := ulid.Make().String()
	h.runID = runID
	h.transition(StateCompiling, "")
	proj, unit, err := h.compile(ctx, root)
	return h.apply(&compileResult{runID: runID, proj: proj, unit: unit, err: err})
}

// LoadAsync compiles on a worker goroutine. The result is applied by the
// next Tick; a newer request supersedes one still in flight.
func (h *Host) LoadAsync(ctx context.Context, root string) {
	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.cancelLocked()
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.ready = nil
	h.mu.Unlock()

	runID := ulid.Make().String()
	h.log.Info("compile queued", zap.String("src", "Host"), zap.String("run", runID), zap.String("project", root))
	go func() {
		defer cancel()
		proj, unit, err := h.compile(ctx, root)
		h.mu.Lock()
		defer h.mu.Unlock()
		if gen != h.gen {
			if unit != nil {
				unit.Close()
			}
			h.log.Debug("compile superseded", zap.String("src", "Host"), zap.String("run", runID))
			return
		}
		h.ready = &compileResult{gen: gen, runID: runID, proj: proj, unit: unit, err: err}
	}()
}

// Pending reports whether an async compile has not been applied yet.
func (h *Host) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil || h.ready != nil
}

func (h *Host) cancelLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.ready != nil && h.ready.unit != nil {
		h.ready.unit.Close()
	}
	h.ready = nil
}

func (h *Host) compile(ctx context.Context, root string) (*project.Project, Unit, error) {
	proj, err := project.Open(root)
	if err != nil {
		return nil, nil, &CompileError{Entry: root, Msg: "open project", Err: err}
	}
	if h.entry != "" {
		proj.Manifest.Entry = h.entry
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	unit, err := h.compiler.Compile(ctx, proj)
	if err != nil {
		return proj, nil, err
	}
	h.log.Debug("compiled", zap.String("src", "Host"), zap.String("entry", unit.Entry()),
		zap.Duration("took", time.Since(start)))
	return proj, unit, nil
}

// Tick applies a finished async compile, then runs one onUpdate.
func (h *Host) Tick(dt float64) {
	h.mu.Lock()
	r := h.ready
	if r != nil {
		h.ready = nil
		h.cancel = nil
	}
	h.mu.Unlock()
	if r != nil {
		h.stop()
		h.runID = r.runID
		h.transition(StateCompiling, "")
		_ = h.apply(r)
	}

	if h.state != StateRunning {
		return
	}
	if h.fault != nil {
		h.fail(h.fault)
		return
	}
	if err := h.inst.OnUpdate(dt); err != nil {
		h.fail(err)
	}
}

func (h *Host) apply(r *compileResult) error {
	h.proj = r.proj
	h.digest = ""
	if r.proj != nil {
		h.res.SetResolver(asset.NewResolver(r.proj.AssetsPath()))
		h.open(r.proj)
	}
	if r.err != nil {
		h.fail(r.err)
		return r.err
	}
	env := &Env{World: h.world, Assets: h.res, Components: h.components, Log: h.log}
	inst, err := r.unit.Instantiate(env)
	if err != nil {
		r.unit.Close()
		h.fail(err)
		return err
	}
	h.unit = r.unit
	h.inst = inst
	h.digest = r.unit.Digest()
	h.fault = nil
	h.world.BeginScriptScope()
	h.scoped = true
	if err := inst.OnStart(h.world); err != nil {
		h.fail(err)
		return err
	}
	h.transition(StateRunning, "")
	return nil
}

// OnOpen registers fn to run when a load opens a project other than the one
// already open, before the script starts. Entities fn creates are not
// script-owned and survive stops and reloads.
func (h *Host) OnOpen(fn func(*project.Project) error) { h.onOpen = fn }

func (h *Host) open(p *project.Project) {
	if p.Root == h.opened {
		return
	}
	h.opened = p.Root
	if h.onOpen == nil {
		return
	}
	if err := h.onOpen(p); err != nil {
		h.log.Warn("project open incomplete", zap.String("src", "Host"),
			zap.String("project", p.Manifest.Name), zap.Error(err))
	}
}

func (h *Host) fail(err error) {
	h.err = err
	h.endScope()
	var rf *RuntimeFault
	if errors.As(err, &rf) && h.bus != nil {
		event.Emit(h.bus, event.ScriptFault{RunID: h.runID, Hook: rf.Hook, Err: rf.Err.Error()})
	}
	h.log.Error("script failed", zap.String("src", "Host"), zap.String("run", h.runID), zap.Error(err))
	h.transition(StateFailed, err.Error())
}

// onComponentFault catches faults raised by script-made components during
// World.Update; the Host fails at its next Tick.
func (h *Host) onComponentFault(c ecs.Component, hook string, err error) {
	if h.state != StateRunning || h.fault != nil || !scriptOwned(c) {
		return
	}
	var rf *RuntimeFault
	if !errors.As(err, &rf) {
		err = &RuntimeFault{Hook: c.Kind() + "." + hook, Err: err}
	}
	h.fault = err
}

func scriptOwned(c ecs.Component) bool {
	switch c.(type) {
	case *ecs.Behaviour, *luaBehaviour, *luaRenderBehaviour:
		return true
	}
	e := ecs.EntityOf(c)
	return e != nil && e.Scripted()
}

func (h *Host) endScope() {
	if h.scoped {
		h.world.EndScriptScope()
		h.scoped = false
	}
}

// Stop drops any compile still in flight, then tears the current unit down:
// onStop, resource sweep, scripted entities, unit. The teardown is a no-op
// when nothing is loaded, so a repeated stop never sweeps twice.
func (h *Host) Stop() {
	h.mu.Lock()
	h.gen++
	h.cancelLocked()
	h.mu.Unlock()
	h.stop()
}

func (h *Host) stop() {
	if h.unit == nil {
		if h.state == StateFailed {
			h.transition(StateIdle, "")
		}
		return
	}
	wasRunning := h.state == StateRunning
	h.transition(StateStopping, "")

	if s, ok := h.inst.(Stopper); ok && h.callOnStop && wasRunning {
		if err := s.OnStop(); err != nil {
			h.log.Warn("onStop failed", zap.String("src", "Host"), zap.String("run", h.runID), zap.Error(err))
		}
	}
	released := h.res.DisposeAll()
	cleared := h.world.ClearScripted()
	h.endScope()
	h.unit.Close()
	h.unit = nil
	h.inst = nil
	h.fault = nil
	h.log.Info("script stopped", zap.String("src", "Host"), zap.String("run", h.runID),
		zap.Int("released", released), zap.Int("entities", cleared))
	h.transition(StateIdle, "")
}

// Shutdown stops and forgets the opened project.
func (h *Host) Shutdown() {
	h.Stop()
	h.opened = ""
}

func (h *Host) transition(to State, diag string) {
	from := h.state
	h.state = to
	h.diag = diag
	if h.bus != nil {
		event.Emit(h.bus, event.HostStateChanged{RunID: h.runID, From: from.String(), To: to.String(), Diagnostic: diag})
	}
	h.log.Debug("host state", zap.String("src", "Host"), zap.String("run", h.runID),
		zap.Stringer("from", from), zap.Stringer("to", to))
	if to == StateRunning || to == StateFailed || (to == StateIdle && from == StateStopping) {
		h.record(to, diag)
	}
}

func (h *Host) record(s State, diag string) {
	rec := RunRecord{RunID: h.runID, Digest: h.digest, State: s, Diagnostic: diag, At: time.Now()}
	if h.proj != nil {
		rec.Project = h.proj.Manifest.Name
		rec.Entry = h.proj.Manifest.Entry
		rec.Language = h.proj.Manifest.Language
	}
	h.mu.Lock()
	h.records = append(h.records, rec)
	h.mu.Unlock()
}

// DrainRecords returns and forgets the settled run records.
func (h *Host) DrainRecords() []RunRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.records
	h.records = nil
	return out
}
