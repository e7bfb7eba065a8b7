// Package scripting compiles a project's script sources into a runnable
// entry point and drives it through the Host state machine.
package scripting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/project"
)

// Env is what running script code may reach. It is bound when the unit is
// instantiated, after compilation finished.
type Env struct {
	World      *ecs.World
	Assets     ecs.Assets
	Components *component.Registry
	Log        *zap.Logger
}

// Compiler turns a project's sources into a Unit.
type Compiler interface {
	Compile(ctx context.Context, proj *project.Project) (Unit, error)
}

// Unit is one compiled script set. It owns the interpreter state; Close
// releases it and every value created from it.
type Unit interface {
	Entry() string
	Digest() string
	Instantiate(env *Env) (Instance, error)
	Close()
}

// Instance is the entry-point object the Host drives.
type Instance interface {
	OnStart(w *ecs.World) error
	OnUpdate(dt float64) error
}

// Stopper is implemented by instances whose entry type defines onStop.
type Stopper interface {
	OnStop() error
}

// Dispatcher picks the backend matching the project's language.
type Dispatcher struct {
	Lua *LuaCompiler
	Go  *GoCompiler
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{Lua: NewLuaCompiler(log), Go: NewGoCompiler(log)}
}

func (d *Dispatcher) Compile(ctx context.Context, proj *project.Project) (Unit, error) {
	switch proj.Manifest.Language {
	case project.LangGo:
		return d.Go.Compile(ctx, proj)
	case project.LangLua:
		return d.Lua.Compile(ctx, proj)
	}
	return nil, &CompileError{Entry: proj.Manifest.Entry, Msg: fmt.Sprintf("unsupported language %q", proj.Manifest.Language)}
}

func (e *Env) logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
