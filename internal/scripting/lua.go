package scripting

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/project"
)

// LuaCompiler loads a project's .lua sources into a fresh gopher-lua VM per
// compile. The entry type is a table declared with class("pkg.Name") or
// reachable through the dotted global path.
type LuaCompiler struct {
	log *zap.Logger
}

func NewLuaCompiler(log *zap.Logger) *LuaCompiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LuaCompiler{log: log}
}

var (
	luaSyntaxLoc  = regexp.MustCompile(`line:(\d+)\(column:\d+\)`)
	luaRuntimeLoc = regexp.MustCompile(`^([^:\s]+):(\d+):\s*(.*)`)
)

func (c *LuaCompiler) Compile(ctx context.Context, proj *project.Project) (Unit, error) {
	entry := proj.Manifest.Entry
	srcs, err := proj.Sources()
	if err != nil {
		return nil, &CompileError{Entry: entry, Err: err}
	}
	if len(srcs) == 0 {
		return nil, &CompileError{Entry: entry, File: proj.Manifest.ScriptsDir, Err: ErrNoSources}
	}

	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	openLibs(vm)
	u := &luaUnit{
		vm:      vm,
		log:     c.log,
		entry:   entry,
		digest:  project.Digest(srcs),
		classes: vm.NewTable(),
		uds:     make(map[any]*lua.LUserData),
	}
	u.registerAPI()

	vm.SetContext(ctx)
	for _, s := range srcs {
		fn, err := vm.Load(strings.NewReader(s.Text), s.Rel)
		if err != nil {
			vm.Close()
			return nil, luaCompileError(entry, s.Rel, err)
		}
		vm.Push(fn)
		if err := vm.PCall(0, 0, nil); err != nil {
			vm.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &CompileError{Entry: entry, File: s.Rel, Msg: "compile aborted", Err: ctxErr}
			}
			return nil, luaCompileError(entry, s.Rel, err)
		}
		c.log.Debug("loaded lua script", zap.String("src", "Compiler"), zap.String("file", s.Rel))
	}
	vm.RemoveContext()

	cls := u.lookupClass(entry)
	if cls == nil {
		vm.Close()
		return nil, &CompileError{Entry: entry, Msg: fmt.Sprintf("class %s not defined", entry), Err: ErrSymbolNotFound}
	}
	var missing []string
	for _, hook := range []string{"onStart", "onUpdate"} {
		if vm.GetField(cls, hook).Type() != lua.LTFunction {
			missing = append(missing, hook)
		}
	}
	if len(missing) > 0 {
		vm.Close()
		return nil, &MissingCapabilityError{Entry: entry, Missing: missing}
	}
	u.cls = cls
	c.log.Info("lua unit compiled", zap.String("src", "Compiler"), zap.String("entry", entry),
		zap.Int("files", len(srcs)), zap.String("digest", u.digest[:12]))
	return u, nil
}

func openLibs(vm *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.fn))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}
}

func luaCompileError(entry, file string, err error) *CompileError {
	msg := err.Error()
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	msg = strings.TrimSpace(msg)
	ce := &CompileError{Entry: entry, File: file, Msg: msg, Err: err}
	if m := luaSyntaxLoc.FindStringSubmatch(msg); m != nil {
		ce.Line, _ = strconv.Atoi(m[1])
	} else if m := luaRuntimeLoc.FindStringSubmatch(msg); m != nil {
		ce.Line, _ = strconv.Atoi(m[2])
		ce.Msg = m[3]
	}
	return ce
}

// luaUnit owns one VM. Single-goroutine access only: compiled on any
// goroutine, then handed to the frame goroutine.
type luaUnit struct {
	vm      *lua.LState
	log     *zap.Logger
	entry   string
	digest  string
	classes *lua.LTable
	cls     *lua.LTable
	env     *Env
	closed  bool

	uds        map[any]*lua.LUserData
	behaviours []ecs.Component
	batchUD    *lua.LUserData
}

func (u *luaUnit) Entry() string  { return u.entry }
func (u *luaUnit) Digest() string { return u.digest }

func (u *luaUnit) lookupClass(entry string) *lua.LTable {
	if t, ok := u.classes.RawGetString(entry).(*lua.LTable); ok {
		return t
	}
	var cur lua.LValue = u.vm.G.Global
	for _, part := range strings.Split(entry, ".") {
		t, ok := cur.(*lua.LTable)
		if !ok {
			cur = lua.LNil
			break
		}
		cur = t.RawGetString(part)
	}
	if t, ok := cur.(*lua.LTable); ok {
		return t
	}
	short := entry[strings.LastIndex(entry, ".")+1:]
	if t, ok := u.vm.GetGlobal(short).(*lua.LTable); ok {
		return t
	}
	return nil
}

// luaClass implements class(name [, base]).
func (u *luaUnit) luaClass(L *lua.LState) int {
	name := L.CheckString(1)
	cls := L.NewTable()
	if base, ok := L.Get(2).(*lua.LTable); ok {
		mt := L.NewTable()
		mt.RawSetString("__index", base)
		L.SetMetatable(cls, mt)
	}
	cls.RawSetString("__name", lua.LString(name))
	u.classes.RawSetString(name, cls)
	L.Push(cls)
	return 1
}

func (u *luaUnit) Instantiate(env *Env) (Instance, error) {
	if u.closed {
		return nil, errors.New("unit closed")
	}
	u.env = env
	inst := u.vm.NewTable()
	mt := u.vm.NewTable()
	mt.RawSetString("__index", u.cls)
	u.vm.SetMetatable(inst, mt)
	if init := u.vm.GetField(u.cls, "init"); init.Type() == lua.LTFunction {
		if err := u.call(init, inst); err != nil {
			return nil, &RuntimeFault{Hook: "init", Err: err}
		}
	}
	return &luaInstance{u: u, self: inst}, nil
}

func (u *luaUnit) call(fn lua.LValue, args ...lua.LValue) error {
	return u.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
}

// Close detaches every behaviour this unit created, then releases the VM.
func (u *luaUnit) Close() {
	if u.closed {
		return
	}
	for i := len(u.behaviours) - 1; i >= 0; i-- {
		b := u.behaviours[i]
		if e := ecs.EntityOf(b); e != nil {
			e.RemoveComponent(b)
		}
	}
	u.behaviours = nil
	u.closed = true
	u.uds = nil
	u.env = nil
	u.vm.Close()
}

type luaInstance struct {
	u    *luaUnit
	self *lua.LTable
}

func (i *luaInstance) hook(name string, args ...lua.LValue) error {
	if i.u.closed {
		return nil
	}
	fn := i.u.vm.GetField(i.self, name)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := i.u.call(fn, append([]lua.LValue{i.self}, args...)...); err != nil {
		return &RuntimeFault{Hook: name, Err: err}
	}
	return nil
}

func (i *luaInstance) OnStart(w *ecs.World) error {
	return i.hook("onStart", i.u.wrapWorld(w))
}

func (i *luaInstance) OnUpdate(dt float64) error {
	return i.hook("onUpdate", lua.LNumber(dt))
}

func (i *luaInstance) OnStop() error {
	return i.hook("onStop")
}
