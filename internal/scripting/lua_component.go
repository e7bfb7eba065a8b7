package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// luaBehaviour is a component backed by a Lua table. Optional fields:
// name, awake(self), update(self, dt), destroy(self). A failing callback
// disables the component and is reported to the world as a RuntimeFault.
type luaBehaviour struct {
	ecs.Base
	u    *luaUnit
	tbl  *lua.LTable
	kind string

	// outer is the value attached to the entity.
	outer ecs.Component
}

// luaRenderBehaviour adds render(self, batch), contains(self, x, y) and the
// layer/order sort fields.
type luaRenderBehaviour struct {
	luaBehaviour
}

func (u *luaUnit) newBehaviour(tbl *lua.LTable) ecs.Component {
	kind := "LuaBehaviour"
	if s, ok := tbl.RawGetString("name").(lua.LString); ok && s != "" {
		kind = string(s)
	}
	if u.vm.GetField(tbl, "render").Type() == lua.LTFunction {
		rb := &luaRenderBehaviour{luaBehaviour: luaBehaviour{u: u, tbl: tbl, kind: kind}}
		rb.outer = rb
		return rb
	}
	b := &luaBehaviour{u: u, tbl: tbl, kind: kind}
	b.outer = b
	return b
}

func (b *luaBehaviour) Kind() string { return b.kind }

func (b *luaBehaviour) invoke(hook string, args ...lua.LValue) bool {
	if b.u.closed {
		return false
	}
	fn := b.u.vm.GetField(b.tbl, hook)
	if fn.Type() != lua.LTFunction {
		return false
	}
	if err := b.u.call(fn, append([]lua.LValue{b.tbl}, args...)...); err != nil {
		if w := b.World(); w != nil {
			w.ReportFault(b.outer, hook, &RuntimeFault{Hook: "component." + hook, Err: err})
		}
		return false
	}
	return true
}

func (b *luaBehaviour) Awake()            { b.invoke("awake") }
func (b *luaBehaviour) Update(dt float64) { b.invoke("update", lua.LNumber(dt)) }
func (b *luaBehaviour) OnDestroy()        { b.invoke("destroy") }

func (b *luaRenderBehaviour) SortKey() ecs.SortKey {
	k := ecs.SortKey{Order: int(lua.LVAsNumber(b.tbl.RawGetString("order")))}
	switch v := b.tbl.RawGetString("layer").(type) {
	case lua.LNumber:
		k.Layer = int(v)
	case lua.LString:
		if w := b.World(); w != nil {
			k.Layer = w.SortingLayer(string(v))
		}
	}
	return k
}

func (b *luaRenderBehaviour) Render(batch render.Batch, cam *render.Camera) {
	u := b.u
	if u.closed {
		return
	}
	if u.batchUD == nil {
		u.batchUD = u.vm.NewUserData()
		u.batchUD.Value = &luaBatch{}
		u.vm.SetMetatable(u.batchUD, u.vm.GetTypeMetatable(luaBatchType))
	}
	lb := u.batchUD.Value.(*luaBatch)
	lb.b = batch
	lb.layer = b.SortKey().Layer
	b.invoke("render", u.batchUD)
	lb.b = nil
}

func (b *luaRenderBehaviour) Contains(p geom.Vec2) bool {
	u := b.u
	if u.closed {
		return false
	}
	fn := u.vm.GetField(b.tbl, "contains")
	if fn.Type() != lua.LTFunction {
		return false
	}
	if err := u.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, b.tbl, lua.LNumber(p.X), lua.LNumber(p.Y)); err != nil {
		return false
	}
	ret := u.vm.Get(-1)
	u.vm.Pop(1)
	return lua.LVAsBool(ret)
}
