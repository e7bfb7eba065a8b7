package scripting

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

const (
	luaWorldType     = "gd.World"
	luaEntityType    = "gd.Entity"
	luaTransformType = "gd.Transform"
	luaComponentType = "gd.Component"
	luaTextureType   = "gd.Texture"
	luaBatchType     = "gd.Batch"
)

func (u *luaUnit) registerAPI() {
	L := u.vm
	L.SetGlobal("API_VERSION", lua.LNumber(1))
	L.SetGlobal("class", L.NewFunction(u.luaClass))
	L.SetGlobal("print", L.NewFunction(u.logFn("info")))

	u.registerType(luaWorldType, map[string]lua.LGFunction{
		"createEntity":     u.worldCreateEntity,
		"find":             u.worldFind,
		"findByTag":        u.worldFindByTag,
		"roots":            u.worldRoots,
		"destroy":          u.worldDestroy,
		"destroyImmediate": u.worldDestroyImmediate,
		"setParent":        u.worldSetParent,
		"select":           u.worldSelect,
		"count":            u.worldCount,
		"time":             u.worldTime,
		"delta":            u.worldDelta,
		"setTimeScale":     u.worldSetTimeScale,
		"setPaused":        u.worldSetPaused,
	})
	u.registerType(luaEntityType, map[string]lua.LGFunction{
		"id":           u.entityID,
		"name":         u.entityName,
		"setName":      u.entitySetName,
		"tag":          u.entityTag,
		"setTag":       u.entitySetTag,
		"layer":        u.entityLayer,
		"setLayer":     u.entitySetLayer,
		"enabled":      u.entityEnabled,
		"setEnabled":   u.entitySetEnabled,
		"isDestroyed":  u.entityIsDestroyed,
		"transform":    u.entityTransform,
		"parent":       u.entityParent,
		"children":     u.entityChildren,
		"setParent":    u.entitySetParent,
		"destroy":      u.entityDestroy,
		"addComponent": u.entityAddComponent,
		"component":    u.entityComponent,
		"addBehaviour": u.entityAddBehaviour,
	})
	u.registerType(luaTransformType, map[string]lua.LGFunction{
		"position":      u.transformPosition,
		"setPosition":   u.transformSetPosition,
		"translate":     u.transformTranslate,
		"rotation":      u.transformRotation,
		"setRotation":   u.transformSetRotation,
		"rotate":        u.transformRotate,
		"scale":         u.transformScale,
		"setScale":      u.transformSetScale,
		"worldPosition": u.transformWorldPosition,
	})
	u.registerType(luaComponentType, map[string]lua.LGFunction{
		"kind":       u.componentKind,
		"get":        u.componentGet,
		"set":        u.componentSet,
		"enabled":    u.componentEnabled,
		"setEnabled": u.componentSetEnabled,
		"remove":     u.componentRemove,
		"entity":     u.componentEntity,
	})
	u.registerType(luaTextureType, map[string]lua.LGFunction{
		"path": u.texturePath,
		"size": u.textureSize,
	})
	u.registerType(luaBatchType, map[string]lua.LGFunction{
		"drawRect":    u.batchDrawRect,
		"drawLine":    u.batchDrawLine,
		"drawPolygon": u.batchDrawPolygon,
	})

	assets := L.NewTable()
	L.SetFuncs(assets, map[string]lua.LGFunction{
		"loadTexture": u.assetsLoadTexture,
		"exists":      u.assetsExists,
	})
	L.SetGlobal("assets", assets)

	logT := L.NewTable()
	L.SetFuncs(logT, map[string]lua.LGFunction{
		"debug": u.logFn("debug"),
		"info":  u.logFn("info"),
		"warn":  u.logFn("warn"),
		"error": u.logFn("error"),
	})
	L.SetGlobal("log", logT)
}

func (u *luaUnit) registerType(name string, methods map[string]lua.LGFunction) {
	L := u.vm
	mt := L.NewTypeMetatable(name)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		L.Push(lua.LString(fmt.Sprintf("%s(%v)", name, describe(ud.Value))))
		return 1
	}))
}

func describe(v any) string {
	switch x := v.(type) {
	case *ecs.Entity:
		return x.Path()
	case ecs.Component:
		return x.Kind()
	case *asset.Texture:
		return x.Path()
	}
	return ""
}

// wrap returns the cached userdata for v so that identity comparisons in
// Lua hold across calls.
func (u *luaUnit) wrap(v any, typ string) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	if ud, ok := u.uds[v]; ok {
		return ud
	}
	ud := u.vm.NewUserData()
	ud.Value = v
	u.vm.SetMetatable(ud, u.vm.GetTypeMetatable(typ))
	u.uds[v] = ud
	return ud
}

func (u *luaUnit) wrapWorld(w *ecs.World) lua.LValue { return u.wrap(w, luaWorldType) }

func (u *luaUnit) wrapEntity(e *ecs.Entity) lua.LValue {
	if e == nil {
		return lua.LNil
	}
	return u.wrap(e, luaEntityType)
}

func (u *luaUnit) wrapComponent(c ecs.Component) lua.LValue {
	if c == nil {
		return lua.LNil
	}
	if t, ok := c.(*ecs.Transform); ok {
		return u.wrap(t, luaTransformType)
	}
	return u.wrap(c, luaComponentType)
}

func checkWorld(L *lua.LState) *ecs.World {
	if w, ok := L.CheckUserData(1).Value.(*ecs.World); ok {
		return w
	}
	L.ArgError(1, "world expected")
	return nil
}

func checkEntityAt(L *lua.LState, n int) *ecs.Entity {
	if e, ok := L.CheckUserData(n).Value.(*ecs.Entity); ok {
		return e
	}
	L.ArgError(n, "entity expected")
	return nil
}

func optEntityAt(L *lua.LState, n int) *ecs.Entity {
	if L.Get(n) == lua.LNil {
		return nil
	}
	return checkEntityAt(L, n)
}

func checkTransform(L *lua.LState) *ecs.Transform {
	if t, ok := L.CheckUserData(1).Value.(*ecs.Transform); ok {
		return t
	}
	L.ArgError(1, "transform expected")
	return nil
}

func checkComponent(L *lua.LState) ecs.Component {
	if c, ok := L.CheckUserData(1).Value.(ecs.Component); ok {
		return c
	}
	L.ArgError(1, "component expected")
	return nil
}

func checkColor(L *lua.LState, n int) render.Color {
	v := L.Get(n)
	if v == lua.LNil {
		return render.White
	}
	c, err := render.ParseColor(lua.LVAsString(v))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return c
}

// luaIndex converts a 1-based Lua index; 0 or nil appends.
func luaIndex(L *lua.LState, n int) int {
	i := L.OptInt(n, 0)
	if i <= 0 {
		return -1
	}
	return i - 1
}

// --- world ---

func (u *luaUnit) worldCreateEntity(L *lua.LState) int {
	w := checkWorld(L)
	e := w.CreateEntity(L.OptString(2, "Entity"))
	L.Push(u.wrapEntity(e))
	return 1
}

func (u *luaUnit) worldFind(L *lua.LState) int {
	w := checkWorld(L)
	L.Push(u.wrapEntity(w.Find(L.CheckString(2))))
	return 1
}

func (u *luaUnit) worldFindByTag(L *lua.LState) int {
	w := checkWorld(L)
	t := L.NewTable()
	for _, e := range w.FindByTag(L.CheckString(2)) {
		t.Append(u.wrapEntity(e))
	}
	L.Push(t)
	return 1
}

func (u *luaUnit) worldRoots(L *lua.LState) int {
	w := checkWorld(L)
	t := L.NewTable()
	for _, e := range w.Roots() {
		if !e.IsDestroyed() {
			t.Append(u.wrapEntity(e))
		}
	}
	L.Push(t)
	return 1
}

func (u *luaUnit) worldDestroy(L *lua.LState) int {
	w := checkWorld(L)
	w.Destroy(checkEntityAt(L, 2))
	return 0
}

func (u *luaUnit) worldDestroyImmediate(L *lua.LState) int {
	w := checkWorld(L)
	w.DestroyImmediate(checkEntityAt(L, 2))
	return 0
}

// worldSetParent returns true on success, or false plus a message.
func (u *luaUnit) worldSetParent(L *lua.LState) int {
	w := checkWorld(L)
	err := w.SetParent(checkEntityAt(L, 2), optEntityAt(L, 3), luaIndex(L, 4))
	return pushResult(L, err)
}

func (u *luaUnit) worldSelect(L *lua.LState) int {
	w := checkWorld(L)
	w.Select(optEntityAt(L, 2))
	return 0
}

func (u *luaUnit) worldCount(L *lua.LState) int {
	L.Push(lua.LNumber(checkWorld(L).Count()))
	return 1
}

func (u *luaUnit) worldTime(L *lua.LState) int {
	L.Push(lua.LNumber(checkWorld(L).TotalTime()))
	return 1
}

func (u *luaUnit) worldDelta(L *lua.LState) int {
	L.Push(lua.LNumber(checkWorld(L).Delta()))
	return 1
}

func (u *luaUnit) worldSetTimeScale(L *lua.LState) int {
	checkWorld(L).SetTimeScale(float64(L.CheckNumber(2)))
	return 0
}

func (u *luaUnit) worldSetPaused(L *lua.LState) int {
	checkWorld(L).SetPaused(L.ToBool(2))
	return 0
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// --- entity ---

func (u *luaUnit) entityID(L *lua.LState) int {
	L.Push(lua.LNumber(checkEntityAt(L, 1).ID()))
	return 1
}

func (u *luaUnit) entityName(L *lua.LState) int {
	L.Push(lua.LString(checkEntityAt(L, 1).Name()))
	return 1
}

func (u *luaUnit) entitySetName(L *lua.LState) int {
	checkEntityAt(L, 1).SetName(L.CheckString(2))
	return 0
}

func (u *luaUnit) entityTag(L *lua.LState) int {
	L.Push(lua.LString(checkEntityAt(L, 1).Tag()))
	return 1
}

func (u *luaUnit) entitySetTag(L *lua.LState) int {
	checkEntityAt(L, 1).SetTag(L.CheckString(2))
	return 0
}

func (u *luaUnit) entityLayer(L *lua.LState) int {
	L.Push(lua.LNumber(checkEntityAt(L, 1).Layer()))
	return 1
}

func (u *luaUnit) entitySetLayer(L *lua.LState) int {
	checkEntityAt(L, 1).SetLayer(L.CheckInt(2))
	return 0
}

func (u *luaUnit) entityEnabled(L *lua.LState) int {
	L.Push(lua.LBool(checkEntityAt(L, 1).Enabled()))
	return 1
}

func (u *luaUnit) entitySetEnabled(L *lua.LState) int {
	checkEntityAt(L, 1).SetEnabled(L.ToBool(2))
	return 0
}

func (u *luaUnit) entityIsDestroyed(L *lua.LState) int {
	L.Push(lua.LBool(checkEntityAt(L, 1).IsDestroyed()))
	return 1
}

func (u *luaUnit) entityTransform(L *lua.LState) int {
	e := checkEntityAt(L, 1)
	if t := e.Transform(); t != nil {
		L.Push(u.wrap(t, luaTransformType))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

func (u *luaUnit) entityParent(L *lua.LState) int {
	L.Push(u.wrapEntity(checkEntityAt(L, 1).Parent()))
	return 1
}

func (u *luaUnit) entityChildren(L *lua.LState) int {
	t := L.NewTable()
	for _, c := range checkEntityAt(L, 1).Children() {
		t.Append(u.wrapEntity(c))
	}
	L.Push(t)
	return 1
}

func (u *luaUnit) entitySetParent(L *lua.LState) int {
	e := checkEntityAt(L, 1)
	return pushResult(L, e.SetParent(optEntityAt(L, 2), luaIndex(L, 3)))
}

func (u *luaUnit) entityDestroy(L *lua.LState) int {
	checkEntityAt(L, 1).Destroy()
	return 0
}

// entityAddComponent implements entity:addComponent(kind [, fields]).
func (u *luaUnit) entityAddComponent(L *lua.LState) int {
	e := checkEntityAt(L, 1)
	kind := L.CheckString(2)
	if u.env == nil || u.env.Components == nil {
		L.RaiseError("addComponent: no component registry")
		return 0
	}
	c, err := u.env.Components.New(kind)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if fields, ok := L.Get(3).(*lua.LTable); ok {
		var ferr error
		fields.ForEach(func(k, v lua.LValue) {
			if ferr != nil {
				return
			}
			ferr = setProperty(c, lua.LVAsString(k), v)
		})
		if ferr != nil {
			L.RaiseError("addComponent %s: %s", kind, ferr.Error())
			return 0
		}
	}
	attached, err := e.AddComponent(c)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(u.wrapComponent(attached))
	return 1
}

func (u *luaUnit) entityComponent(L *lua.LState) int {
	e := checkEntityAt(L, 1)
	L.Push(u.wrapComponent(e.Component(L.CheckString(2))))
	return 1
}

// entityAddBehaviour implements entity:addBehaviour(tbl).
func (u *luaUnit) entityAddBehaviour(L *lua.LState) int {
	e := checkEntityAt(L, 1)
	tbl := L.CheckTable(2)
	b := u.newBehaviour(tbl)
	tbl.RawSetString("entity", u.wrapEntity(e))
	if _, err := e.AddComponent(b); err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	u.behaviours = append(u.behaviours, b)
	L.Push(u.wrapComponent(b))
	return 1
}

// --- transform ---

func (u *luaUnit) transformPosition(L *lua.LState) int {
	t := checkTransform(L)
	L.Push(lua.LNumber(t.Position.X))
	L.Push(lua.LNumber(t.Position.Y))
	return 2
}

func (u *luaUnit) transformSetPosition(L *lua.LState) int {
	checkTransform(L).SetPosition(float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
	return 0
}

func (u *luaUnit) transformTranslate(L *lua.LState) int {
	checkTransform(L).Translate(float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
	return 0
}

func (u *luaUnit) transformRotation(L *lua.LState) int {
	L.Push(lua.LNumber(checkTransform(L).Rotation))
	return 1
}

func (u *luaUnit) transformSetRotation(L *lua.LState) int {
	checkTransform(L).Rotation = float64(L.CheckNumber(2))
	return 0
}

func (u *luaUnit) transformRotate(L *lua.LState) int {
	checkTransform(L).Rotation += float64(L.CheckNumber(2))
	return 0
}

func (u *luaUnit) transformScale(L *lua.LState) int {
	t := checkTransform(L)
	L.Push(lua.LNumber(t.Scale.X))
	L.Push(lua.LNumber(t.Scale.Y))
	return 2
}

func (u *luaUnit) transformSetScale(L *lua.LState) int {
	t := checkTransform(L)
	x := float64(L.CheckNumber(2))
	t.Scale = geom.Vec2{X: x, Y: float64(L.OptNumber(3, lua.LNumber(x)))}
	return 0
}

func (u *luaUnit) transformWorldPosition(L *lua.LState) int {
	p := checkTransform(L).WorldPosition()
	L.Push(lua.LNumber(p.X))
	L.Push(lua.LNumber(p.Y))
	return 2
}

// --- component ---

func (u *luaUnit) componentKind(L *lua.LState) int {
	L.Push(lua.LString(checkComponent(L).Kind()))
	return 1
}

func (u *luaUnit) componentGet(L *lua.LState) int {
	c := checkComponent(L)
	p, ok := ecs.FindProperty(c, L.CheckString(2))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, p.Type, p.Get()))
	return 1
}

func (u *luaUnit) componentSet(L *lua.LState) int {
	c := checkComponent(L)
	if err := setProperty(c, L.CheckString(2), L.Get(3)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

type enabler interface {
	Enabled() bool
	SetEnabled(bool)
}

func (u *luaUnit) componentEnabled(L *lua.LState) int {
	en, ok := checkComponent(L).(enabler)
	L.Push(lua.LBool(ok && en.Enabled()))
	return 1
}

func (u *luaUnit) componentSetEnabled(L *lua.LState) int {
	if en, ok := checkComponent(L).(enabler); ok {
		en.SetEnabled(L.ToBool(2))
	}
	return 0
}

func (u *luaUnit) componentRemove(L *lua.LState) int {
	c := checkComponent(L)
	e := ecs.EntityOf(c)
	L.Push(lua.LBool(e != nil && e.RemoveComponent(c)))
	return 1
}

func (u *luaUnit) componentEntity(L *lua.LState) int {
	L.Push(u.wrapEntity(ecs.EntityOf(checkComponent(L))))
	return 1
}

func setProperty(c ecs.Component, name string, v lua.LValue) error {
	p, ok := ecs.FindProperty(c, name)
	if !ok {
		return fmt.Errorf("%s has no property %q", c.Kind(), name)
	}
	if p.Access == ecs.ReadOnly || p.Set == nil {
		return fmt.Errorf("%s.%s is read-only", c.Kind(), name)
	}
	gv, err := fromLua(p.Type, v)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", c.Kind(), name, err)
	}
	return p.Set(gv)
}

func toLua(L *lua.LState, t ecs.PropType, v any) lua.LValue {
	switch t {
	case ecs.PropFloat:
		return lua.LNumber(v.(float64))
	case ecs.PropInt:
		return lua.LNumber(v.(int))
	case ecs.PropBool:
		return lua.LBool(v.(bool))
	case ecs.PropString:
		return lua.LString(v.(string))
	case ecs.PropVec2:
		p := v.(geom.Vec2)
		tbl := L.NewTable()
		tbl.RawSetString("x", lua.LNumber(p.X))
		tbl.RawSetString("y", lua.LNumber(p.Y))
		return tbl
	case ecs.PropColor:
		return lua.LString(v.(render.Color).Hex())
	}
	return lua.LNil
}

func fromLua(t ecs.PropType, v lua.LValue) (any, error) {
	switch t {
	case ecs.PropFloat:
		n, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("want number, got %s", v.Type())
		}
		return float64(n), nil
	case ecs.PropInt:
		n, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("want number, got %s", v.Type())
		}
		return int(n), nil
	case ecs.PropBool:
		b, ok := v.(lua.LBool)
		if !ok {
			return nil, fmt.Errorf("want boolean, got %s", v.Type())
		}
		return bool(b), nil
	case ecs.PropString:
		s, ok := v.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("want string, got %s", v.Type())
		}
		return string(s), nil
	case ecs.PropVec2:
		tbl, ok := v.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("want {x, y}, got %s", v.Type())
		}
		x, y := tbl.RawGetString("x"), tbl.RawGetString("y")
		if x == lua.LNil {
			x, y = tbl.RawGetInt(1), tbl.RawGetInt(2)
		}
		return geom.Vec2{X: float64(lua.LVAsNumber(x)), Y: float64(lua.LVAsNumber(y))}, nil
	case ecs.PropColor:
		return render.ParseColor(lua.LVAsString(v))
	}
	return nil, fmt.Errorf("unsupported property type %s", t)
}

// --- assets ---

// assetsLoadTexture returns a texture handle, or nil plus a message when the
// file is missing. It never raises.
func (u *luaUnit) assetsLoadTexture(L *lua.LState) int {
	path := L.CheckString(1)
	if u.env == nil || u.env.Assets == nil {
		u.log.Warn("assets.loadTexture before start", zap.String("src", "Asset"), zap.String("path", path))
		L.Push(lua.LNil)
		L.Push(lua.LString("no asset loader"))
		return 2
	}
	tex, err := u.env.Assets.LoadTexture(path)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(u.wrap(tex, luaTextureType))
	return 1
}

func (u *luaUnit) assetsExists(L *lua.LState) int {
	path := L.CheckString(1)
	ok := u.env != nil && u.env.Assets != nil && u.env.Assets.Exists(path)
	L.Push(lua.LBool(ok))
	return 1
}

func (u *luaUnit) texturePath(L *lua.LState) int {
	tex, ok := L.CheckUserData(1).Value.(*asset.Texture)
	if !ok {
		L.ArgError(1, "texture expected")
		return 0
	}
	L.Push(lua.LString(tex.Path()))
	return 1
}

func (u *luaUnit) textureSize(L *lua.LState) int {
	tex, ok := L.CheckUserData(1).Value.(*asset.Texture)
	if !ok {
		L.ArgError(1, "texture expected")
		return 0
	}
	w, h := tex.Size()
	L.Push(lua.LNumber(w))
	L.Push(lua.LNumber(h))
	return 2
}

// --- batch ---

type luaBatch struct {
	b     render.Batch
	layer int
}

func checkBatch(L *lua.LState) *luaBatch {
	if b, ok := L.CheckUserData(1).Value.(*luaBatch); ok && b.b != nil {
		return b
	}
	L.ArgError(1, "batch is only valid inside render")
	return nil
}

// drawRect(x, y, w, h [, color [, filled [, rotation]]]), centred on x, y.
func (u *luaUnit) batchDrawRect(L *lua.LState) int {
	b := checkBatch(L)
	r := geom.RectAround(geom.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))},
		float64(L.CheckNumber(4)), float64(L.CheckNumber(5)))
	b.b.DrawRect(r, float64(L.OptNumber(8, 0)), checkColor(L, 6), optBool(L, 7, true), b.layer)
	return 0
}

// drawLine(x1, y1, x2, y2 [, color [, width]]).
func (u *luaUnit) batchDrawLine(L *lua.LState) int {
	b := checkBatch(L)
	a := geom.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
	c := geom.Vec2{X: float64(L.CheckNumber(4)), Y: float64(L.CheckNumber(5))}
	b.b.DrawLine(a, c, float64(L.OptNumber(7, 1)), checkColor(L, 6), b.layer)
	return 0
}

// drawPolygon(x, y, radius, sides [, color [, filled [, rotation]]]).
func (u *luaUnit) batchDrawPolygon(L *lua.LState) int {
	b := checkBatch(L)
	center := geom.Vec2{X: float64(L.CheckNumber(2)), Y: float64(L.CheckNumber(3))}
	b.b.DrawRegularPolygon(center, float64(L.CheckNumber(4)), L.CheckInt(5),
		float64(L.OptNumber(8, 0)), checkColor(L, 6), optBool(L, 7, true), b.layer)
	return 0
}

func optBool(L *lua.LState, n int, def bool) bool {
	if L.Get(n) == lua.LNil {
		return def
	}
	return L.ToBool(n)
}

// --- log ---

func (u *luaUnit) logFn(level string) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		msg := strings.Join(parts, " ")
		log := u.log
		if u.env != nil && u.env.Log != nil {
			log = u.env.Log
		}
		fields := []zap.Field{zap.String("src", "Script"), zap.String("entry", u.entry)}
		switch level {
		case "debug":
			log.Debug(msg, fields...)
		case "warn":
			log.Warn(msg, fields...)
		case "error":
			log.Error(msg, fields...)
		default:
			log.Info(msg, fields...)
		}
		return 0
	}
}
