package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/project"
)

const hostLua = `
local Main = class("com.mygame.Main")

function Main:onStart(world)
  self.world = world
  self.player = world:createEntity("Player")
  world:createEntity("Child"):setParent(self.player)
end

function Main:onUpdate(dt)
  local t = self.player:transform()
  t:translate(1, 0)
  local x = t:position()
  if x >= 2 then error("boom") end
end

function Main:onStop()
  local cam = self.world:find("Camera")
  if cam then cam:setName("Stopped") end
end
`

func TestHostSyntaxErrorLeavesWorldUntouched(t *testing.T) {
	f := newHostFixture(t, false)
	f.world.CreateEntity("Camera")
	before := f.world.Count()
	root := writeProject(t, map[string]string{"Scripts/main.lua": "local Main = class(\"com.mygame.Main\"\n"})

	err := f.host.Load(context.Background(), root)
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("Load err = %v, want CompileError", err)
	}
	if f.host.State() != StateFailed {
		t.Errorf("State = %v, want Failed", f.host.State())
	}
	if f.host.Diagnostic() == "" {
		t.Error("Diagnostic empty")
	}
	if f.world.Count() != before {
		t.Errorf("Count = %d, want %d", f.world.Count(), before)
	}
}

func TestHostReloadSweepsOnce(t *testing.T) {
	f := newHostFixture(t, false)
	f.world.CreateEntity("Camera")
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	ctx := context.Background()

	if err := f.host.Load(ctx, root); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.host.State() != StateRunning {
		t.Fatalf("State = %v, want Running", f.host.State())
	}
	firstRun := f.host.RunID()
	if err := f.host.Load(ctx, root); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if f.res.disposes != 1 {
		t.Errorf("disposes after reload = %d, want 1", f.res.disposes)
	}
	if f.host.RunID() == firstRun {
		t.Error("reload kept the run id")
	}
	if f.world.Count() != 3 {
		t.Errorf("Count = %d, want 3", f.world.Count())
	}

	f.host.Stop()
	f.host.Stop()
	if f.res.disposes != 2 {
		t.Errorf("disposes after stop = %d, want 2", f.res.disposes)
	}
	if f.host.State() != StateIdle {
		t.Errorf("State = %v, want Idle", f.host.State())
	}
	if f.world.Find("Player") != nil || f.world.Find("Child") != nil {
		t.Error("scripted entities survived stop")
	}
	if f.world.Find("Camera") == nil {
		t.Error("scene entity removed by stop")
	}
}

func TestHostUpdateFaultSuppressesFurtherUpdates(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		f.host.Tick(0.016)
	}
	if f.host.State() != StateFailed {
		t.Fatalf("State = %v, want Failed", f.host.State())
	}
	var rf *RuntimeFault
	if !errors.As(f.host.Err(), &rf) || rf.Hook != "onUpdate" {
		t.Errorf("Err = %v, want RuntimeFault in onUpdate", f.host.Err())
	}
	// Failed leaves the world as it was.
	p := f.world.Find("Player")
	if p == nil {
		t.Fatal("Player removed on failure")
	}
	if x := p.Transform().Position.X; x != 2 {
		t.Errorf("X = %v, want 2", x)
	}

	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatalf("recovery Load: %v", err)
	}
	if f.host.State() != StateRunning {
		t.Errorf("State = %v, want Running", f.host.State())
	}
	if f.res.disposes != 1 {
		t.Errorf("disposes = %d, want 1", f.res.disposes)
	}
}

func TestHostStartFaultKeepsPartialWorld(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": `
local Main = class("com.mygame.Main")
function Main:onStart(world)
  world:createEntity("Half")
  error("start failed")
end
function Main:onUpdate(dt) end
`})
	if err := f.host.Load(context.Background(), root); err == nil {
		t.Fatal("Load succeeded")
	}
	if f.host.State() != StateFailed {
		t.Errorf("State = %v, want Failed", f.host.State())
	}
	if f.world.Find("Half") == nil {
		t.Error("partial state rolled back")
	}
	f.host.Stop()
	if f.world.Find("Half") != nil {
		t.Error("Half survived stop")
	}
	if f.res.disposes != 1 {
		t.Errorf("disposes = %d, want 1", f.res.disposes)
	}
}

func TestHostComponentFaultFailsNextTick(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": `
local Main = class("com.mygame.Main")
function Main:onStart(world)
  world:createEntity("Bad"):addBehaviour({update = function(self) error("nope") end})
end
function Main:onUpdate(dt) end
`})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	f.world.Update(0.016)
	if f.host.State() != StateRunning {
		t.Errorf("State = %v before Tick, want Running", f.host.State())
	}
	f.host.Tick(0.016)
	if f.host.State() != StateFailed {
		t.Errorf("State = %v, want Failed", f.host.State())
	}
}

func TestHostCallsOnStop(t *testing.T) {
	f := newHostFixture(t, true)
	f.world.CreateEntity("Camera")
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	f.host.Stop()
	if f.world.Find("Stopped") == nil {
		t.Error("onStop did not run")
	}
}

func TestHostLoadAsyncAppliesOnTick(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	f.host.LoadAsync(context.Background(), root)
	if !f.host.Pending() {
		t.Error("Pending = false right after LoadAsync")
	}
	deadline := time.Now().Add(5 * time.Second)
	for f.host.State() != StateRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		f.host.Tick(0)
	}
	if f.host.State() != StateRunning {
		t.Fatalf("State = %v, want Running", f.host.State())
	}
	if f.host.Pending() {
		t.Error("Pending = true after apply")
	}
	if f.world.Find("Player") == nil {
		t.Error("Player missing")
	}
}

func TestHostEventsAndRecords(t *testing.T) {
	f := newHostFixture(t, false)
	var seen []string
	event.Subscribe(f.bus, func(e event.HostStateChanged) { seen = append(seen, e.To) })
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	f.host.Stop()
	f.bus.SwapBuffers()
	f.bus.DispatchAll()

	want := []string{"Compiling", "Running", "Stopping", "Idle"}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, seen[i], want[i])
		}
	}

	recs := f.host.DrainRecords()
	if len(recs) != 2 || recs[0].State != StateRunning || recs[1].State != StateIdle {
		t.Fatalf("records = %+v", recs)
	}
	if recs[0].RunID != recs[1].RunID || recs[0].Digest == "" || recs[0].Language != "lua" {
		t.Errorf("records = %+v", recs)
	}
	if len(f.host.DrainRecords()) != 0 {
		t.Error("DrainRecords did not clear")
	}
}

func TestHostRunsGoProject(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"project.yaml": goManifest, "Scripts/main.go": goMain})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.world.Update(0.016)
	f.host.Tick(0.016)
	if f.host.State() != StateRunning {
		t.Errorf("State = %v, want Running", f.host.State())
	}
	f.host.Stop()
	if f.world.Count() != 0 {
		t.Errorf("Count = %d, want 0", f.world.Count())
	}
}

func TestHostStopDropsPendingLoad(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": hostLua})
	f.host.LoadAsync(context.Background(), root)
	f.host.Stop()
	if f.host.Pending() {
		t.Error("Pending = true after Stop")
	}

	time.Sleep(300 * time.Millisecond)
	for i := 0; i < 3; i++ {
		f.host.Tick(0)
	}
	if f.host.State() != StateIdle {
		t.Errorf("State = %v, want Idle", f.host.State())
	}
	if f.world.Find("Player") != nil {
		t.Error("stopped load still started")
	}
}

func TestHostInitFaultIsRuntimeFault(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{"Scripts/main.lua": `
local Main = class("com.mygame.Main")
function Main:init() error("bad init") end
function Main:onStart(world) end
function Main:onUpdate(dt) end
`})
	err := f.host.Load(context.Background(), root)
	var rf *RuntimeFault
	if !errors.As(err, &rf) || rf.Hook != "init" {
		t.Fatalf("err = %v, want RuntimeFault in init", err)
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		t.Error("init fault reported as CompileError")
	}
	if f.host.State() != StateFailed {
		t.Errorf("State = %v, want Failed", f.host.State())
	}
}

func TestHostOpensEachProjectOnce(t *testing.T) {
	f := newHostFixture(t, false)
	var opened []string
	f.host.OnOpen(func(p *project.Project) error {
		opened = append(opened, p.Manifest.Name)
		f.world.CreateEntity("Ground")
		return nil
	})
	first := writeProject(t, map[string]string{"project.yaml": "name: first\n", "Scripts/main.lua": hostLua})
	second := writeProject(t, map[string]string{"project.yaml": "name: second\n", "Scripts/main.lua": hostLua})
	ctx := context.Background()

	if err := f.host.Load(ctx, first); err != nil {
		t.Fatal(err)
	}
	ground := f.world.Find("Ground")
	if ground == nil || ground.Scripted() {
		t.Fatal("opened entity missing or script-owned")
	}
	if err := f.host.Load(ctx, first); err != nil {
		t.Fatal(err)
	}
	if len(opened) != 1 {
		t.Errorf("opened = %v after reload, want one open", opened)
	}
	f.host.Stop()
	if f.world.Find("Ground") != ground {
		t.Error("scene entity did not survive stop")
	}

	if err := f.host.Load(ctx, second); err != nil {
		t.Fatal(err)
	}
	if len(opened) != 2 || opened[1] != "second" {
		t.Errorf("opened = %v, want [first second]", opened)
	}
}

func TestHostAssetsExistThroughWrappedResources(t *testing.T) {
	f := newHostFixture(t, false)
	root := writeProject(t, map[string]string{
		"assets/hero.txt": "x",
		"Scripts/main.lua": `
local Main = class("com.mygame.Main")
function Main:onStart(world)
  if assets.exists("hero.txt") then world:createEntity("Found") end
  if assets.exists("nope.txt") then world:createEntity("Wrong") end
end
function Main:onUpdate(dt) end
`,
	})
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if f.world.Find("Found") == nil {
		t.Error("existing asset reported missing")
	}
	if f.world.Find("Wrong") != nil {
		t.Error("missing asset reported present")
	}
}
