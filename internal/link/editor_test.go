package link

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/link/packet"
	"github.com/goldsprite/gdengine/internal/persist"
	"github.com/goldsprite/gdengine/internal/scene"
	"github.com/goldsprite/gdengine/internal/scripting"
)

type fixture struct {
	editor *Editor
	world  *ecs.World
	host   *scripting.Host
	bus    *event.Bus
	client net.Conn
	sess   *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

func newFixtureWith(t *testing.T, configure func(*EditorOptions)) *fixture {
	t.Helper()
	bus := event.NewBus()
	tracker := asset.NewTracker(nil, nil)
	w := ecs.NewWorld(ecs.Options{Bus: bus, Assets: tracker})
	reg := component.NewRegistry()
	h := scripting.NewHost(scripting.HostOptions{
		World:      w,
		Resources:  tracker,
		Compiler:   scripting.NewDispatcher(nil),
		Components: reg,
		Bus:        bus,
	})
	opts := EditorOptions{
		World:      w,
		Host:       h,
		Bus:        bus,
		Codec:      scene.NewCodec(reg, nil),
		EngineName: "test",
	}
	if configure != nil {
		configure(&opts)
	}
	ed := NewEditor(opts)

	server, client := net.Pipe()
	sess := NewSession(server, 1, 8, 64, nil)
	sess.Start()
	ed.Attach(sess)
	t.Cleanup(func() {
		client.Close()
		ed.Shutdown()
	})
	return &fixture{editor: ed, world: w, host: h, bus: bus, client: client, sess: sess}
}

func (f *fixture) send(t *testing.T, w *packet.Writer) {
	t.Helper()
	if err := WriteFrame(f.client, w.Bytes()); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
}

// frame runs one engine frame: input, event dispatch, output.
func (f *fixture) frame() {
	f.editor.ProcessInput()
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	f.editor.Flush()
}

// expect runs frames until a payload with opcode op arrives.
func (f *fixture) expect(t *testing.T, op byte) *packet.Reader {
	t.Helper()
	frames := make(chan []byte, 64)
	errs := make(chan error, 1)
	go func() {
		for {
			p, err := ReadFrame(f.client)
			if err != nil {
				errs <- err
				return
			}
			frames <- p
			if p[0] == op {
				return
			}
		}
	}()
	deadline := time.After(3 * time.Second)
	for {
		f.frame()
		select {
		case p := <-frames:
			if p[0] == op {
				return packet.NewReader(p)
			}
		case err := <-errs:
			t.Fatalf("waiting for %s: %v", packet.OpcodeName(op), err)
		case <-deadline:
			t.Fatalf("timed out waiting for %s", packet.OpcodeName(op))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func hello() *packet.Writer {
	w := packet.NewWriter(packet.C_HELLO)
	w.WriteH(packet.Protocol)
	w.WriteS("test-editor")
	return w
}

func TestHelloSendsStateAndTree(t *testing.T) {
	f := newFixture(t)
	f.world.CreateEntity("Camera")
	f.send(t, hello())

	r := f.expect(t, packet.S_HELLO)
	if v := r.ReadH(); v != packet.Protocol {
		t.Errorf("protocol = %d", v)
	}
	if name := r.ReadS(); name != "test" {
		t.Errorf("engine = %q, want test", name)
	}
	if st := r.ReadS(); st != "Idle" {
		t.Errorf("host state = %q, want Idle", st)
	}
	if f.sess.State() != packet.StateReady {
		t.Errorf("State = %v, want Ready", f.sess.State())
	}

	r = f.expect(t, packet.S_TREE)
	if n := r.ReadH(); n != 1 {
		t.Fatalf("tree rows = %d, want 1", n)
	}
	r.ReadQ()
	if p := r.ReadQ(); p != 0 {
		t.Errorf("parent = %d, want 0", p)
	}
	if name := r.ReadS(); name != "Camera" {
		t.Errorf("name = %q, want Camera", name)
	}
}

func TestCommandBeforeHelloClosesSession(t *testing.T) {
	f := newFixture(t)
	f.send(t, packet.NewWriter(packet.C_STOP))
	deadline := time.Now().Add(2 * time.Second)
	for !f.sess.IsClosed() && time.Now().Before(deadline) {
		f.editor.ProcessInput()
		time.Sleep(5 * time.Millisecond)
	}
	if !f.sess.IsClosed() {
		t.Fatal("session still open")
	}
	f.editor.ProcessInput()
	if f.editor.Sessions() != 0 {
		t.Errorf("Sessions = %d, want 0", f.editor.Sessions())
	}
}

func TestReparentRejectsCycle(t *testing.T) {
	f := newFixture(t)
	parent := f.world.CreateEntity("Parent")
	child := f.world.CreateEntity("Child")
	if err := f.world.SetParent(child, parent, -1); err != nil {
		t.Fatal(err)
	}
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_REPARENT)
	w.WriteQ(uint64(parent.ID()))
	w.WriteQ(uint64(child.ID()))
	w.WriteD(-1)
	f.send(t, w)

	r := f.expect(t, packet.S_RESULT)
	if op := r.ReadC(); op != packet.C_REPARENT {
		t.Errorf("op = %d", op)
	}
	if ok := r.ReadC(); ok != 0 {
		t.Error("cycle accepted")
	}
	if parent.Parent() != nil {
		t.Error("tree changed")
	}
}

func TestSelectBroadcastsSelection(t *testing.T) {
	f := newFixture(t)
	ent := f.world.CreateEntity("Target")
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_SELECT)
	w.WriteQ(uint64(ent.ID()))
	f.send(t, w)

	r := f.expect(t, packet.S_SELECTION)
	if id := r.ReadQ(); id != uint64(ent.ID()) {
		t.Errorf("selection = %d, want %d", id, ent.ID())
	}
	if f.world.Selected() != ent {
		t.Error("world selection not moved")
	}
}

const playerScript = "local Main = class(\"com.mygame.Main\")\nfunction Main:onStart(w) w:createEntity(\"Player\") end\nfunction Main:onUpdate(dt) end\n"

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Scripts"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Scripts", "main.lua"), []byte(playerScript), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func expectResult(t *testing.T, f *fixture, op byte) (bool, string) {
	t.Helper()
	r := f.expect(t, packet.S_RESULT)
	if got := r.ReadC(); got != op {
		t.Fatalf("result for %s, want %s", packet.OpcodeName(got), packet.OpcodeName(op))
	}
	ok := r.ReadC() != 0
	return ok, r.ReadS()
}

func TestLoadProjectPushesHostState(t *testing.T) {
	f := newFixture(t)
	root := writeProject(t)
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_LOAD_PROJECT)
	w.WriteS(root)
	f.send(t, w)

	for {
		r := f.expect(t, packet.S_HOST_STATE)
		r.ReadS()
		r.ReadS()
		if to := r.ReadS(); to == "Running" {
			break
		}
	}
	if f.host.State() != scripting.StateRunning {
		t.Errorf("host = %v, want Running", f.host.State())
	}
	if f.world.Find("Player") == nil {
		t.Error("Player missing")
	}
}

func TestPing(t *testing.T) {
	f := newFixture(t)
	f.send(t, hello())
	f.expect(t, packet.S_TREE)
	w := packet.NewWriter(packet.C_PING)
	w.WriteD(42)
	f.send(t, w)
	if tok := f.expect(t, packet.S_PONG).ReadD(); tok != 42 {
		t.Errorf("token = %d, want 42", tok)
	}
}

func TestLogCoreEmitsLines(t *testing.T) {
	bus := event.NewBus()
	var got []event.LogLine
	event.Subscribe(bus, func(l event.LogLine) { got = append(got, l) })
	log := zap.New(NewLogCore(bus, zapcore.InfoLevel))

	log.Info("compiled", zap.String("src", "Compiler"))
	log.With(zap.String("src", "Host")).Warn("stopped")
	log.Debug("hidden", zap.String("src", "Host"))
	log.Info("echo", zap.String("src", "Link"))
	bus.SwapBuffers()
	bus.DispatchAll()

	if len(got) != 2 {
		t.Fatalf("lines = %+v, want 2", got)
	}
	if got[0].Src != "Compiler" || got[0].Level != "info" || got[0].Msg != "compiled" {
		t.Errorf("line 0 = %+v", got[0])
	}
	if got[1].Src != "Host" || got[1].Level != "warn" {
		t.Errorf("line 1 = %+v", got[1])
	}
}

func TestLoadSceneAppendsSceneEntities(t *testing.T) {
	f := newFixture(t)
	src := ecs.NewWorld(ecs.Options{})
	src.CreateEntity("Backdrop")
	path := filepath.Join(t.TempDir(), "level.yaml")
	if err := scene.NewCodec(nil, nil).Save(path, src); err != nil {
		t.Fatal(err)
	}
	f.world.CreateEntity("Camera")
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_LOAD_SCENE)
	w.WriteS(path)
	w.WriteC(0)
	f.send(t, w)
	if ok, msg := expectResult(t, f, packet.C_LOAD_SCENE); !ok {
		t.Fatalf("load scene failed: %s", msg)
	}
	if f.world.Find("Camera") == nil || f.world.Find("Backdrop") == nil {
		t.Error("additive scene load lost or missed entities")
	}

	w = packet.NewWriter(packet.C_LOAD_SCENE)
	w.WriteS("")
	w.WriteC(1)
	f.send(t, w)
	if ok, _ := expectResult(t, f, packet.C_LOAD_SCENE); ok {
		t.Error("project scene load without a project should fail")
	}
}

type fakeSnapshots struct {
	doc     []byte
	project string
	name    string
}

func (s *fakeSnapshots) Latest(_ context.Context, project, name string) (*persist.SceneSnapshot, error) {
	s.project, s.name = project, name
	return &persist.SceneSnapshot{ID: 7, Project: project, Name: name, Document: s.doc}, nil
}

type fakeRuns struct {
	rows  []persist.RunRow
	limit int
}

func (r *fakeRuns) History(_ context.Context, _ string, limit int) ([]persist.RunRow, error) {
	r.limit = limit
	return r.rows, nil
}

func TestRestoreSnapshotStopsScript(t *testing.T) {
	saved := ecs.NewWorld(ecs.Options{})
	saved.CreateEntity("Saved")
	doc, err := scene.NewCodec(nil, nil).Marshal(saved)
	if err != nil {
		t.Fatal(err)
	}
	snaps := &fakeSnapshots{doc: doc}
	f := newFixtureWith(t, func(o *EditorOptions) { o.Snapshots = snaps })
	root := writeProject(t)
	if err := f.host.Load(context.Background(), root); err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_RESTORE)
	w.WriteS("")
	f.send(t, w)
	if ok, msg := expectResult(t, f, packet.C_RESTORE); !ok {
		t.Fatalf("restore failed: %s", msg)
	}
	if snaps.name != "shutdown" || snaps.project != filepath.Base(root) {
		t.Errorf("Latest(%q, %q), want project %q, name shutdown", snaps.project, snaps.name, filepath.Base(root))
	}
	if f.host.State() != scripting.StateIdle {
		t.Errorf("host = %v, want Idle", f.host.State())
	}
	if f.world.Find("Player") != nil {
		t.Error("script entity survived restore")
	}
	if e := f.world.Find("Saved"); e == nil || e.Scripted() {
		t.Error("restored entity missing or script-owned")
	}
}

func TestRestoreWithoutStore(t *testing.T) {
	f := newFixture(t)
	f.send(t, hello())
	f.expect(t, packet.S_TREE)
	w := packet.NewWriter(packet.C_RESTORE)
	w.WriteS("")
	f.send(t, w)
	if ok, msg := expectResult(t, f, packet.C_RESTORE); ok || msg != errNoStore.Error() {
		t.Errorf("ok=%v msg=%q, want store error", ok, msg)
	}
}

func TestRunHistory(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	runs := &fakeRuns{rows: []persist.RunRow{
		{RunID: "B", Entry: "com.mygame.Main", Language: "lua", State: "Failed", Diagnostic: "boom", At: at},
		{RunID: "A", Entry: "com.mygame.Main", Language: "lua", State: "Running", At: at},
	}}
	f := newFixtureWith(t, func(o *EditorOptions) { o.Runs = runs })
	if err := f.host.Load(context.Background(), writeProject(t)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	f.send(t, hello())
	f.expect(t, packet.S_TREE)

	w := packet.NewWriter(packet.C_RUN_HISTORY)
	w.WriteH(5)
	f.send(t, w)
	r := f.expect(t, packet.S_HISTORY)
	if n := r.ReadH(); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
	if id := r.ReadS(); id != "B" {
		t.Errorf("first run = %q, want B", id)
	}
	r.ReadS()
	r.ReadS()
	r.ReadS()
	if st := r.ReadS(); st != "Failed" {
		t.Errorf("state = %q, want Failed", st)
	}
	if d := r.ReadS(); d != "boom" {
		t.Errorf("diagnostic = %q, want boom", d)
	}
	if ms := r.ReadQ(); ms != uint64(at.UnixMilli()) {
		t.Errorf("at = %d, want %d", ms, at.UnixMilli())
	}
	if runs.limit != 5 {
		t.Errorf("limit = %d, want 5", runs.limit)
	}
}
