package scripting

import (
	"context"
	"errors"
	"testing"

	"github.com/goldsprite/gdengine/internal/core/ecs"
)

const goManifest = "language: go\nentry: com.mygame.Main\n"

const goMain = `package game

import (
	"gdengine/component"
	"gdengine/ecs"
	"gdengine/render"
)

type Main struct {
	player *ecs.Entity
	ticks  int
}

func (m *Main) OnStart(w *ecs.World) {
	m.player = w.CreateEntity("Player")
	m.player.Transform().SetPosition(10, 20)
	m.player.AddComponent(component.NewRect(8, 8, render.Red))
	m.player.AddComponent(ecs.NewBehaviour("Drift", func(b *ecs.Behaviour, dt float64) {
		b.Transform().Translate(0, 1)
	}))
}

func (m *Main) OnUpdate(dt float64) {
	m.ticks++
	m.player.Transform().Translate(1, 0)
	if m.ticks > 100 {
		panic("too many ticks")
	}
}
`

func compileGo(t *testing.T, files map[string]string) (Unit, error) {
	t.Helper()
	files["project.yaml"] = goManifest
	p := openProject(t, files)
	return NewGoCompiler(nil).Compile(context.Background(), p)
}

func TestGoUnitRunsHooks(t *testing.T) {
	u, err := compileGo(t, map[string]string{"Scripts/main.go": goMain})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer u.Close()
	w := ecs.NewWorld(ecs.Options{})
	inst, err := u.Instantiate(newEnv(w))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if err := inst.OnStart(w); err != nil {
		t.Fatalf("OnStart: %v", err)
	}
	w.Update(0.016)
	if err := inst.OnUpdate(0.016); err != nil {
		t.Fatalf("OnUpdate: %v", err)
	}
	p := w.Find("Player")
	if p == nil {
		t.Fatal("Player not created")
	}
	if got := p.Transform().Position; got.X != 11 || got.Y != 21 {
		t.Errorf("Position = %v, want (11, 21)", got)
	}
	if p.Component("Shape") == nil {
		t.Error("Shape missing")
	}

	u.Close()
	if p.Component("Drift") != nil {
		t.Error("behaviour survived Close")
	}
}

func TestGoSyntaxErrorHasLocation(t *testing.T) {
	_, err := compileGo(t, map[string]string{"Scripts/main.go": "package main\n\nfunc (m *Main) OnStart( {\n}\n"})
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CompileError", err)
	}
	if ce.File != "main.go" || ce.Line != 3 {
		t.Errorf("location = %s:%d, want main.go:3", ce.File, ce.Line)
	}
}

func TestGoMissingEntry(t *testing.T) {
	_, err := compileGo(t, map[string]string{"Scripts/main.go": "package main\n\ntype Other struct{}\n"})
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestGoMissingHooks(t *testing.T) {
	_, err := compileGo(t, map[string]string{"Scripts/main.go": "package main\n\ntype Main struct{}\n\nfunc (m *Main) OnStop() {}\n"})
	var mc *MissingCapabilityError
	if !errors.As(err, &mc) {
		t.Fatalf("err = %v, want MissingCapabilityError", err)
	}
	if len(mc.Missing) != 2 {
		t.Errorf("Missing = %v, want OnStart and OnUpdate", mc.Missing)
	}
}

func TestGoPanicBecomesRuntimeFault(t *testing.T) {
	u, err := compileGo(t, map[string]string{"Scripts/main.go": `package main

import "gdengine/ecs"

type Main struct{}

func (m *Main) OnStart(w *ecs.World) {}
func (m *Main) OnUpdate(dt float64) { panic("boom") }
`})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer u.Close()
	inst, err := u.Instantiate(newEnv(ecs.NewWorld(ecs.Options{})))
	if err != nil {
		t.Fatal(err)
	}
	err = inst.OnUpdate(0.1)
	var rf *RuntimeFault
	if !errors.As(err, &rf) || rf.Hook != "OnUpdate" {
		t.Errorf("err = %v, want RuntimeFault in OnUpdate", err)
	}
}

func TestNormalizeGoSource(t *testing.T) {
	got := normalizeGoSource("//go:build ignore\n\npackage game\n\nvar packageName = 1\n")
	want := "\n\npackage main\n\nvar packageName = 1\n"
	if got != want {
		t.Errorf("normalizeGoSource = %q, want %q", got, want)
	}
}
