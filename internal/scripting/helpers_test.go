package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goldsprite/gdengine/internal/asset"
	"github.com/goldsprite/gdengine/internal/component"
	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/core/event"
	"github.com/goldsprite/gdengine/internal/project"
)

// writeProject lays files out under a fresh temp dir and returns its root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, text := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func openProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	p, err := project.Open(writeProject(t, files))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return p
}

func newEnv(w *ecs.World) *Env {
	return &Env{World: w, Assets: asset.NewTracker(nil, nil), Components: component.NewRegistry()}
}

// countingResources counts sweeps on top of a real tracker.
type countingResources struct {
	*asset.Tracker
	disposes int
}

func (c *countingResources) DisposeAll() int {
	c.disposes++
	return c.Tracker.DisposeAll()
}

type hostFixture struct {
	host  *Host
	world *ecs.World
	res   *countingResources
	bus   *event.Bus
}

func newHostFixture(t *testing.T, onStop bool) *hostFixture {
	t.Helper()
	bus := event.NewBus()
	res := &countingResources{Tracker: asset.NewTracker(nil, nil)}
	w := ecs.NewWorld(ecs.Options{Bus: bus, Assets: res})
	h := NewHost(HostOptions{
		World:      w,
		Resources:  res,
		Compiler:   NewDispatcher(nil),
		Bus:        bus,
		CallOnStop: onStop,
	})
	return &hostFixture{host: h, world: w, res: res, bus: bus}
}
