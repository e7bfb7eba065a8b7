package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadOverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
[engine]
mode = "release"

[runtime]
tick_rate = "20ms"
headless = true

[render]
sorting_layers = ["Back", "Front"]

[link]
enabled = false
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Mode != "release" || cfg.Engine.Name != "gdengine" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Runtime.TickRate != 20*time.Millisecond || !cfg.Runtime.Headless || cfg.Runtime.TimeScale != 1 {
		t.Errorf("Runtime = %+v", cfg.Runtime)
	}
	if len(cfg.Render.SortingLayers) != 2 || cfg.Render.SortingLayers[1] != "Front" {
		t.Errorf("SortingLayers = %v", cfg.Render.SortingLayers)
	}
	if cfg.Link.Enabled || cfg.Link.MaxCommandsPerTick != 32 {
		t.Errorf("Link = %+v", cfg.Link)
	}
	if cfg.Engine.StartTime == 0 {
		t.Error("StartTime not set")
	}
}

func TestLoadRejectsBadMode(t *testing.T) {
	p := writeConfig(t, "[engine]\nmode = \"debug\"\n")
	if _, err := Load(p); err == nil {
		t.Error("Load accepted mode debug")
	}
}

func TestLoadRejectsBadProfile(t *testing.T) {
	p := writeConfig(t, "[profile]\nmode = \"block\"\n")
	if _, err := Load(p); err == nil {
		t.Error("Load accepted profile block")
	}
}

func TestLoadDefaultFromEnv(t *testing.T) {
	p := writeConfig(t, "[logging]\nformat = \"json\"\n")
	t.Setenv(EnvPath, p)
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %s, want json", cfg.Logging.Format)
	}
}

func TestLoadDefaultMissingFile(t *testing.T) {
	t.Setenv(EnvPath, "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Runtime.TickRate != time.Second/60 {
		t.Errorf("TickRate = %v", cfg.Runtime.TickRate)
	}
}
