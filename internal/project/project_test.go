package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenDefaultsWithoutManifest(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Scripts/main.lua", []byte("-- hi"))
	p, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m := p.Manifest
	if m.Entry != DefaultEntry || m.Language != LangLua || m.ScriptsDir != "Scripts" || m.AssetsDir != "assets" {
		t.Errorf("Manifest = %+v", m)
	}
	if p.AssetsPath() != filepath.Join(p.Root, "assets") {
		t.Errorf("AssetsPath = %s", p.AssetsPath())
	}
}

func TestOpenReadsManifest(t *testing.T) {
	root := t.TempDir()
	write(t, root, ManifestFile, []byte("name: Demo\nentry: game.Main\nlanguage: Go\nscripts_dir: src\nscene: scenes/main.yaml\n"))
	p, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Manifest.Name != "Demo" || p.Manifest.Entry != "game.Main" || p.Manifest.Language != LangGo {
		t.Errorf("Manifest = %+v", p.Manifest)
	}
	if p.Extension() != ".go" {
		t.Errorf("Extension = %s", p.Extension())
	}
	if p.ScenePath() != filepath.Join(p.Root, "scenes", "main.yaml") {
		t.Errorf("ScenePath = %s", p.ScenePath())
	}
}

func TestOpenRejectsUnknownLanguage(t *testing.T) {
	root := t.TempDir()
	write(t, root, ManifestFile, []byte("language: cobol\n"))
	if _, err := Open(root); err == nil {
		t.Error("Open accepted cobol")
	}
}

func TestDetectLanguageFromSources(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Scripts/a.go", []byte("package main"))
	write(t, root, "Scripts/b.go", []byte("package main"))
	write(t, root, "Scripts/c.lua", []byte(""))
	p, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if p.Manifest.Language != LangGo {
		t.Errorf("Language = %s, want go", p.Manifest.Language)
	}
}

func TestSourcesRecursiveSortedAndDecoded(t *testing.T) {
	root := t.TempDir()
	write(t, root, "Scripts/z.lua", []byte("z"))
	write(t, root, "Scripts/sub/a.lua", append([]byte{0xEF, 0xBB, 0xBF}, []byte("bom8")...))
	write(t, root, "Scripts/u16.lua", []byte{0xFF, 0xFE, 'h', 0, 'i', 0})
	write(t, root, "Scripts/.hidden/x.lua", []byte("x"))
	write(t, root, "Scripts/readme.txt", []byte("no"))
	p, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	srcs, err := p.Sources()
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	want := []struct{ rel, text string }{{"sub/a.lua", "bom8"}, {"u16.lua", "hi"}, {"z.lua", "z"}}
	if len(srcs) != len(want) {
		t.Fatalf("sources = %+v", srcs)
	}
	for i, w := range want {
		if srcs[i].Rel != w.rel || srcs[i].Text != w.text {
			t.Errorf("src[%d] = %s %q, want %s %q", i, srcs[i].Rel, srcs[i].Text, w.rel, w.text)
		}
	}
}

func TestSourcesMissingDir(t *testing.T) {
	p, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Sources(); !errors.Is(err, ErrNoScriptsDir) {
		t.Errorf("err = %v, want ErrNoScriptsDir", err)
	}
}

func TestDigestChangesWithContent(t *testing.T) {
	a := Digest([]Source{{Rel: "a.lua", Text: "x"}})
	b := Digest([]Source{{Rel: "a.lua", Text: "y"}})
	c := Digest([]Source{{Rel: "a.lua", Text: "x"}})
	if a == b || a != c || len(a) != 64 {
		t.Errorf("digests a=%s b=%s c=%s", a, b, c)
	}
}
