// Package project loads a game project's manifest and script sources.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the manifest name looked up in a project root.
const ManifestFile = "project.yaml"

const (
	LangLua = "lua"
	LangGo  = "go"
)

// Manifest describes a project. Every field has a default so a bare
// directory with a Scripts folder is a valid project.
type Manifest struct {
	Name       string `yaml:"name"`
	Entry      string `yaml:"entry"`
	Language   string `yaml:"language"`
	ScriptsDir string `yaml:"scripts_dir"`
	AssetsDir  string `yaml:"assets_dir"`
	Scene      string `yaml:"scene"`
}

// Project is a manifest bound to its root directory.
type Project struct {
	Root     string
	Manifest Manifest
}

const DefaultEntry = "com.mygame.Main"

func defaults(root string) Manifest {
	return Manifest{
		Name:       filepath.Base(root),
		Entry:      DefaultEntry,
		ScriptsDir: "Scripts",
		AssetsDir:  "assets",
	}
}

// Open reads root/project.yaml, filling unset fields with defaults. A missing
// manifest is not an error. The language is detected from the sources when
// the manifest leaves it empty.
func Open(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: %s is not a directory", abs)
	}

	m := defaults(abs)
	raw, err := os.ReadFile(filepath.Join(abs, ManifestFile))
	switch {
	case err == nil:
		var f Manifest
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("project: parse %s: %w", ManifestFile, err)
		}
		merge(&m, f)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("project: read %s: %w", ManifestFile, err)
	}

	p := &Project{Root: abs, Manifest: m}
	if p.Manifest.Language == "" {
		p.Manifest.Language = p.detectLanguage()
	}
	p.Manifest.Language = strings.ToLower(p.Manifest.Language)
	switch p.Manifest.Language {
	case LangLua, LangGo:
	default:
		return nil, fmt.Errorf("project: unsupported language %q", p.Manifest.Language)
	}
	return p, nil
}

func merge(dst *Manifest, src Manifest) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Entry != "" {
		dst.Entry = src.Entry
	}
	if src.Language != "" {
		dst.Language = src.Language
	}
	if src.ScriptsDir != "" {
		dst.ScriptsDir = src.ScriptsDir
	}
	if src.AssetsDir != "" {
		dst.AssetsDir = src.AssetsDir
	}
	if src.Scene != "" {
		dst.Scene = src.Scene
	}
}

// ScriptsPath is the absolute scripts directory.
func (p *Project) ScriptsPath() string {
	return filepath.Join(p.Root, filepath.FromSlash(p.Manifest.ScriptsDir))
}

// AssetsPath is the absolute asset root.
func (p *Project) AssetsPath() string {
	return filepath.Join(p.Root, filepath.FromSlash(p.Manifest.AssetsDir))
}

// ScenePath is the absolute start scene path, empty when none is set.
func (p *Project) ScenePath() string {
	if p.Manifest.Scene == "" {
		return ""
	}
	return filepath.Join(p.Root, filepath.FromSlash(p.Manifest.Scene))
}

// Extension returns the source extension for the project's language.
func (p *Project) Extension() string {
	if p.Manifest.Language == LangGo {
		return ".go"
	}
	return ".lua"
}

func (p *Project) detectLanguage() string {
	lua, gos := 0, 0
	_ = filepath.WalkDir(p.ScriptsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".lua":
			lua++
		case ".go":
			gos++
		}
		return nil
	})
	if gos > lua {
		return LangGo
	}
	return LangLua
}
