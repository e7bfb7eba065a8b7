package project

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNoScriptsDir is returned when the project has no scripts directory.
var ErrNoScriptsDir = errors.New("project: scripts directory missing")

// Source is one script file, decoded to UTF-8.
type Source struct {
	Rel  string // slash path relative to the scripts dir
	Path string
	Text string
}

// Sources walks the scripts directory recursively and returns every file
// with the project's extension, sorted by relative path. Hidden directories
// and Go test files are skipped.
func (p *Project) Sources() ([]Source, error) {
	root := p.ScriptsPath()
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoScriptsDir, root)
	}
	ext := p.Extension()
	var out []Source
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != ext || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		text, err := DecodeText(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		rel, _ := filepath.Rel(root, path)
		out = append(out, Source{Rel: filepath.ToSlash(rel), Path: path, Text: text})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("project: scan sources: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, nil
}

// DecodeText converts raw bytes to UTF-8, honouring a UTF-8 or UTF-16 BOM.
// Text without a BOM is taken as UTF-8.
func DecodeText(raw []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Digest fingerprints a source set: relative paths and contents, in order.
func Digest(srcs []Source) string {
	h, _ := blake2b.New256(nil)
	for _, s := range srcs {
		h.Write([]byte(s.Rel))
		h.Write([]byte{0})
		h.Write([]byte(s.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
