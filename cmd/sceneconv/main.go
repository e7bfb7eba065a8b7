// sceneconv converts legacy JSON scene files (a list of objects with
// class-tagged components) to the YAML scene document.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goldsprite/gdengine/internal/project"
	"github.com/goldsprite/gdengine/internal/scene"
)

type legacyObject struct {
	Name       string           `json:"name"`
	Tag        string           `json:"tag"`
	Layer      int              `json:"layer"`
	Components []map[string]any `json:"components"`
	Children   []legacyObject   `json:"children"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: sceneconv <scene.json> <output.yaml>")
		os.Exit(1)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	name := strings.TrimSuffix(filepath.Base(os.Args[1]), filepath.Ext(os.Args[1]))
	doc, skipped, err := convert(raw, name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	header := "# Converted from " + filepath.Base(os.Args[1]) + " by sceneconv\n"
	if err := os.WriteFile(os.Args[2], append([]byte(header), out...), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Converted %d entities to %s\n", doc.Count(), os.Args[2])
	for _, k := range skipped {
		fmt.Printf("  dropped field %s\n", k)
	}
}

// convert parses a legacy scene and returns the document plus the sorted,
// de-duplicated list of fields that had no equivalent.
func convert(raw []byte, name string) (*scene.Document, []string, error) {
	text, err := project.DecodeText(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	var roots []legacyObject
	if err := json.Unmarshal([]byte(text), &roots); err != nil {
		return nil, nil, fmt.Errorf("parse legacy scene: %w", err)
	}

	dropped := make(map[string]bool)
	doc := &scene.Document{Name: name, Entities: make([]scene.EntityDoc, 0, len(roots))}
	for i := range roots {
		doc.Entities = append(doc.Entities, convertObject(&roots[i], dropped))
	}

	skipped := make([]string, 0, len(dropped))
	for k := range dropped {
		skipped = append(skipped, k)
	}
	sort.Strings(skipped)
	return doc, skipped, nil
}

func convertObject(o *legacyObject, dropped map[string]bool) scene.EntityDoc {
	ed := scene.EntityDoc{Name: o.Name, Tag: o.Tag, Layer: o.Layer}
	if ed.Name == "" {
		ed.Name = "GObject"
	}
	for _, c := range o.Components {
		ed.Components = append(ed.Components, convertComponent(c, dropped))
	}
	for i := range o.Children {
		ed.Children = append(ed.Children, convertObject(&o.Children[i], dropped))
	}
	return ed
}

// kindOf maps "com.example.RotorComponent" to "Rotor".
func kindOf(class string) string {
	k := class[strings.LastIndex(class, ".")+1:]
	k = k[strings.LastIndex(k, "$")+1:]
	if t := strings.TrimSuffix(k, "Component"); t != "" {
		k = t
	}
	return k
}

func convertComponent(c map[string]any, dropped map[string]bool) scene.ComponentDoc {
	class, _ := c["class"].(string)
	kind := kindOf(class)
	fields := make(map[string]any, len(c))
	var w, h any
	for k, v := range c {
		switch k {
		case "class":
		case "sortingOrder":
			fields["order"] = v
		case "width":
			w = v
		case "height":
			h = v
		case "scale":
			// Legacy transforms carry a uniform scale.
			if f, ok := v.(float64); ok {
				fields["scale"] = []any{f, f}
			} else {
				fields["scale"] = vec(v)
			}
		case "position", "offset", "size":
			fields[k] = vec(v)
		case "enabled", "isAwake", "gobject":
		case "region", "worldPosition", "worldRotation", "worldScale":
			dropped[kind+"."+k] = true
		default:
			fields[k] = v
		}
	}
	if w != nil || h != nil {
		fields["size"] = []any{num(w), num(h)}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return scene.ComponentDoc{Kind: kind, Fields: fields}
}

func vec(v any) any {
	if m, ok := v.(map[string]any); ok {
		return []any{num(m["x"]), num(m["y"])}
	}
	return v
}

func num(v any) float64 {
	f, _ := v.(float64)
	return f
}
