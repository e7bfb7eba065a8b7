package main

import (
	"reflect"
	"testing"
)

const legacyScene = "\xef\xbb\xbf" + `[
  {
    "name": "Player",
    "components": [
      {"class": "com.goldsprite.gameframeworks.ecs.component.TransformComponent",
       "position": {"x": 3, "y": 4}, "scale": 2, "rotation": 90, "worldRotation": 90},
      {"class": "com.mygame.RotorComponent", "speed": 45, "sortingOrder": 2}
    ],
    "children": [
      {"name": "Weapon", "components": [
        {"class": "com.goldsprite.gdengine.ecs.component.SpriteComponent",
         "width": 16, "height": 8, "flipX": true, "region": {}}
      ]}
    ]
  },
  {"components": []}
]`

func TestConvert(t *testing.T) {
	doc, skipped, err := convert([]byte(legacyScene), "level1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "level1" {
		t.Errorf("Name = %q, want level1", doc.Name)
	}
	if n := doc.Count(); n != 3 {
		t.Fatalf("Count = %d, want 3", n)
	}

	player := doc.Entities[0]
	tr := player.Components[0]
	if tr.Kind != "Transform" {
		t.Errorf("Kind = %q, want Transform", tr.Kind)
	}
	if got := tr.Fields["scale"]; !reflect.DeepEqual(got, []any{2.0, 2.0}) {
		t.Errorf("scale = %v, want [2 2]", got)
	}
	if got := tr.Fields["position"]; !reflect.DeepEqual(got, []any{3.0, 4.0}) {
		t.Errorf("position = %v, want [3 4]", got)
	}
	rotor := player.Components[1]
	if rotor.Kind != "Rotor" || rotor.Fields["order"] != 2.0 || rotor.Fields["speed"] != 45.0 {
		t.Errorf("rotor = %+v", rotor)
	}

	sprite := player.Children[0].Components[0]
	if got := sprite.Fields["size"]; !reflect.DeepEqual(got, []any{16.0, 8.0}) {
		t.Errorf("size = %v, want [16 8]", got)
	}
	if doc.Entities[1].Name != "GObject" {
		t.Errorf("unnamed = %q, want GObject", doc.Entities[1].Name)
	}

	want := []string{"Sprite.region", "Transform.worldRotation"}
	if !reflect.DeepEqual(skipped, want) {
		t.Errorf("skipped = %v, want %v", skipped, want)
	}
}

func TestKindOf(t *testing.T) {
	for in, want := range map[string]string{
		"com.a.RotorComponent": "Rotor",
		"Shape":                "Shape",
		"com.a.Outer$Inner":    "Inner",
		"com.a.Component":      "Component",
	} {
		if got := kindOf(in); got != want {
			t.Errorf("kindOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConvertRejectsObject(t *testing.T) {
	if _, _, err := convert([]byte(`{"name": "x"}`), "x"); err == nil {
		t.Error("non-array scene accepted")
	}
}
