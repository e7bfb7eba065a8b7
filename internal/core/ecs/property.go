package ecs

import (
	"fmt"

	"github.com/goldsprite/gdengine/internal/geom"
	"github.com/goldsprite/gdengine/internal/render"
)

// PropType tags the value carried by a Property.
type PropType uint8

const (
	PropFloat  PropType = iota // float64
	PropInt                    // int
	PropBool                   // bool
	PropString                 // string
	PropVec2                   // geom.Vec2
	PropColor                  // render.Color
)

func (t PropType) String() string {
	switch t {
	case PropFloat:
		return "float"
	case PropInt:
		return "int"
	case PropBool:
		return "bool"
	case PropString:
		return "string"
	case PropVec2:
		return "vec2"
	case PropColor:
		return "color"
	default:
		return fmt.Sprintf("PropType(%d)", uint8(t))
	}
}

// Access says whether an editor may write a property.
type Access uint8

const (
	ReadWrite Access = iota
	ReadOnly
)

// Property is one editable field of a component. Get returns the canonical Go
// type for Type; Set receives the same type and is nil for ReadOnly fields.
type Property struct {
	Name   string
	Type   PropType
	Access Access
	Get    func() any
	Set    func(any) error
}

// Describer is implemented by components that expose an inspector/serializer
// property list.
type Describer interface {
	DescribeProperties() []Property
}

// FloatProp binds a float64 field.
func FloatProp(name string, p *float64) Property {
	return Property{Name: name, Type: PropFloat,
		Get: func() any { return *p },
		Set: func(v any) error {
			f, ok := v.(float64)
			if !ok {
				return typeErr(name, PropFloat, v)
			}
			*p = f
			return nil
		},
	}
}

// IntProp binds an int field.
func IntProp(name string, p *int) Property {
	return Property{Name: name, Type: PropInt,
		Get: func() any { return *p },
		Set: func(v any) error {
			i, ok := v.(int)
			if !ok {
				return typeErr(name, PropInt, v)
			}
			*p = i
			return nil
		},
	}
}

// BoolProp binds a bool field.
func BoolProp(name string, p *bool) Property {
	return Property{Name: name, Type: PropBool,
		Get: func() any { return *p },
		Set: func(v any) error {
			b, ok := v.(bool)
			if !ok {
				return typeErr(name, PropBool, v)
			}
			*p = b
			return nil
		},
	}
}

// StringProp binds a string field.
func StringProp(name string, p *string) Property {
	return Property{Name: name, Type: PropString,
		Get: func() any { return *p },
		Set: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return typeErr(name, PropString, v)
			}
			*p = s
			return nil
		},
	}
}

// Vec2Prop binds a geom.Vec2 field.
func Vec2Prop(name string, p *geom.Vec2) Property {
	return Property{Name: name, Type: PropVec2,
		Get: func() any { return *p },
		Set: func(v any) error {
			vv, ok := v.(geom.Vec2)
			if !ok {
				return typeErr(name, PropVec2, v)
			}
			*p = vv
			return nil
		},
	}
}

// ColorProp binds a render.Color field.
func ColorProp(name string, p *render.Color) Property {
	return Property{Name: name, Type: PropColor,
		Get: func() any { return *p },
		Set: func(v any) error {
			c, ok := v.(render.Color)
			if !ok {
				return typeErr(name, PropColor, v)
			}
			*p = c
			return nil
		},
	}
}

// ReadOnlyProp wraps a getter as a read-only property.
func ReadOnlyProp(name string, t PropType, get func() any) Property {
	return Property{Name: name, Type: t, Access: ReadOnly, Get: get}
}

// FindProperty returns the named property of c, if c describes one.
func FindProperty(c Component, name string) (Property, bool) {
	d, ok := c.(Describer)
	if !ok {
		return Property{}, false
	}
	for _, p := range d.DescribeProperties() {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func typeErr(name string, want PropType, got any) error {
	return fmt.Errorf("property %s: want %s, got %T", name, want, got)
}
