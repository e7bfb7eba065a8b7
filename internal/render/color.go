package render

import (
	"fmt"
	"image/color"
	"strings"
)

// Color is a straight-alpha RGBA colour with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

var (
	White  = Color{1, 1, 1, 1}
	Black  = Color{0, 0, 0, 1}
	Red    = Color{1, 0, 0, 1}
	Green  = Color{0, 1, 0, 1}
	Blue   = Color{0, 0, 1, 1}
	Yellow = Color{1, 1, 0, 1}
	Cyan   = Color{0, 1, 1, 1}
)

var named = map[string]Color{
	"white":  White,
	"black":  Black,
	"red":    Red,
	"green":  Green,
	"blue":   Blue,
	"yellow": Yellow,
	"cyan":   Cyan,
}

// ParseColor accepts "#rrggbb", "#rrggbbaa" or one of the named colours.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := named[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return Color{}, fmt.Errorf("color %q: expected #rrggbb[aa] or a name", s)
	}
	hex := s[1:]
	var r, g, b, a uint8 = 0, 0, 0, 0xff
	switch len(hex) {
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return Color{}, fmt.Errorf("color %q: %w", s, err)
		}
	default:
		return Color{}, fmt.Errorf("color %q: bad length", s)
	}
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}, nil
}

// Hex formats c as "#rrggbbaa".
func (c Color) Hex() string {
	r, g, b, a := c.bytes()
	return fmt.Sprintf("#%02x%02x%02x%02x", r, g, b, a)
}

func (c Color) String() string { return c.Hex() }

// RGBA converts to an 8-bit straight-alpha colour.
func (c Color) RGBA() color.NRGBA {
	r, g, b, a := c.bytes()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

func (c Color) bytes() (r, g, b, a uint8) {
	return clamp8(c.R), clamp8(c.G), clamp8(c.B), clamp8(c.A)
}

func clamp8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
