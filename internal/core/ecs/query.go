package ecs

// ComponentOf returns the first live component of e whose dynamic type is T.
func ComponentOf[T Component](e *Entity) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	for _, c := range e.components {
		if c.base().removed {
			continue
		}
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// ComponentsOf returns every live component of e whose dynamic type is T.
func ComponentsOf[T Component](e *Entity) []T {
	var out []T
	for _, c := range e.components {
		if c.base().removed {
			continue
		}
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Each visits every live component of type T in tree pre-order.
func Each[T Component](w *World, fn func(e *Entity, c T)) {
	w.Walk(func(e *Entity) bool {
		for _, c := range e.components {
			if c.base().removed {
				continue
			}
			if t, ok := c.(T); ok {
				fn(e, t)
			}
		}
		return true
	})
}

// Count returns how many live components of type T the world holds.
func Count[T Component](w *World) int {
	n := 0
	Each(w, func(*Entity, T) { n++ })
	return n
}
