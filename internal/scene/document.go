// Package scene reads and writes entity trees as YAML documents.
package scene

// Document is the on-disk scene: an ordered list of root entities.
type Document struct {
	Name     string      `yaml:"name,omitempty"`
	Entities []EntityDoc `yaml:"entities"`
}

// EntityDoc is one entity and its subtree.
type EntityDoc struct {
	Name       string         `yaml:"name"`
	Tag        string         `yaml:"tag,omitempty"`
	Layer      int            `yaml:"layer,omitempty"`
	Disabled   bool           `yaml:"disabled,omitempty"`
	Components []ComponentDoc `yaml:"components,omitempty"`
	Children   []EntityDoc    `yaml:"children,omitempty"`
}

// ComponentDoc carries one component's kind and its described fields.
type ComponentDoc struct {
	Kind   string         `yaml:"kind"`
	Fields map[string]any `yaml:"fields,omitempty"`
}

// Count returns the number of entities in the document, children included.
func (d *Document) Count() int {
	n := 0
	var walk func([]EntityDoc)
	walk = func(list []EntityDoc) {
		for i := range list {
			n++
			walk(list[i].Children)
		}
	}
	walk(d.Entities)
	return n
}
