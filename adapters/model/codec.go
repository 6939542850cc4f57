package model

import (
	"fmt"
	"strings"
)

// Codec is the label codec exported alongside a classifier. Index i is the
// class the classifier reports at position i of its probability vector.
type Codec struct {
	classes []string
	index   map[string]int
}

// NewCodec builds a codec over classes, rejecting empty or repeated names.
func NewCodec(classes []string) (*Codec, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("label codec has no classes")
	}
	c := &Codec{
		classes: make([]string, len(classes)),
		index:   make(map[string]int, len(classes)),
	}
	for i, name := range classes {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("label codec class %d is empty", i)
		}
		if prev, dup := c.index[name]; dup {
			return nil, fmt.Errorf("label codec class %q appears at %d and %d", name, prev, i)
		}
		c.classes[i] = name
		c.index[name] = i
	}
	return c, nil
}

// Decode returns the crop name for a class index
func (c *Codec) Decode(index int) (string, error) {
	if index < 0 || index >= len(c.classes) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", index, len(c.classes))
	}
	return c.classes[index], nil
}

// Encode returns the class index for a crop name
func (c *Codec) Encode(name string) (int, error) {
	i, ok := c.index[strings.TrimSpace(name)]
	if !ok {
		return -1, fmt.Errorf("unknown crop %q", name)
	}
	return i, nil
}

// Classes returns a copy of the class list in index order
func (c *Codec) Classes() []string {
	return append([]string(nil), c.classes...)
}
