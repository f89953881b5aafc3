package fixedwidth

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Layout names in the catalog.
const (
	Airport  = "airport"
	Navaid   = "navaid"
	Fix      = "fix"
	Obstacle = "obstacle"
)

//go:embed schemas.yaml
var defaultSchemas []byte

// Catalog holds the schemas for every known layout, keyed by name.
type Catalog struct {
	schemas map[string]Schema
}

// DefaultCatalog parses the schemas compiled into the binary. It panics if the
// embedded document is invalid, which is a build defect.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultSchemas)
	if err != nil {
		panic(fmt.Sprintf("fixedwidth: embedded schemas: %v", err))
	}
	return c
}

// ParseCatalog decodes a YAML document mapping layout names to schemas and
// validates the field offsets.
func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[string]Schema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode schemas: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("no schemas defined")
	}
	for name, s := range raw {
		s.Name = name
		if err := validate(s); err != nil {
			return nil, err
		}
		raw[name] = s
	}
	return &Catalog{schemas: raw}, nil
}

// Schema returns the named layout.
func (c *Catalog) Schema(name string) (Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// MustSchema returns the named layout or panics.
func (c *Catalog) MustSchema(name string) Schema {
	s, ok := c.schemas[name]
	if !ok {
		panic(fmt.Sprintf("fixedwidth: unknown schema %q", name))
	}
	return s
}

// Names lists the catalog's layouts in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func validate(s Schema) error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field without a name", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Start < 0 || f.End <= f.Start {
			return fmt.Errorf("schema %s: field %q has invalid range [%d,%d)", s.Name, f.Name, f.Start, f.End)
		}
	}
	return nil
}
