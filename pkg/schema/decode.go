package schema

import (
	"bytes"
	"fmt"

	"github.com/ajitpratap0/glidetables/pkg/json"
	"gopkg.in/yaml.v3"
)

// columnTypes are the bare strings read as a column type rather than a storage name
var columnTypes = map[string]bool{
	"string":       true,
	"number":       true,
	"boolean":      true,
	"dateTime":     true,
	"date-time":    true,
	"imageUri":     true,
	"image-uri":    true,
	"uri":          true,
	"emailAddress": true,
	"phoneNumber":  true,
	"json":         true,
	"markdown":     true,
}

// IsColumnType reports whether s names a known column type
func IsColumnType(s string) bool {
	return columnTypes[s]
}

type specObject struct {
	Name string `json:"name,omitempty" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

func fromString(s string) ColumnSpec {
	if IsColumnType(s) {
		return Ident(s)
	}
	return Alias(s, "")
}

func fromObject(o specObject) ColumnSpec {
	if o.Name == "" {
		return Ident(o.Type)
	}
	return Alias(o.Name, o.Type)
}

// UnmarshalJSON accepts a bare string or {name, type}
func (c *ColumnSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty column spec")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = fromString(s)
		return nil
	}
	var o specObject
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("column spec must be a string or {name, type}: %w", err)
	}
	*c = fromObject(o)
	return nil
}

// MarshalJSON writes the object form
func (c ColumnSpec) MarshalJSON() ([]byte, error) {
	o := specObject{Type: c.Type}
	if c.Kind == Aliased {
		o.Name = c.Name
	}
	return json.Marshal(o)
}

// UnmarshalYAML accepts a scalar or a mapping with name and type
func (c *ColumnSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*c = fromString(value.Value)
		return nil
	case yaml.MappingNode:
		var o specObject
		if err := value.Decode(&o); err != nil {
			return err
		}
		*c = fromObject(o)
		return nil
	default:
		return fmt.Errorf("line %d: column spec must be a string or a mapping", value.Line)
	}
}

// UnmarshalJSON decodes the columns and resolves self-aliases to Identity
func (c *Columns) UnmarshalJSON(data []byte) error {
	var raw map[string]ColumnSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = normalizeAll(raw)
	return nil
}

// UnmarshalYAML decodes the columns and resolves self-aliases to Identity
func (c *Columns) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]ColumnSpec
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = normalizeAll(raw)
	return nil
}

func normalizeAll(raw map[string]ColumnSpec) Columns {
	cols := make(Columns, len(raw))
	for display, spec := range raw {
		cols[display] = spec.normalize(display)
	}
	return cols
}

// ParseJSON decodes a JSON column schema
func ParseJSON(data []byte) (Columns, error) {
	var cols Columns
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("failed to parse column schema: %w", err)
	}
	return cols, nil
}

// ParseYAML decodes a YAML column schema. JSON documents parse too.
func ParseYAML(data []byte) (Columns, error) {
	var cols Columns
	if err := yaml.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("failed to parse column schema: %w", err)
	}
	return cols, nil
}
