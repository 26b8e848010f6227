// Package schema maps display column names to the storage identifiers used by the Glide API.
//
// A Columns value is decoded once (from Go, JSON or YAML) into tagged ColumnSpec
// values, and Build flattens it into an immutable NameMap. Translation never
// looks at the raw JSON or YAML shape again.
package schema

import (
	"sort"
)

// RowIDColumn is the row identifier pseudo-column. It always maps to itself.
const RowIDColumn = "$rowID"

// Row is one row keyed by column name. A nil value means null.
type Row map[string]interface{}

// ColumnKind tags how a column's storage name is derived
type ColumnKind int

const (
	// Identity columns are stored under their display name
	Identity ColumnKind = iota
	// Aliased columns carry an explicit storage name
	Aliased
)

// String returns the kind name
func (k ColumnKind) String() string {
	if k == Aliased {
		return "aliased"
	}
	return "identity"
}

// ColumnSpec describes one column. Name is only meaningful for Aliased columns.
// Type is forwarded when a table is created and plays no part in translation.
type ColumnSpec struct {
	Kind ColumnKind
	Name string
	Type string
}

// Ident returns an Identity column of the given type
func Ident(typ string) ColumnSpec {
	return ColumnSpec{Kind: Identity, Type: typ}
}

// Alias returns a column stored under name
func Alias(name, typ string) ColumnSpec {
	return ColumnSpec{Kind: Aliased, Name: name, Type: typ}
}

// StorageName returns the identifier the column is stored under
func (c ColumnSpec) StorageName(display string) string {
	if c.Kind == Aliased && c.Name != "" {
		return c.Name
	}
	return display
}

// normalize turns an alias that points at its own display name into Identity
func (c ColumnSpec) normalize(display string) ColumnSpec {
	if c.Kind == Aliased && (c.Name == "" || c.Name == display) {
		return ColumnSpec{Kind: Identity, Type: c.Type}
	}
	return c
}

// Columns maps display names to column specs
type Columns map[string]ColumnSpec

// Names returns the display names in sorted order
func (c Columns) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// APIColumn is the column shape sent when creating a table
type APIColumn struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

// DefaultColumnType is sent for columns without a type
const DefaultColumnType = "string"

// APIColumns returns the create-table column list, sorted by display name
func (c Columns) APIColumns() []APIColumn {
	out := make([]APIColumn, 0, len(c))
	for _, display := range c.Names() {
		spec := c[display]
		typ := spec.Type
		if typ == "" {
			typ = DefaultColumnType
		}
		out = append(out, APIColumn{
			ID:          spec.StorageName(display),
			DisplayName: display,
			Type:        typ,
		})
	}
	return out
}

// NameMap is an immutable display name to storage name table
type NameMap struct {
	names map[string]string
}

// Build flattens cols into a NameMap. The result always contains RowIDColumn.
func Build(cols Columns) NameMap {
	names := make(map[string]string, len(cols)+1)
	for display, spec := range cols {
		names[display] = spec.normalize(display).StorageName(display)
	}
	names[RowIDColumn] = RowIDColumn
	return NameMap{names: names}
}

// StorageName looks up the storage name for a display name
func (m NameMap) StorageName(display string) (string, bool) {
	name, ok := m.names[display]
	return name, ok
}

// Len returns the number of entries, RowIDColumn included
func (m NameMap) Len() int {
	return len(m.names)
}

// TranslateRow returns a new row keyed by storage names with nil lowered to "".
// Unknown keys pass through. When two keys land on the same storage name the
// key that sorts last wins.
func (m NameMap) TranslateRow(row Row) Row {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Row, len(row))
	for _, k := range keys {
		name, ok := m.names[k]
		if !ok {
			name = k
		}
		v := row[k]
		if v == nil {
			// the API has no null
			v = ""
		}
		out[name] = v
	}
	return out
}

// Translate applies TranslateRow to every row. The input is not modified.
func (m NameMap) Translate(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = m.TranslateRow(row)
	}
	return out
}
