package fieldmap

import "strings"

// =============================================================================
// HEADER MAPPER
// =============================================================================

// Column is one mapped input column.
type Column struct {
	Index  int
	Header string
	Field  Field
}

// Mapping is the result of mapping a header row.
type Mapping struct {
	// Headers are the normalized header tokens, in column order.
	Headers []string

	// Columns lists the mapped columns in column order.
	Columns []Column

	// Unmapped lists headers with no alias; their columns are dropped.
	Unmapped []string

	byField map[Field][]int
	byToken map[string]int
}

// HeaderMapper resolves header rows through an alias table.
type HeaderMapper struct {
	table *FieldAliasTable
}

// NewHeaderMapper creates a mapper over table. A nil table means the
// built-in aliases.
func NewHeaderMapper(table *FieldAliasTable) *HeaderMapper {
	if table == nil {
		table = DefaultAliasTable()
	}
	return &HeaderMapper{table: table}
}

// Map resolves every normalized header. Unknown headers are recorded in
// Mapping.Unmapped and otherwise ignored.
func (m *HeaderMapper) Map(headers []string) *Mapping {
	mapping := &Mapping{
		Headers: headers,
		byField: make(map[Field][]int),
		byToken: make(map[string]int),
	}

	for i, header := range headers {
		if _, seen := mapping.byToken[header]; !seen {
			mapping.byToken[header] = i
		}

		field, ok := m.table.Lookup(header)
		if !ok {
			mapping.Unmapped = append(mapping.Unmapped, header)
			continue
		}

		mapping.Columns = append(mapping.Columns, Column{Index: i, Header: header, Field: field})
		mapping.byField[field] = append(mapping.byField[field], i)
	}

	return mapping
}

// Has reports whether any column maps to field.
func (m *Mapping) Has(field Field) bool {
	return len(m.byField[field]) > 0
}

// Value returns the first non-empty cell among the columns mapped to field.
func (m *Mapping) Value(cells []string, field Field) string {
	for _, idx := range m.byField[field] {
		if idx < len(cells) {
			if v := strings.TrimSpace(cells[idx]); v != "" {
				return v
			}
		}
	}
	return ""
}

// HeaderValue returns the cell under a raw normalized header token, or ""
// when the header is absent. Used for position-driven formats whose
// columns are not canonical fields.
func (m *Mapping) HeaderValue(cells []string, header string) string {
	idx, ok := m.byToken[header]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

// HasHeader reports whether the raw normalized header is present.
func (m *Mapping) HasHeader(header string) bool {
	_, ok := m.byToken[header]
	return ok
}

// PackageFields returns the mapped package fields in column order, without
// repeats.
func (m *Mapping) PackageFields() []Field {
	var out []Field
	seen := make(map[Field]bool)
	for _, col := range m.Columns {
		if col.Field.IsPackage() && !seen[col.Field] {
			seen[col.Field] = true
			out = append(out, col.Field)
		}
	}
	return out
}
