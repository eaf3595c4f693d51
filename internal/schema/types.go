package schema

import (
	"slices"
)

// Model represents a complete parsed schema
type Model struct {
	Project     string       `json:"project,omitempty" yaml:"project,omitempty"`
	Tables      []Table      `json:"tables" yaml:"tables"`
	Enums       []Enum       `json:"enums,omitempty" yaml:"enums,omitempty"`
	Refs        []Ref        `json:"refs,omitempty" yaml:"refs,omitempty"`
	TableGroups []TableGroup `json:"tableGroups,omitempty" yaml:"tableGroups,omitempty"`
}

// Table represents a database table
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Alias   string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Note    string   `json:"note,omitempty" yaml:"note,omitempty"`
	Columns []Column `json:"columns" yaml:"columns"`
	Indexes []Index  `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Column represents a table column. Type holds the raw definition including
// any bracketed attributes, e.g. "varchar(50) [pk, not null]".
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Index represents a database index
type Index struct {
	Name    string        `json:"name,omitempty" yaml:"name,omitempty"`
	Unique  bool          `json:"unique,omitempty" yaml:"unique,omitempty"`
	Primary bool          `json:"primary,omitempty" yaml:"primary,omitempty"`
	Type    string        `json:"type,omitempty" yaml:"type,omitempty"`
	Note    string        `json:"note,omitempty" yaml:"note,omitempty"`
	Columns []IndexColumn `json:"columns" yaml:"columns"`
}

// IndexColumn is one column (or backtick expression) of an index
type IndexColumn struct {
	Name       string `json:"name" yaml:"name"`
	Sort       string `json:"sort,omitempty" yaml:"sort,omitempty"`
	Expression bool   `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Enum represents a named set of values
type Enum struct {
	Name   string      `json:"name" yaml:"name"`
	Values []EnumValue `json:"values" yaml:"values"`
}

// EnumValue is a single enum member
type EnumValue struct {
	Name string `json:"name" yaml:"name"`
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Ref represents a model-level relationship declared with Ref:
type Ref struct {
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	From        RefEndpoint `json:"from" yaml:"from"`
	To          RefEndpoint `json:"to" yaml:"to"`
	Cardinality string      `json:"cardinality" yaml:"cardinality"` // >, <, -, <>
}

// RefEndpoint is one side of a Ref
type RefEndpoint struct {
	Table   string   `json:"table" yaml:"table"`
	Columns []string `json:"columns" yaml:"columns"`
}

// TableGroup groups tables for documentation
type TableGroup struct {
	Name   string   `json:"name" yaml:"name"`
	Tables []string `json:"tables" yaml:"tables"`
}

// Relation represents a foreign key relationship as seen from the source table
type Relation struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	Cardinality  string // 1:1, 1:N, N:1
}

// Table returns the table with the given name. Duplicate names resolve to
// the last definition.
func (m *Model) Table(name string) (*Table, bool) {
	for i := len(m.Tables) - 1; i >= 0; i-- {
		if m.Tables[i].Name == name {
			return &m.Tables[i], true
		}
	}
	return nil, false
}

// IsEmpty reports whether the model declares nothing.
func (m *Model) IsEmpty() bool {
	return m.Project == "" && len(m.Tables) == 0 && len(m.Enums) == 0 &&
		len(m.Refs) == 0 && len(m.TableGroups) == 0
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := len(t.Columns) - 1; i >= 0; i-- {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Equal reports deep equality of two tables.
func (t Table) Equal(o Table) bool {
	return t.Name == o.Name &&
		t.Alias == o.Alias &&
		t.Note == o.Note &&
		slices.EqualFunc(t.Columns, o.Columns, Column.Equal) &&
		slices.EqualFunc(t.Indexes, o.Indexes, Index.Equal)
}

// Equal reports whether two columns have the same name and definition.
func (c Column) Equal(o Column) bool {
	return c.Name == o.Name && c.Type == o.Type
}

// Equal reports deep equality of two indexes.
func (i Index) Equal(o Index) bool {
	return i.Name == o.Name &&
		i.Unique == o.Unique &&
		i.Primary == o.Primary &&
		i.Type == o.Type &&
		i.Note == o.Note &&
		slices.Equal(i.Columns, o.Columns)
}

// Relations collects every foreign key in the model, from inline column refs
// and from model-level Ref declarations.
func (m *Model) Relations() []Relation {
	var rels []Relation

	for _, t := range m.Tables {
		for _, c := range t.Columns {
			spec, err := c.Spec()
			if err != nil || spec.Ref == nil {
				continue
			}
			rels = append(rels, Relation{
				SourceTable:  t.Name,
				SourceColumn: c.Name,
				TargetTable:  spec.Ref.Table,
				TargetColumn: spec.Ref.Column,
				Cardinality:  CardinalityLabel(spec.Ref.Cardinality),
			})
		}
	}

	for _, r := range m.Refs {
		for i, col := range r.From.Columns {
			if i >= len(r.To.Columns) {
				break
			}
			rels = append(rels, Relation{
				SourceTable:  r.From.Table,
				SourceColumn: col,
				TargetTable:  r.To.Table,
				TargetColumn: r.To.Columns[i],
				Cardinality:  CardinalityLabel(r.Cardinality),
			})
		}
	}

	return rels
}

// RelationsFrom returns the relations whose source is the named table.
func (m *Model) RelationsFrom(table string) []Relation {
	var out []Relation
	for _, r := range m.Relations() {
		if r.SourceTable == table {
			out = append(out, r)
		}
	}
	return out
}

// CardinalityLabel converts a ref operator into the N:1 style label.
func CardinalityLabel(op string) string {
	switch op {
	case ">":
		return "N:1"
	case "<":
		return "1:N"
	case "-":
		return "1:1"
	case "<>":
		return "N:N"
	default:
		return op
	}
}
