// Package formatter writes a schema.Model as documentation or schema text.
package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/tordrt/schemadoc/internal/schema"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatDBML     = "dbml"
)

// Formatter writes a whole model.
type Formatter interface {
	Format(m *schema.Model) error
}

// TableFormatter writes a single table. The model is passed so incoming
// relations and enum values can be resolved.
type TableFormatter interface {
	FormatTable(table schema.Table, m *schema.Model) error
}

// New returns the formatter for format writing to w.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText:
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatDBML:
		return NewDBMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use text, markdown or dbml)", format)
	}
}

func newTableFormatter(format string, w io.Writer) (TableFormatter, error) {
	switch format {
	case FormatText:
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatDBML:
		return NewDBMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (use text, markdown or dbml)", format)
	}
}

// FormatCardinality describes a relation label from the source table's side.
func FormatCardinality(cardinality, source, target string) string {
	switch cardinality {
	case "N:1":
		return fmt.Sprintf("many %s to one %s", source, target)
	case "1:N":
		return fmt.Sprintf("one %s to many %s", source, target)
	case "1:1":
		return fmt.Sprintf("one %s to one %s", source, target)
	case "N:N":
		return fmt.Sprintf("many %s to many %s", source, target)
	default:
		return cardinality
	}
}

// columnInfo is the documentation view of a column.
type columnInfo struct {
	Name       string
	Type       string
	PrimaryKey bool
	Unique     bool
	NotNull    bool
	Increment  bool
	Default    *string
	Note       string
	EnumValues []string
}

// describeColumn decomposes a column for documentation. Columns whose
// definition does not parse are shown with their raw type.
func describeColumn(col schema.Column, enums map[string][]string) columnInfo {
	info := columnInfo{Name: col.Name, Type: col.Type}

	spec, err := col.Spec()
	if err != nil {
		return info
	}

	info.Type = spec.FullType()
	info.PrimaryKey = spec.PrimaryKey
	info.Unique = spec.Unique
	info.NotNull = spec.NotNull
	info.Increment = spec.Increment
	info.Default = spec.Default
	info.Note = spec.Note
	info.EnumValues = enums[spec.DataType]
	return info
}

func enumValues(m *schema.Model) map[string][]string {
	out := make(map[string][]string, len(m.Enums))
	for _, e := range m.Enums {
		for _, v := range e.Values {
			out[e.Name] = append(out[e.Name], v.Name)
		}
	}
	return out
}

// primaryKey returns the primary key columns declared inline or by a pk
// index.
func primaryKey(table schema.Table) []string {
	var pk []string
	for _, col := range table.Columns {
		if spec, err := col.Spec(); err == nil && spec.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	for _, idx := range table.Indexes {
		if !idx.Primary {
			continue
		}
		for _, c := range idx.Columns {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// incomingRelations returns relations that target tableName.
func incomingRelations(m *schema.Model, tableName string) []schema.Relation {
	var incoming []schema.Relation
	for _, rel := range m.Relations() {
		if rel.TargetTable == tableName {
			incoming = append(incoming, rel)
		}
	}
	return incoming
}

func indexColumns(idx schema.Index) []string {
	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		name := c.Name
		if c.Expression {
			name = "`" + name + "`"
		}
		if c.Sort != "" {
			name += " " + c.Sort
		}
		cols = append(cols, name)
	}
	return cols
}

func sortedTables(m *schema.Model) []schema.Table {
	tables := make([]schema.Table, len(m.Tables))
	copy(tables, m.Tables)
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name < tables[j].Name
	})
	return tables
}
