package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// MarkdownFormatter formats schema as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(m *schema.Model) error {
	title := "Database Schema"
	if m.Project != "" {
		title = m.Project
	}
	_, _ = fmt.Fprintf(f.writer, "# %s\n\n", title)

	for _, table := range m.Tables {
		if err := f.FormatTable(table, m); err != nil {
			return err
		}
	}

	if len(m.Enums) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Enums")
		_, _ = fmt.Fprintln(f.writer)
		for _, e := range m.Enums {
			names := make([]string, 0, len(e.Values))
			for _, v := range e.Values {
				names = append(names, "`"+v.Name+"`")
			}
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", e.Name, strings.Join(names, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(m.TableGroups) > 0 {
		_, _ = fmt.Fprintln(f.writer, "## Table groups")
		_, _ = fmt.Fprintln(f.writer)
		for _, g := range m.TableGroups {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", g.Name, strings.Join(g.Tables, ", "))
		}
		_, _ = fmt.Fprintln(f.writer)
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(table schema.Table, m *schema.Model) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)
	if table.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "%s\n\n", table.Note)
	}

	f.formatColumns(table, m)

	if rels := m.RelationsFrom(table.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range rels {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s (%s)\n",
				rel.SourceColumn,
				rel.TargetTable,
				rel.TargetColumn,
				rel.Cardinality)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "- %s\n", formatMarkdownIndex(idx))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if incoming := incomingRelations(m, table.Name); len(incoming) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Referenced by")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range incoming {
			_, _ = fmt.Fprintf(f.writer, "- %s.%s → %s (%s)\n",
				rel.SourceTable, rel.SourceColumn,
				rel.TargetColumn,
				FormatCardinality(rel.Cardinality, rel.SourceTable, rel.TargetTable))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

func (f *MarkdownFormatter) formatColumns(table schema.Table, m *schema.Model) {
	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)

	enums := enumValues(m)
	for _, col := range table.Columns {
		info := describeColumn(col, enums)

		typeStr := info.Type
		if len(info.EnumValues) > 0 {
			typeStr = fmt.Sprintf("%s (%s)", info.Type, strings.Join(info.EnumValues, "|"))
		}

		line := fmt.Sprintf("- **%s:** %s", info.Name, typeStr)
		if c := formatConstraints(info); c != "" {
			line += ", " + c
		}
		if info.Note != "" {
			line += " - " + info.Note
		}
		_, _ = fmt.Fprintln(f.writer, line)
	}
	_, _ = fmt.Fprintln(f.writer)
}

func formatMarkdownIndex(idx schema.Index) string {
	name := idx.Name
	if name == "" {
		name = "(unnamed)"
	}
	line := fmt.Sprintf("%s on (%s)", name, strings.Join(indexColumns(idx), ", "))
	switch {
	case idx.Primary:
		line += ", primary key"
	case idx.Unique:
		line += ", unique"
	}
	if idx.Type != "" {
		line += ", " + idx.Type
	}
	return line
}

func formatConstraints(col columnInfo) string {
	var constraints []string

	if col.PrimaryKey {
		constraints = append(constraints, "PK")
	}
	if col.Increment {
		constraints = append(constraints, "AUTO_INCREMENT")
	}
	if col.Unique {
		constraints = append(constraints, "UNIQUE")
	}
	if col.NotNull {
		constraints = append(constraints, "NOT NULL")
	}
	if col.Default != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.Default))
	}

	return strings.Join(constraints, ", ")
}
