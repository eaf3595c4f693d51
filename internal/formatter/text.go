package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// TextFormatter formats schema as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(m *schema.Model) error {
	if m.Project != "" {
		_, _ = fmt.Fprintf(f.writer, "PROJECT %s\n\n", m.Project)
	}

	for i, table := range m.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.FormatTable(table, m); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes a single table
func (f *TextFormatter) FormatTable(table schema.Table, m *schema.Model) error {
	// Table header with primary key
	pkStr := ""
	if pk := primaryKey(table); len(pk) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(pk, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr)
	if table.Note != "" {
		_, _ = fmt.Fprintf(f.writer, "  -- %s\n", strings.ReplaceAll(table.Note, "\n", " "))
	}

	enums := enumValues(m)
	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", f.formatColumn(describeColumn(col, enums)))
	}

	if rels := m.RelationsFrom(table.Name); len(rels) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range rels {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s (%s)\n", rel.SourceColumn, rel.TargetTable, rel.TargetColumn, rel.Cardinality)
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", formatTextIndex(idx))
		}
	}

	return nil
}

func formatTextIndex(idx schema.Index) string {
	var b strings.Builder
	if idx.Name != "" {
		b.WriteString(idx.Name + " ")
	}
	fmt.Fprintf(&b, "(%s)", strings.Join(indexColumns(idx), ", "))
	switch {
	case idx.Primary:
		b.WriteString(" PK")
	case idx.Unique:
		b.WriteString(" UNIQUE")
	}
	if idx.Type != "" {
		b.WriteString(" " + strings.ToUpper(idx.Type))
	}
	return b.String()
}

func (f *TextFormatter) formatColumn(col columnInfo) string {
	parts := []string{col.Name + ":"}

	typeStr := col.Type
	if len(col.EnumValues) > 0 {
		typeStr = fmt.Sprintf("%s (%s)", col.Type, strings.Join(col.EnumValues, "|"))
	}
	parts = append(parts, typeStr)

	if col.Increment {
		parts = append(parts, "AUTO_INCREMENT")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.Default))
	}
	if col.Note != "" {
		parts = append(parts, "-- "+col.Note)
	}

	return strings.Join(parts, " ")
}
