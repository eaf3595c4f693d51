package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// DBMLFormatter writes a model back as schema text that the parser reads.
// Column definitions are written verbatim.
type DBMLFormatter struct {
	writer io.Writer
}

// NewDBMLFormatter creates a new schema text writer
func NewDBMLFormatter(w io.Writer) *DBMLFormatter {
	return &DBMLFormatter{writer: w}
}

// Format writes the whole model.
func (f *DBMLFormatter) Format(m *schema.Model) error {
	sep := ""
	next := func() {
		_, _ = fmt.Fprint(f.writer, sep)
		sep = "\n"
	}

	if m.Project != "" {
		next()
		_, _ = fmt.Fprintf(f.writer, "Project %s {\n}\n", ident(m.Project))
	}

	for _, table := range m.Tables {
		next()
		if err := f.FormatTable(table, m); err != nil {
			return err
		}
	}

	for _, e := range m.Enums {
		next()
		_, _ = fmt.Fprintf(f.writer, "Enum %s {\n", ident(e.Name))
		for _, v := range e.Values {
			if v.Note != "" {
				_, _ = fmt.Fprintf(f.writer, "  %s [note: %s]\n", ident(v.Name), quoteValue(v.Note))
			} else {
				_, _ = fmt.Fprintf(f.writer, "  %s\n", ident(v.Name))
			}
		}
		_, _ = fmt.Fprintln(f.writer, "}")
	}

	if len(m.Refs) > 0 {
		next()
		for _, r := range m.Refs {
			name := ""
			if r.Name != "" {
				name = " " + ident(r.Name)
			}
			_, _ = fmt.Fprintf(f.writer, "Ref%s: %s %s %s\n", name, endpoint(r.From), r.Cardinality, endpoint(r.To))
		}
	}

	for _, g := range m.TableGroups {
		next()
		_, _ = fmt.Fprintf(f.writer, "TableGroup %s {\n", ident(g.Name))
		for _, t := range g.Tables {
			_, _ = fmt.Fprintf(f.writer, "  %s\n", ident(t))
		}
		_, _ = fmt.Fprintln(f.writer, "}")
	}

	return nil
}

// FormatTable writes a single Table block.
func (f *DBMLFormatter) FormatTable(table schema.Table, _ *schema.Model) error {
	header := ident(table.Name)
	if table.Alias != "" {
		header += " as " + ident(table.Alias)
	}
	_, _ = fmt.Fprintf(f.writer, "Table %s {\n", header)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s %s\n", ident(col.Name), col.Type)
	}

	if table.Note != "" {
		if strings.Contains(table.Note, "\n") {
			_, _ = fmt.Fprintln(f.writer, "  Note {")
			for _, line := range strings.Split(quoteValue(table.Note), "\n") {
				_, _ = fmt.Fprintf(f.writer, "    %s\n", line)
			}
			_, _ = fmt.Fprintln(f.writer, "  }")
		} else {
			_, _ = fmt.Fprintf(f.writer, "  Note: %s\n", quoteValue(table.Note))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  indexes {")
		for _, idx := range table.Indexes {
			_, _ = fmt.Fprintf(f.writer, "    %s\n", dbmlIndex(idx))
		}
		_, _ = fmt.Fprintln(f.writer, "  }")
	}

	_, _ = fmt.Fprintln(f.writer, "}")
	return nil
}

func dbmlIndex(idx schema.Index) string {
	cols := make([]string, 0, len(idx.Columns))
	for _, c := range idx.Columns {
		switch {
		case c.Expression:
			cols = append(cols, "`"+c.Name+"`")
		case c.Sort != "":
			cols = append(cols, ident(c.Name)+" "+c.Sort)
		default:
			cols = append(cols, ident(c.Name))
		}
	}

	target := strings.Join(cols, ", ")
	if len(cols) > 1 || (len(idx.Columns) == 1 && idx.Columns[0].Sort != "") {
		target = "(" + target + ")"
	}

	var attrs []string
	if idx.Primary {
		attrs = append(attrs, "pk")
	}
	if idx.Unique {
		attrs = append(attrs, "unique")
	}
	if idx.Name != "" {
		attrs = append(attrs, "name: "+quoteValue(idx.Name))
	}
	if idx.Type != "" {
		attrs = append(attrs, "type: "+idx.Type)
	}
	if idx.Note != "" {
		attrs = append(attrs, "note: "+quoteValue(idx.Note))
	}

	if len(attrs) == 0 {
		return target
	}
	return target + " [" + strings.Join(attrs, ", ") + "]"
}

func endpoint(ep schema.RefEndpoint) string {
	if len(ep.Columns) == 1 {
		return ident(ep.Table) + "." + ident(ep.Columns[0])
	}
	cols := make([]string, 0, len(ep.Columns))
	for _, c := range ep.Columns {
		cols = append(cols, ident(c))
	}
	return ident(ep.Table) + ".(" + strings.Join(cols, ", ") + ")"
}

// ident double-quotes names the parser would otherwise split.
func ident(name string) string {
	if name != "" && !strings.ContainsAny(name, " \t.,:[](){}\"'`") {
		return name
	}
	return `"` + name + `"`
}

// quoteValue quotes s with a quote character it does not contain.
func quoteValue(s string) string {
	switch {
	case !strings.Contains(s, "'"):
		return "'" + s + "'"
	case !strings.Contains(s, `"`):
		return `"` + s + `"`
	default:
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
}
