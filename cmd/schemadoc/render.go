package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadoc/internal/diff"
	"github.com/tordrt/schemadoc/internal/schema"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newTable returns a table writer that draws borders on a terminal and
// plain aligned columns otherwise.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if isTerminal(w) {
		t.SetStyle(table.StyleLight)
		return t
	}
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	t.SetStyle(style)
	return t
}

// writeStructured writes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported structured format %q", format)
}

func renderModel(w io.Writer, m *schema.Model) {
	if m.Project != "" {
		_, _ = fmt.Fprintf(w, "Project: %s\n", m.Project)
	}
	if len(m.Tables) == 0 {
		_, _ = fmt.Fprintln(w, "(0 tables)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Table", "Alias", "Columns", "Indexes", "Note"})
	for _, tbl := range m.Tables {
		t.AppendRow(table.Row{tbl.Name, tbl.Alias, len(tbl.Columns), len(tbl.Indexes), tbl.Note})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d tables, %d enums, %d refs)\n", len(m.Tables), len(m.Enums), len(m.Refs))
}

var changeMarks = map[diff.ChangeType]string{
	diff.Added:    "+",
	diff.Removed:  "-",
	diff.Modified: "~",
}

// renderDelta writes a one-line-per-change summary of a delta.
func renderDelta(w io.Writer, delta *diff.Delta) {
	if delta == nil || delta.IsEmpty() {
		_, _ = fmt.Fprintln(w, "No changes detected")
		return
	}

	for _, td := range delta.Tables {
		_, _ = fmt.Fprintf(w, "%s %s\n", changeMarks[td.Type], td.Name)
		for _, cd := range td.Columns {
			_, _ = fmt.Fprintf(w, "    %s %s\n", changeMarks[cd.Type], describeColumnDiff(cd))
		}
	}
	_, _ = fmt.Fprintf(w, "(%d added, %d removed, %d modified)\n",
		len(delta.Added()), len(delta.Removed()), len(delta.Modified()))
}

func describeColumnDiff(cd diff.ColumnDiff) string {
	switch cd.Type {
	case diff.Added:
		return cd.Name + " " + cd.CurrentType
	case diff.Removed:
		return cd.Name + " " + cd.BeforeType
	}
	s := fmt.Sprintf("%s %s -> %s", cd.Name, cd.BeforeType, cd.CurrentType)
	if len(cd.ChangedProperties) > 0 {
		s += " (" + strings.Join(cd.ChangedProperties, ", ") + ")"
	}
	return s
}
