package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tordrt/schemadoc/internal/schema"
)

// MultiFileFormatter writes schema to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text", "markdown" or "dbml"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes the schema to multiple files
func (f *MultiFileFormatter) Format(m *schema.Model) error {
	if _, err := newTableFormatter(f.OutputFormat, io.Discard); err != nil {
		return err
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(m); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, table := range m.Tables {
		if err := f.writeTableFile(table, m); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}

	return nil
}

// writeOverview writes the overview file
func (f *MultiFileFormatter) writeOverview(m *schema.Model) error {
	filename := filepath.Join(f.OutputDir, "_overview"+f.fileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	switch f.OutputFormat {
	case FormatMarkdown:
		f.writeMarkdownOverview(file, m)
	case FormatDBML:
		f.writeDBMLOverview(file, m)
	default:
		f.writeTextOverview(file, m)
	}
	return nil
}

func (f *MultiFileFormatter) writeMarkdownOverview(w io.Writer, m *schema.Model) {
	_, _ = fmt.Fprintf(w, "# Schema Overview\n\n")
	_, _ = fmt.Fprintf(w, "Each table has a corresponding file: `<table_name>%s`\n\n", f.fileExtension())
	_, _ = fmt.Fprintf(w, "## Tables\n\n")

	for _, table := range sortedTables(m) {
		_, _ = fmt.Fprintf(w, "- **%s**", table.Name)
		if targets := relationTargets(m, table.Name); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}
}

func (f *MultiFileFormatter) writeTextOverview(w io.Writer, m *schema.Model) {
	_, _ = fmt.Fprintf(w, "SCHEMA OVERVIEW\n")
	_, _ = fmt.Fprintf(w, "Each table has a file: <table_name>%s\n\n", f.fileExtension())

	for _, table := range sortedTables(m) {
		_, _ = fmt.Fprintf(w, "%s", table.Name)
		if targets := relationTargets(m, table.Name); len(targets) > 0 {
			_, _ = fmt.Fprintf(w, " (references: %s)", strings.Join(targets, ","))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}
}

// writeDBMLOverview writes everything except the tables, so the overview
// plus the table files together parse as the full model.
func (f *MultiFileFormatter) writeDBMLOverview(w io.Writer, m *schema.Model) {
	rest := *m
	rest.Tables = nil
	_ = NewDBMLFormatter(w).Format(&rest)
}

// writeTableFile writes a single table to its own file
func (f *MultiFileFormatter) writeTableFile(table schema.Table, m *schema.Model) error {
	filename := filepath.Join(f.OutputDir, fileName(table.Name)+f.fileExtension())

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	tf, err := newTableFormatter(f.OutputFormat, file)
	if err != nil {
		return err
	}
	return tf.FormatTable(table, m)
}

func relationTargets(m *schema.Model, table string) []string {
	var targets []string
	seen := make(map[string]bool)
	for _, rel := range m.RelationsFrom(table) {
		if !seen[rel.TargetTable] {
			seen[rel.TargetTable] = true
			targets = append(targets, rel.TargetTable)
		}
	}
	return targets
}

// fileName keeps table names usable as file names.
func fileName(table string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, table)
}

func (f *MultiFileFormatter) fileExtension() string {
	switch f.OutputFormat {
	case FormatMarkdown:
		return ".md"
	case FormatDBML:
		return ".dbml"
	default:
		return ".txt"
	}
}
