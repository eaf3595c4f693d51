package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/ddl"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse schema text and summarize its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			text, err := readSchema(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := schemadoc.Parse(text)
			if err != nil {
				return err
			}
			a.logger.Debug("parsed schema", "file", args[0], "tables", len(m.Tables))

			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, m)
			}
			renderModel(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Show the structural delta between two schema files",
		Example: `  schemadoc diff v1.dbml v2.dbml
  schemadoc diff v1.dbml v2.dbml -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			before, after, err := readPair(cmd, args)
			if err != nil {
				return err
			}
			delta, err := schemadoc.Diff(before, after)
			if err != nil {
				return err
			}

			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, delta)
			}
			renderDelta(cmd.OutOrStdout(), delta)
			return nil
		},
	}
}

func newDDLCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "ddl <before> <after>",
		Short: "Generate the DDL that migrates one schema file to another",
		Example: `  schemadoc ddl v1.dbml v2.dbml --dialect mysql
  schemadoc ddl v1.dbml v2.dbml --dialect all
  schemadoc ddl v1.dbml v2.dbml --dialect postgresql --validate`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			before, after, err := readPair(cmd, args)
			if err != nil {
				return err
			}
			delta, err := schemadoc.Diff(before, after)
			if err != nil {
				return err
			}
			opts := ddl.Options{Logger: a.logger, Label: a.cfg.Header.Label}

			var scripts []schemadoc.DialectScript
			if a.cfg.Dialect == "all" {
				scripts, err = schemadoc.GenerateAll(cmd.Context(), delta, opts)
				if err != nil {
					return err
				}
			} else {
				id, err := ddl.ParseDialect(a.cfg.Dialect)
				if err != nil {
					return err
				}
				d, err := ddl.Lookup(id)
				if err != nil {
					return err
				}
				script, err := ddl.New(opts).Generate(delta, id)
				if err != nil {
					return err
				}
				scripts = []schemadoc.DialectScript{{Dialect: d.Name, Title: d.Title, Script: script}}
			}

			if validate {
				if err := validateScripts(cmd.ErrOrStderr(), scripts); err != nil {
					return err
				}
			}
			return writeScripts(cmd.OutOrStdout(), a.cfg.Output, scripts)
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "Parse the PostgreSQL output and report the statements it contains")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Generate CREATE statements for every table in a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if a.cfg.Dialect == "all" {
				return fmt.Errorf("export needs a single dialect")
			}
			id, err := ddl.ParseDialect(a.cfg.Dialect)
			if err != nil {
				return err
			}
			text, err := readSchema(cmd, args[0])
			if err != nil {
				return err
			}
			script, err := ddl.New(ddl.Options{Logger: a.logger, Label: a.cfg.Header.Label}).GenerateFromModel(text, id)
			if err != nil {
				return err
			}
			_, _ = io.WriteString(cmd.OutOrStdout(), script)
			return nil
		},
	}
}

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported DDL dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			dialects := ddl.List()

			if a.cfg.Output != "text" {
				type entry struct {
					ID      int      `json:"id" yaml:"id"`
					Name    string   `json:"name" yaml:"name"`
					Title   string   `json:"title" yaml:"title"`
					Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
				}
				out := make([]entry, 0, len(dialects))
				for _, d := range dialects {
					out = append(out, entry{ID: int(d.ID), Name: d.Name, Title: d.Title, Aliases: d.Aliases})
				}
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, out)
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Name", "Title", "Aliases"})
			for _, d := range dialects {
				t.AppendRow(table.Row{int(d.ID), d.Name, d.Title, strings.Join(d.Aliases, ", ")})
			}
			t.Render()
			return nil
		},
	}
}

func readPair(cmd *cobra.Command, args []string) (string, string, error) {
	if args[0] == "-" && args[1] == "-" {
		return "", "", fmt.Errorf("only one of before and after can be read from stdin")
	}
	before, err := readSchema(cmd, args[0])
	if err != nil {
		return "", "", err
	}
	after, err := readSchema(cmd, args[1])
	if err != nil {
		return "", "", err
	}
	return before, after, nil
}

// validateScripts checks the PostgreSQL script, if any, with the PostgreSQL
// grammar.
func validateScripts(w io.Writer, scripts []schemadoc.DialectScript) error {
	for _, s := range scripts {
		if s.Dialect != "postgresql" {
			continue
		}
		report, err := ddl.ValidatePostgres(s.Script)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "PostgreSQL script OK: %d statements, tables: %s\n",
			report.Statements, strings.Join(report.Tables, ", "))
		return nil
	}
	return fmt.Errorf("--validate requires the postgresql dialect")
}

func writeScripts(w io.Writer, format string, scripts []schemadoc.DialectScript) error {
	if format != "text" {
		return writeStructured(w, format, scripts)
	}
	if len(scripts) == 1 {
		_, _ = io.WriteString(w, scripts[0].Script)
		return nil
	}
	for i, s := range scripts {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "-- ==== %s ====\n", s.Title)
		_, _ = io.WriteString(w, s.Script)
	}
	return nil
}
