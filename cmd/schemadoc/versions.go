package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/ddl"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Commit, list and compare schema versions of a project",
	}
	cmd.AddCommand(
		newVersionCommitCmd(),
		newVersionListCmd(),
		newVersionShowCmd(),
		newVersionDiffCmd(),
		newVersionDDLCmd(),
	)
	return cmd
}

func newVersionCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <project> <file>",
		Short: "Commit a schema file as the next version of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			text, err := readSchema(cmd, args[1])
			if err != nil {
				return err
			}
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.CommitVersion(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, res)
			}
			writeCommitResult(cmd.OutOrStdout(), args[0], res)
			if res.Delta != nil {
				renderDelta(cmd.OutOrStdout(), res.Delta)
			}
			return nil
		},
	}
}

func newVersionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project>",
		Short: "List the committed versions of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			versions, err := svc.Store().List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, versions)
			}

			w := cmd.OutOrStdout()
			if len(versions) == 0 {
				_, _ = fmt.Fprintf(w, "No versions committed for %s\n", args[0])
				return nil
			}
			t := newTable(w)
			t.AppendHeader(table.Row{"Version", "Hash", "Delta", "Created"})
			for _, v := range versions {
				delta := "yes"
				if len(v.Delta) == 0 {
					delta = "no"
				}
				t.AppendRow(table.Row{v.Number, v.Hash, delta, v.CreatedAt.Local().Format(time.DateTime)})
			}
			t.Render()
			return nil
		},
	}
}

func newVersionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project> <number>",
		Short: "Print the schema text of a committed version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid version number %q", args[1])
			}
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			v, err := svc.Store().Version(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, v)
			}
			_, _ = io.WriteString(cmd.OutOrStdout(), v.Content)
			return nil
		},
	}
}

// rangeFlags binds --from and --to. Zero selects the defaults: to is the
// draft, or the latest version; from is the version before to.
func rangeFlags(cmd *cobra.Command, from, to *int) {
	cmd.Flags().IntVar(from, "from", 0, "Base version (default: the version before --to)")
	cmd.Flags().IntVar(to, "to", 0, "Target version (default: the draft, else the latest version)")
}

func newVersionDiffCmd() *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "diff <project>",
		Short: "Show the delta between two versions of a project",
		Example: `  schemadoc version diff shop
  schemadoc version diff shop --from 1 --to 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			cmp, err := svc.Compare(cmd.Context(), args[0], from, to)
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, cmp)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cmp.Project, cmp.Label())
			renderDelta(cmd.OutOrStdout(), cmp.Delta)
			return nil
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newVersionDDLCmd() *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "ddl <project>",
		Short: "Generate the DDL between two versions of a project",
		Example: `  schemadoc version ddl shop --to 2 --dialect sqlserver
  schemadoc version ddl shop --dialect all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			dialects := ddl.List()
			if a.cfg.Dialect != "all" {
				id, err := ddl.ParseDialect(a.cfg.Dialect)
				if err != nil {
					return err
				}
				d, err := ddl.Lookup(id)
				if err != nil {
					return err
				}
				dialects = []*ddl.Dialect{d}
			}

			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			scripts := make([]schemadoc.DialectScript, 0, len(dialects))
			for _, d := range dialects {
				script, err := svc.VersionDDL(cmd.Context(), args[0], from, to, d.ID)
				if err != nil {
					return err
				}
				scripts = append(scripts, schemadoc.DialectScript{Dialect: d.Name, Title: d.Title, Script: script})
			}
			return writeScripts(cmd.OutOrStdout(), a.cfg.Output, scripts)
		},
	}
	rangeFlags(cmd, &from, &to)
	return cmd
}

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save or show the uncommitted schema of a project",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save <project> <file>",
		Short: "Save a schema file as the project's draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			text, err := readSchema(cmd, args[1])
			if err != nil {
				return err
			}
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.Store().SaveDraft(cmd.Context(), args[0], text); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved draft for %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <project>",
		Short: "Print the project's draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			d, err := svc.Store().Draft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, d)
			}
			_, _ = io.WriteString(cmd.OutOrStdout(), d.Content)
			return nil
		},
	})

	return cmd
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with committed versions or drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			svc, closeFn, err := a.openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			projects, err := svc.Store().Projects(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.Output != "text" {
				return writeStructured(cmd.OutOrStdout(), a.cfg.Output, projects)
			}
			for _, p := range projects {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func writeCommitResult(w io.Writer, project string, res *schemadoc.CommitResult) {
	if res.Unchanged {
		_, _ = fmt.Fprintf(w, "%s is unchanged since v%d\n", project, res.Version.Number)
		return
	}
	_, _ = fmt.Fprintf(w, "Committed %s v%d (%s)\n", project, res.Version.Number, res.Version.Hash)
}
