package main

import (
	"bytes"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/formatter"
	"github.com/tordrt/schemadoc/internal/watch"
)

func newDocCmd() *cobra.Command {
	var (
		outputFile string
		watchFile  bool
	)

	cmd := &cobra.Command{
		Use:   "doc <file>",
		Short: "Write documentation for a schema file",
		Long: `Write documentation for a schema file as text, markdown or schema text (dbml).

With --output-dir the documentation is split into an overview file plus one
file per table. With --watch the documentation is rewritten whenever the
schema file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			if outputFile != "" && a.cfg.Docs.OutputDir != "" {
				return fmt.Errorf("cannot use both --output-dir and --output-file flags")
			}

			render := func() error {
				text, err := readSchema(cmd, args[0])
				if err != nil {
					return err
				}
				m, err := schemadoc.Parse(text)
				if err != nil {
					return err
				}
				opts := &schemadoc.OutputOptions{
					Writer:    cmd.OutOrStdout(),
					OutputDir: a.cfg.Docs.OutputDir,
					Format:    a.cfg.Docs.Format,
				}
				if outputFile != "" {
					f, err := os.Create(outputFile)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer func() {
						if err := f.Close(); err != nil {
							a.logger.Warn("failed to close output file", "error", err)
						}
					}()
					opts.Writer = f
				}
				return schemadoc.FormatSchema(m, opts)
			}

			if err := render(); err != nil {
				return err
			}
			if !watchFile {
				return nil
			}
			if args[0] == "-" {
				return fmt.Errorf("--watch needs a schema file, not stdin")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("watching schema file", "file", args[0])
			return watch.File(ctx, args[0], watch.DefaultDebounce, func() {
				if err := render(); err != nil {
					a.logger.Error("failed to rebuild documentation", "error", err)
					return
				}
				a.logger.Info("documentation rebuilt", "file", args[0])
			})
		},
	}

	cmd.Flags().StringP("format", "f", "", "Documentation format: text, markdown or dbml")
	cmd.Flags().StringP("output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "Output file (default: stdout)")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "Rewrite documentation when the schema file changes")
	return cmd
}

func newIntrospectCmd() *cobra.Command {
	var (
		dbURL        string
		mysqlURL     string
		sqlitePath   string
		sqlserverURL string
		tables       string
		exclude      string
		schemaName   string
		commit       string
	)

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read the schema of a live database",
		Long: `Read the schema of a live PostgreSQL, MySQL, SQLite or SQL Server database and
write it as documentation. With --format dbml the output is schema text that
the other commands accept; --commit stores it as the next version of a project.`,
		Example: `  schemadoc introspect --db-url postgres://localhost/shop --format dbml
  schemadoc introspect --sqlite app.db --exclude goose_db_version --commit app`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			url, err := databaseURL(dbURL, mysqlURL, sqlitePath, sqlserverURL)
			if err != nil {
				return err
			}

			m, err := schemadoc.ExtractSchema(cmd.Context(), url, &schemadoc.Options{
				Tables:        parseTableList(tables),
				ExcludeTables: parseTableList(exclude),
				SchemaName:    schemaName,
			})
			if err != nil {
				return err
			}
			a.logger.Info("extracted schema", "tables", len(m.Tables))

			if commit != "" {
				var buf bytes.Buffer
				if err := formatter.NewDBMLFormatter(&buf).Format(m); err != nil {
					return fmt.Errorf("failed to format schema text: %w", err)
				}
				svc, closeFn, err := a.openService(cmd.Context())
				if err != nil {
					return err
				}
				defer closeFn()

				res, err := svc.CommitVersion(cmd.Context(), commit, buf.String())
				if err != nil {
					return err
				}
				writeCommitResult(cmd.ErrOrStderr(), commit, res)
			}

			return schemadoc.FormatSchema(m, &schemadoc.OutputOptions{
				Writer:    cmd.OutOrStdout(),
				OutputDir: a.cfg.Docs.OutputDir,
				Format:    a.cfg.Docs.Format,
			})
		},
	}

	cmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&mysqlURL, "mysql-url", "", "MySQL connection string")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file path")
	cmd.Flags().StringVar(&sqlserverURL, "sqlserver-url", "", "SQL Server connection string")
	cmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringVarP(&exclude, "exclude", "x", "", "Tables to skip (comma-separated, optional)")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL, dbo for SQL Server)")
	cmd.Flags().StringP("format", "f", "", "Output format: text, markdown or dbml")
	cmd.Flags().StringP("output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVar(&commit, "commit", "", "Commit the extracted schema as the next version of this project")
	return cmd
}

// databaseURL turns the connection flags into a single URL.
func databaseURL(dbURL, mysqlURL, sqlitePath, sqlserverURL string) (string, error) {
	var urls []string
	if dbURL != "" {
		urls = append(urls, dbURL)
	}
	if mysqlURL != "" {
		urls = append(urls, "mysql://"+strings.TrimPrefix(mysqlURL, "mysql://"))
	}
	if sqlitePath != "" {
		urls = append(urls, "sqlite://"+sqlitePath)
	}
	if sqlserverURL != "" {
		urls = append(urls, sqlserverURL)
	}

	switch len(urls) {
	case 0:
		return "", fmt.Errorf("one of --db-url, --mysql-url, --sqlite or --sqlserver-url must be specified")
	case 1:
		return urls[0], nil
	}
	return "", fmt.Errorf("only one of --db-url, --mysql-url, --sqlite or --sqlserver-url can be specified")
}
