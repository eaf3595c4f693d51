package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadoc"
	"github.com/tordrt/schemadoc/internal/config"
	"github.com/tordrt/schemadoc/internal/store"
)

var cfgFile string

// appKey stores the loaded settings on the command context.
type appKey struct{}

type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schemadoc",
		Short: "Document, version and migrate DBML-like database schemas",
		Long: `schemadoc parses schema text, tracks schema versions per project, computes
the structural delta between two versions and emits DDL for MySQL, MariaDB,
PostgreSQL, Oracle or SQL Server.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(cmd.ErrOrStderr())
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{cfg: cfg, logger: logger}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./schemadoc.yaml)")
	pf.String("dialect", config.DefaultDialect, "Target dialect: mysql, mariadb, postgresql, oracle, sqlserver, a number 1-5, or all")
	pf.String("store", config.DefaultStorePath, "Path to the version store")
	pf.StringP("output", "o", config.DefaultOutput, "Output format: text, json or yaml")
	pf.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn or error")
	pf.String("label", "", "Version label written into DDL headers")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"mysql", "mariadb", "postgresql", "oracle", "sqlserver", "all"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newParseCmd(),
		newDiffCmd(),
		newDDLCmd(),
		newExportCmd(),
		newDialectsCmd(),
		newDocCmd(),
		newIntrospectCmd(),
		newVersionCmd(),
		newDraftCmd(),
		newProjectsCmd(),
		newServeCmd(),
	)

	return rootCmd
}

// appFrom returns the settings loaded by the root command. Commands run
// outside the root (tests) get defaults.
func appFrom(cmd *cobra.Command) *app {
	if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
		return a
	}
	return &app{
		cfg: &config.Config{
			Dialect:   config.DefaultDialect,
			StorePath: config.DefaultStorePath,
			Output:    config.DefaultOutput,
			LogLevel:  config.DefaultLogLevel,
			Docs:      config.DocsConfig{Format: config.DefaultDocsFormat},
			Server:    config.ServerConfig{Addr: config.DefaultServerAddr},
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

// openService opens and migrates the configured version store.
func (a *app) openService(ctx context.Context) (*schemadoc.Service, func(), error) {
	st, err := store.Open(ctx, a.cfg.StorePath)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			a.logger.Warn("failed to close version store", "error", err)
		}
	}
	return schemadoc.NewService(st, a.logger), closeFn, nil
}

// readSchema reads schema text from a file, or from stdin when path is "-".
func readSchema(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), nil
}

func parseTableList(tables string) []string {
	if tables == "" {
		return nil
	}
	list := strings.Split(tables, ",")
	for i, t := range list {
		list[i] = strings.TrimSpace(t)
	}
	return list
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
